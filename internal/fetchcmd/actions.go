// Package fetchcmd implements the fetch command: index page to local PDFs,
// metadata record and page map for one or more prospectus URLs.
package fetchcmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v2"

	"ipofetch/internal/common"
	"ipofetch/internal/download"
	"ipofetch/models"
	"ipofetch/pkg/chapters"
	"ipofetch/pkg/db"
	"ipofetch/pkg/fetcher"
	"ipofetch/pkg/identify"
	"ipofetch/pkg/language"
	"ipofetch/pkg/metadata"
	"ipofetch/pkg/pagemap"
)

func FetchAction(c *cli.Context) error {
	logLevel := slog.LevelInfo
	if c.Bool("quiet") {
		logLevel = slog.LevelError
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	if c.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Error: No prospectus URLs provided")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Usage:")
		fmt.Fprintln(os.Stderr, `  ipofetch fetch "https://www1.hkexnews.hk/listedco/listconews/sehk/2023/0630/10123456/index.htm"`)
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Need help? Run: ipofetch fetch --help")
		os.Exit(1)
	}

	cfg, err := models.LoadConfig(c.String("config"))
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(2)
	}
	if c.IsSet("output-dir") {
		cfg.OutputDir = c.String("output-dir")
	}
	if c.IsSet("workers") {
		cfg.MaxConcurrent = c.Int("workers")
	}

	database, err := db.Open(filepath.Join(cfg.OutputDir, db.DefaultDBName))
	if err != nil {
		logger.Error("failed to open history database", "error", err)
		os.Exit(2)
	}
	defer database.Close()

	client := fetcher.NewClient(fetcher.Options{
		UserAgent: cfg.UserAgent,
		Timeout:   cfg.RequestTimeout,
	})
	opts := download.OptionsFromConfig(cfg)
	opts.SkipExisting = !c.Bool("force")
	dl := download.New(client, opts, logger)
	gen := &metadata.Generator{Lang: language.New()}

	ctx := context.Background()
	urls := c.Args().Slice()
	var failures int
	for i, rawURL := range urls {
		if i > 0 {
			documentDelay(ctx, cfg)
		}
		if err := fetchOne(ctx, logger, client, dl, gen, database, cfg, rawURL, c.Bool("no-map")); err != nil {
			logger.Error("document fetch failed", "url", rawURL, "error", err)
			failures++
		}
	}

	if failures > 0 {
		return fmt.Errorf("%d of %d documents failed", failures, len(urls))
	}
	return nil
}

// fetchOne runs the whole pipeline for a single prospectus URL.
func fetchOne(ctx context.Context, logger *slog.Logger, client *fetcher.Client, dl *download.Downloader, gen *metadata.Generator, database *db.DB, cfg models.Config, rawURL string, noMap bool) error {
	ref, err := identify.Classify(rawURL)
	if err != nil {
		return err
	}
	logger.Info("document classified", "document_id", ref.DocumentID, "epoch", ref.Epoch.String())

	raw, err := client.GetBytes(ctx, rawURL)
	if err != nil {
		return fmt.Errorf("failed to fetch index page: %w", err)
	}

	ext := &chapters.Extractor{}
	list, err := ext.Extract(ref, raw)
	speculative := false
	if err != nil {
		if !errors.Is(err, chapters.ErrNoChapterList) {
			return err
		}
		// No enumerated list on the page; fall back to probing chapter
		// numbers until the server says not found.
		speculative = true
		logger.Warn("no chapter list on index page, probing chapter numbers", "document_id", ref.DocumentID)
	} else {
		logger.Info("chapter list extracted", "document_id", ref.DocumentID,
			"chapters", len(list), "encoding", ext.Encoding)
	}

	company := chapters.ExtractCompanyName(rawURL, ext.Text)
	if company == "" {
		company = "unknown"
	}
	base := common.SanitizeFilename(company) + "_" + ref.DocumentID
	dir := filepath.Join(cfg.OutputDir, base)

	sink := func(o models.ChapterFetchOutcome) {
		switch o.Status {
		case models.StatusFetched:
			fmt.Printf("  [%02d] %s (%s)\n", o.Chapter.Seq, o.Chapter.Title, common.FormatFileSize(o.ByteSize))
		case models.StatusFailed:
			fmt.Printf("  [%02d] %s FAILED\n", o.Chapter.Seq, o.Chapter.Title)
		}
	}

	fmt.Printf("Fetching %s (%s)\n", company, ref.DocumentID)
	var result models.DocumentFetchResult
	if speculative {
		result, err = dl.FetchSpeculative(ctx, ref, dir, base, sink)
	} else {
		result, err = dl.FetchAll(ctx, ref, list, dir, base, sink)
	}
	if err != nil {
		return err
	}

	total := len(list)
	if speculative {
		for seq := range result.Outcomes {
			if seq > total {
				total = seq
			}
		}
	}

	rec := gen.BuildDocument(ref, company, total, result)
	metaPath, err := gen.Save(rec, dir)
	if err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}
	logger.Info("metadata written", "path", metaPath)

	fmt.Println(metadata.SummaryReport(rec, result))

	fetched, _, _ := result.Counts()
	if !noMap && fetched > 0 {
		builder := &pagemap.Builder{}
		mapPath, err := builder.BuildAndWrite(dir)
		if err != nil {
			// The documents are on disk; a page-map failure should not
			// discard the run.
			logger.Error("page map build failed", "dir", dir, "error", err)
		} else {
			logger.Info("page map written", "path", mapPath)
		}
	}

	docID, err := database.UpsertDocument(ref, company)
	if err != nil {
		return err
	}
	if _, err := database.InsertRun(docID, total, result); err != nil {
		return err
	}

	if !result.Complete {
		return fmt.Errorf("document %s: fetch incomplete (%d of %d chapters)", ref.DocumentID, fetched, total)
	}
	return nil
}

// documentDelay sleeps the randomized politeness window between documents.
func documentDelay(ctx context.Context, cfg models.Config) {
	if cfg.DocumentDelayMax <= 0 {
		return
	}
	delay := cfg.DocumentDelayMin
	if window := cfg.DocumentDelayMax - cfg.DocumentDelayMin; window > 0 {
		delay += rand.N(window)
	}
	select {
	case <-ctx.Done():
	case <-time.After(delay):
	}
}
