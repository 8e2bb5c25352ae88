// Package download orchestrates the chapter downloads for one document:
// a bounded worker pool with per-chapter retries, politeness delays, a
// shared rate-limit clock and the stop condition that distinguishes "the
// document ends here" from a transient failure.
package download

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"golang.org/x/time/rate"

	"ipofetch/internal/common"
	"ipofetch/models"
	"ipofetch/pkg/chapters"
	"ipofetch/pkg/fetcher"
	"ipofetch/pkg/storage"
)

// maxConcurrent is a hard cap on chapters in flight, not a target; more
// parallelism provokes upstream rate limiting.
const maxConcurrent = 3

// maxSpeculative bounds speculative probing so a systematically wrong URL
// pattern cannot loop forever.
const maxSpeculative = 200

// Options tunes the orchestrator. Zero values fall back to the document
// defaults; tests shrink the delays.
type Options struct {
	// MaxConcurrent is clamped to the hard cap; zero means the cap.
	MaxConcurrent  int
	MaxAttempts    int
	RateCooldown   time.Duration
	ServerCooldown time.Duration
	BackoffBase    time.Duration

	// Randomized politeness window before each chapter download starts.
	ChapterDelayMin time.Duration
	ChapterDelayMax time.Duration

	// MinFreeBytes is the disk-space precondition checked before any
	// chapter task launches.
	MinFreeBytes int64

	// SkipExisting short-circuits chapters whose final file already
	// exists on disk.
	SkipExisting bool

	// Limiter is the shared rate-limit clock across workers. Nil means
	// no rate limiting (tests).
	Limiter *rate.Limiter
}

// OptionsFromConfig maps the runtime config onto orchestrator options.
func OptionsFromConfig(cfg models.Config) Options {
	return Options{
		MaxConcurrent:   cfg.MaxConcurrent,
		MaxAttempts:     cfg.MaxAttempts,
		RateCooldown:    cfg.RateCooldown,
		ServerCooldown:  cfg.ServerCooldown,
		BackoffBase:     cfg.BackoffBase,
		ChapterDelayMin: cfg.ChapterDelayMin,
		ChapterDelayMax: cfg.ChapterDelayMax,
		MinFreeBytes:    cfg.MinFreeBytes,
		SkipExisting:    true,
		Limiter:         rate.NewLimiter(rate.Every(500*time.Millisecond), 1),
	}
}

// Sink receives every chapter outcome as it settles.
type Sink func(models.ChapterFetchOutcome)

// Downloader runs document fetches.
type Downloader struct {
	client *fetcher.Client
	opts   Options
	logger *slog.Logger
}

// New creates a Downloader.
func New(client *fetcher.Client, opts Options, logger *slog.Logger) *Downloader {
	if opts.MaxConcurrent <= 0 || opts.MaxConcurrent > maxConcurrent {
		opts.MaxConcurrent = maxConcurrent
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Downloader{client: client, opts: opts, logger: logger}
}

// FetchAll downloads an enumerated chapter list into dir. Outcomes are
// recorded per sequence number; sibling chapters keep downloading when one
// fails, and already-fetched chapters are never rolled back.
func (d *Downloader) FetchAll(ctx context.Context, ref models.DocumentRef, list []models.ChapterRef, dir, baseName string, sink Sink) (models.DocumentFetchResult, error) {
	result := models.DocumentFetchResult{Ref: ref, Outcomes: map[int]models.ChapterFetchOutcome{}}
	if err := checkPreconditions(dir, d.opts.MinFreeBytes); err != nil {
		return result, err
	}

	jobs := make(chan models.ChapterRef, len(list))
	outcomes := make(chan models.ChapterFetchOutcome, len(list))

	var wg sync.WaitGroup
	for w := 0; w < d.opts.MaxConcurrent; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ch := range jobs {
				outcomes <- d.fetchChapter(ctx, ch, d.chapterPath(dir, baseName, ch))
			}
		}()
	}
	for _, ch := range list {
		jobs <- ch
	}
	close(jobs)
	wg.Wait()
	close(outcomes)

	for o := range outcomes {
		result.Outcomes[o.Chapter.Seq] = o
		if sink != nil {
			sink(o)
		}
	}

	d.aggregate(&result, len(list))
	return result, nil
}

// FetchSpeculative discovers chapters by probing sequence numbers in waves
// of at most the concurrency cap, stopping at the first not-found
// response. Each wave settles completely before the next one launches so
// the stop condition is evaluated deterministically.
func (d *Downloader) FetchSpeculative(ctx context.Context, ref models.DocumentRef, dir, baseName string, sink Sink) (models.DocumentFetchResult, error) {
	result := models.DocumentFetchResult{Ref: ref, Outcomes: map[int]models.ChapterFetchOutcome{}}
	if err := checkPreconditions(dir, d.opts.MinFreeBytes); err != nil {
		return result, err
	}

	for base := 1; base <= maxSpeculative; base += d.opts.MaxConcurrent {
		wave := make([]models.ChapterFetchOutcome, d.opts.MaxConcurrent)

		var wg sync.WaitGroup
		for i := 0; i < d.opts.MaxConcurrent; i++ {
			seq := base + i
			url, err := chapters.ChapterURL(ref, seq)
			if err != nil {
				return result, err
			}
			ch := models.ChapterRef{Seq: seq, Title: fmt.Sprintf("chapter %d", seq), SourceURL: url}

			wg.Add(1)
			go func(i int, ch models.ChapterRef) {
				defer wg.Done()
				wave[i] = d.fetchChapter(ctx, ch, d.chapterPath(dir, baseName, ch))
			}(i, ch)
		}
		wg.Wait()

		for _, o := range wave {
			if o.Status == models.StatusNotFound {
				// Normal end-of-document signal: everything at or past
				// this number is beyond the document.
				d.discardPartialFiles(wave, o.Chapter.Seq)
				d.aggregate(&result, o.Chapter.Seq-1)
				return result, nil
			}
			result.Outcomes[o.Chapter.Seq] = o
			if sink != nil {
				sink(o)
			}
			if o.Status == models.StatusFailed {
				// Without a clean not-found boundary the document length
				// is unknowable; stop probing and report incomplete.
				d.logger.Warn("speculative probe failed, stopping discovery",
					"document_id", ref.DocumentID, "chapter", o.Chapter.Seq, "error", o.Err)
				d.aggregate(&result, o.Chapter.Seq)
				return result, nil
			}
		}
	}

	d.aggregate(&result, maxSpeculative)
	result.Warnings = append(result.Warnings,
		fmt.Sprintf("document %s: speculative discovery stopped at the %d-chapter safety limit", ref.DocumentID, maxSpeculative))
	return result, nil
}

// aggregate derives Complete and the document-level warnings from the
// settled outcomes. knownCount is the enumerated chapter count, or the
// last sequence number before the stop condition in speculative mode.
func (d *Downloader) aggregate(result *models.DocumentFetchResult, knownCount int) {
	complete := true
	for seq := 1; seq <= knownCount; seq++ {
		o, ok := result.Outcomes[seq]
		if !ok || o.Status != models.StatusFetched {
			complete = false
		}
		if ok && o.Status == models.StatusNotFound {
			// A hole inside the known chapter range is an upstream
			// anomaly, not the end-of-document signal.
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("document %s: chapter %d of %d missing upstream (not found)",
					result.Ref.DocumentID, seq, knownCount))
		}
	}
	result.Complete = complete && knownCount > 0
}

// discardPartialFiles removes files fetched past the end-of-document
// boundary within the same wave; they are not part of the document.
func (d *Downloader) discardPartialFiles(wave []models.ChapterFetchOutcome, boundary int) {
	for _, o := range wave {
		if o.Chapter.Seq > boundary && o.Status == models.StatusFetched && o.LocalPath != "" {
			if err := os.Remove(o.LocalPath); err != nil {
				d.logger.Warn("failed to remove chapter past document end", "path", o.LocalPath, "error", err)
			}
		}
	}
}

// fetchChapter runs the full retry cycle for one chapter and returns its
// terminal outcome.
func (d *Downloader) fetchChapter(ctx context.Context, ch models.ChapterRef, destPath string) models.ChapterFetchOutcome {
	outcome := models.ChapterFetchOutcome{Chapter: ch}

	if d.opts.SkipExisting && storage.Exists(destPath) {
		info, err := os.Stat(destPath)
		if err == nil {
			d.logger.Info("chapter already on disk, skipping", "chapter", ch.Seq, "path", destPath)
			outcome.Status = models.StatusFetched
			outcome.LocalPath = destPath
			outcome.ByteSize = info.Size()
			return outcome
		}
	}

	d.politenessDelay(ctx)

	attempts := 0
	var size int64
	err := retry.Do(
		func() error {
			attempts++
			if d.opts.Limiter != nil {
				if err := d.opts.Limiter.Wait(ctx); err != nil {
					return retry.Unrecoverable(err)
				}
			}
			n, err := d.downloadToFile(ctx, ch.SourceURL, destPath)
			if err != nil {
				return err
			}
			size = n
			return nil
		},
		retry.Attempts(uint(d.opts.MaxAttempts)),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			// Not-found is a terminal verdict about the document, not a
			// transient condition.
			return !errors.Is(err, fetcher.ErrNotFound)
		}),
		retry.DelayType(d.retryDelay),
		retry.OnRetry(func(n uint, err error) {
			d.logger.Warn("chapter download attempt failed, retrying",
				"chapter", ch.Seq, "attempt", n+1, "error", err)
		}),
	)

	outcome.Attempts = attempts
	switch {
	case err == nil:
		outcome.Status = models.StatusFetched
		outcome.LocalPath = destPath
		outcome.ByteSize = size
		d.logger.Info("chapter fetched", "chapter", ch.Seq, "bytes", size, "attempts", attempts)
	case errors.Is(err, fetcher.ErrNotFound):
		outcome.Status = models.StatusNotFound
		d.logger.Info("chapter not found upstream", "chapter", ch.Seq, "url", ch.SourceURL)
	default:
		outcome.Status = models.StatusFailed
		outcome.Err = fmt.Errorf("chapter %d: failed after %d attempts: %w", ch.Seq, attempts, err)
		d.logger.Error("chapter download failed", "chapter", ch.Seq, "attempts", attempts, "error", err)
	}
	return outcome
}

// downloadToFile streams one attempt into the atomic writer; a partial
// write never reaches the final path.
func (d *Downloader) downloadToFile(ctx context.Context, url, destPath string) (int64, error) {
	body, err := d.client.Open(ctx, url)
	if err != nil {
		return 0, err
	}
	defer body.Close()
	return storage.WriteAtomic(destPath, body)
}

// retryDelay selects the wait before the next attempt: fixed cooldowns for
// rate-limit and server-error responses, exponential backoff with jitter
// for everything else. n is zero-based.
func (d *Downloader) retryDelay(n uint, err error, _ *retry.Config) time.Duration {
	switch {
	case errors.Is(err, fetcher.ErrRateLimited):
		return d.opts.RateCooldown
	case errors.Is(err, fetcher.ErrServer):
		return d.opts.ServerCooldown
	default:
		backoff := d.opts.BackoffBase << n
		jitter := rand.N(d.opts.BackoffBase/2 + 1)
		return backoff + jitter
	}
}

// politenessDelay sleeps a randomized interval before a chapter download
// starts, independent of and additive to any retry cooldown.
func (d *Downloader) politenessDelay(ctx context.Context) {
	if d.opts.ChapterDelayMax <= 0 {
		return
	}
	delay := d.opts.ChapterDelayMin
	if window := d.opts.ChapterDelayMax - d.opts.ChapterDelayMin; window > 0 {
		delay += rand.N(window)
	}
	select {
	case <-ctx.Done():
	case <-time.After(delay):
	}
}

// chapterPath builds the final on-disk path for a chapter. The zero-padded
// sequence number keeps the lexicographic sort of the directory identical
// to chapter order, which the page-map builder depends on.
func (d *Downloader) chapterPath(dir, baseName string, ch models.ChapterRef) string {
	name := fmt.Sprintf("%s_chapter_%02d_%s.pdf", baseName, ch.Seq, common.SanitizeFilename(ch.Title))
	return filepath.Join(dir, name)
}
