// Package historycmd implements the history command: list recent fetch
// runs from the run database.
package historycmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"ipofetch/models"
	"ipofetch/pkg/db"
)

func HistoryAction(c *cli.Context) error {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	cfg, err := models.LoadConfig(c.String("config"))
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(2)
	}
	if c.IsSet("output-dir") {
		cfg.OutputDir = c.String("output-dir")
	}

	database, err := db.Open(filepath.Join(cfg.OutputDir, db.DefaultDBName))
	if err != nil {
		logger.Error("failed to open history database", "error", err)
		os.Exit(2)
	}
	defer database.Close()

	runs, err := database.RecentRuns(c.Int("limit"))
	if err != nil {
		logger.Error("failed to query run history", "error", err)
		os.Exit(2)
	}

	if len(runs) == 0 {
		fmt.Println("No fetch runs recorded yet")
		return nil
	}

	fmt.Printf("%-6s %-12s %-30s %-20s %-10s %s\n", "RUN", "DOCUMENT", "COMPANY", "STARTED", "CHAPTERS", "COMPLETE")
	for _, r := range runs {
		company := r.CompanyName
		if len(company) > 30 {
			company = company[:27] + "..."
		}
		fmt.Printf("%-6d %-12s %-30s %-20s %4d/%-5d %v\n",
			r.RunID, r.UpstreamID, company, r.StartedAt.Format("2006-01-02 15:04:05"),
			r.ChaptersFetched, r.ChaptersTotal, r.Complete)
	}
	return nil
}
