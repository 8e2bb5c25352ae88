// Package mapcmd implements the map command: build the page-offset map
// for an already-downloaded document directory.
package mapcmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"ipofetch/pkg/pagemap"
)

func MapAction(c *cli.Context) error {
	logLevel := slog.LevelInfo
	if c.Bool("quiet") {
		logLevel = slog.LevelError
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	if c.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Error: No document directory provided")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Usage:")
		fmt.Fprintln(os.Stderr, "  ipofetch map ./prospectus/acme_corp_10123456")
		os.Exit(1)
	}

	builder := &pagemap.Builder{}
	var failures int
	for _, dir := range c.Args().Slice() {
		path, err := builder.BuildAndWrite(dir)
		if err != nil {
			logger.Error("page map build failed", "dir", dir, "error", err)
			failures++
			continue
		}
		fmt.Printf("Page map written: %s\n", path)
	}

	if failures > 0 {
		return fmt.Errorf("%d of %d directories failed", failures, c.NArg())
	}
	return nil
}
