package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"ipofetch/internal/fetchcmd"
	"ipofetch/internal/historycmd"
	"ipofetch/internal/mapcmd"
	"ipofetch/models"
)

func main() {
	app := &cli.App{
		Name:    "ipofetch",
		Usage:   "download IPO prospectus chapters and build page maps",
		Version: models.Version,
		Commands: []*cli.Command{
			{
				Name:      "fetch",
				Usage:     "download all chapters of one or more prospectus index URLs",
				ArgsUsage: "URL [URL...]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "config",
						Value: "config.yaml",
						Usage: "path to the YAML config file",
					},
					&cli.StringFlag{
						Name:  "output-dir",
						Usage: "override the configured output directory",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "concurrent chapter downloads (capped at 3)",
					},
					&cli.BoolFlag{
						Name:  "force",
						Usage: "re-download chapters that already exist on disk",
					},
					&cli.BoolFlag{
						Name:  "no-map",
						Usage: "skip building the page map after the download",
					},
					&cli.BoolFlag{
						Name:  "quiet",
						Usage: "only log errors",
					},
				},
				Action: fetchcmd.FetchAction,
			},
			{
				Name:      "map",
				Usage:     "build the page-offset map for downloaded document directories",
				ArgsUsage: "DIR [DIR...]",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "quiet",
						Usage: "only log errors",
					},
				},
				Action: mapcmd.MapAction,
			},
			{
				Name:  "history",
				Usage: "list recent fetch runs",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "config",
						Value: "config.yaml",
						Usage: "path to the YAML config file",
					},
					&cli.StringFlag{
						Name:  "output-dir",
						Usage: "override the configured output directory",
					},
					&cli.IntFlag{
						Name:  "limit",
						Value: 20,
						Usage: "number of runs to show",
					},
				},
				Action: historycmd.HistoryAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
