package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/m-mizutani/memoir/pkg/adapter"
	"github.com/m-mizutani/memoir/pkg/usecase/dataset"
	"github.com/urfave/cli/v3"
)

func datasetCommand() *cli.Command {
	return &cli.Command{
		Name:  "dataset",
		Usage: "Manage local copies of media datasets",
		Commands: []*cli.Command{
			datasetDownloadCommand(),
		},
	}
}

func datasetDownloadCommand() *cli.Command {
	var (
		manifestPath string
		dest         string
		concurrency  int64
	)

	return &cli.Command{
		Name:  "download",
		Usage: "Download a dataset described by a manifest",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "manifest",
				Aliases:     []string{"m"},
				Usage:       "Path to dataset manifest (YAML)",
				Required:    true,
				Destination: &manifestPath,
			},
			&cli.StringFlag{
				Name:        "dest",
				Aliases:     []string{"d"},
				Usage:       "Destination directory for downloaded media",
				Value:       "dataset",
				Destination: &dest,
			},
			&cli.IntFlag{
				Name:        "concurrency",
				Usage:       "Parallel download workers",
				Destination: &concurrency,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			manifest, err := dataset.LoadManifest(manifestPath)
			if err != nil {
				return err
			}

			fetchers := []adapter.Fetcher{adapter.NewHTTPFetcher()}
			if manifestNeedsGCS(manifest) {
				gcs, err := adapter.NewGCSFetcher(ctx)
				if err != nil {
					return err
				}
				fetchers = append(fetchers, gcs)
			}

			uc := dataset.New(fetchers, dataset.WithConcurrency(int(concurrency)))
			out, err := uc.Run(ctx, manifest, dest)
			if err != nil {
				return err
			}

			fmt.Fprintf(c.Root().Writer, "Downloaded: %d, Skipped: %d, Failed: %d\n",
				out.Downloaded, out.Skipped, out.Failed)
			return nil
		},
	}
}

// manifestNeedsGCS avoids requiring cloud credentials for plain HTTP datasets
func manifestNeedsGCS(m *dataset.Manifest) bool {
	for _, item := range m.Items {
		if strings.HasPrefix(item.URL, "gs://") {
			return true
		}
	}
	return false
}
