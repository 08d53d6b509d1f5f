package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/briandowns/spinner"
	"github.com/m-mizutani/memoir/pkg/usecase/ingest"
	"github.com/urfave/cli/v3"
)

func ingestCommand() *cli.Command {
	var (
		cfg    config
		source string
		force  bool
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "source",
			Aliases:     []string{"s"},
			Usage:       "Source media directory",
			Required:    true,
			Destination: &source,
		},
		&cli.BoolFlag{
			Name:        "force",
			Aliases:     []string{"f"},
			Usage:       "Re-run ingestion even when the store is up to date",
			Destination: &force,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)
	flags = append(flags, faceFlags(&cfg)...)

	return &cli.Command{
		Name:  "ingest",
		Usage: "Annotate and index new media from a source directory",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			repo, err := cfg.newRepository()
			if err != nil {
				return err
			}

			llm, err := cfg.newLLM(ctx)
			if err != nil {
				return err
			}

			var opts []ingest.Option
			if detector := cfg.newFaceDetector(); detector != nil {
				opts = append(opts, ingest.WithFaceDetector(detector))
			}

			uc := ingest.New(repo, llm, llm, opts...)

			sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond,
				spinner.WithWriter(c.Root().ErrWriter))
			sp.Suffix = " Ingesting media..."
			sp.Start()
			out, err := uc.Run(ctx, source, force)
			sp.Stop()
			if err != nil {
				return err
			}

			fmt.Fprintf(c.Root().Writer, "Ingested: %d, Skipped: %d, Failed: %d\n",
				out.Ingested, out.Skipped, out.Failed)
			fmt.Fprintf(c.Root().Writer, "Tokens: %d prompt / %d output, cost: $%.4f\n",
				out.Usage.PromptTokens, out.Usage.OutputTokens, out.Usage.Cost)
			return nil
		},
	}
}
