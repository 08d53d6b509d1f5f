package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/chzyer/readline"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/memoir/pkg/usecase/query"
	"github.com/urfave/cli/v3"
)

func chatCommand() *cli.Command {
	var (
		cfg       cliQueryConfig
		mode      string
		withFaces bool
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "mode",
			Aliases:     []string{"m"},
			Usage:       "Retrieval mode (memory or rag)",
			Value:       string(query.ModeMemory),
			Destination: &mode,
		},
		&cli.BoolFlag{
			Name:        "faces",
			Usage:       "Use face tags as a retrieval signal",
			Destination: &withFaces,
		},
	}
	flags = append(flags, globalFlags(&cfg.config)...)
	flags = append(flags, llmFlags(&cfg.config)...)

	return &cli.Command{
		Name:  "chat",
		Usage: "Interactive question loop over the collection",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			uc, err := cfg.newQueryUseCase(ctx, withFaces)
			if err != nil {
				return err
			}

			rl, err := readline.New("memoir> ")
			if err != nil {
				return goerr.Wrap(err, "failed to initialize prompt")
			}
			defer rl.Close()

			fmt.Fprintf(c.Root().Writer, "Ask about your memories. Type 'exit' to quit.\n")

			for {
				line, err := rl.Readline()
				if err != nil {
					if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
						break
					}
					return goerr.Wrap(err, "failed to read input")
				}

				if line == "exit" {
					break
				}
				if line == "" {
					continue
				}

				result, err := uc.Run(ctx, line, query.Mode(mode))
				if err != nil {
					fmt.Fprintf(c.Root().ErrWriter, "error: %s\n", err)
					continue
				}
				printResult(c, result)
			}

			return nil
		},
	}
}
