package cli

import (
	"context"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/memoir/pkg/service/fusion"
	"github.com/m-mizutani/memoir/pkg/usecase/query"
	"github.com/urfave/cli/v3"
)

func queryCommand() *cli.Command {
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
		Name:      "query",
		Usage:     "Answer a question about the collection",
		ArgsUsage: "<question>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			question := c.Args().First()
			if question == "" {
				return goerr.New("question is required")
			}

			uc, err := cfg.newQueryUseCase(ctx, withFaces)
			if err != nil {
				return err
			}

			result, err := uc.Run(ctx, question, query.Mode(mode))
			if err != nil {
				return err
			}

			printResult(c, result)
			return nil
		},
	}
}

// cliQueryConfig is the shared setup of query and chat
type cliQueryConfig struct {
	config
}

func (cfg *cliQueryConfig) newQueryUseCase(ctx context.Context, withFaces bool) (*query.UseCase, error) {
	repo, err := cfg.newRepository()
	if err != nil {
		return nil, err
	}
	llm, err := cfg.newLLM(ctx)
	if err != nil {
		return nil, err
	}
	fusionOpts, err := cfg.loadOptions()
	if err != nil {
		return nil, err
	}

	opts := []query.Option{query.WithOptions(fusionOpts)}
	if withFaces {
		opts = append(opts, query.WithFaceTags())
	}
	return query.New(repo, llm, opts...), nil
}

func printResult(c *cli.Command, result *fusion.Result) {
	fmt.Fprintf(c.Root().Writer, "%s\n", result.Answer.Text)
	if len(result.Answer.MemoryIDs) > 0 {
		fmt.Fprintf(c.Root().Writer, "\nEvidence:\n")
		for _, id := range result.Answer.MemoryIDs {
			fmt.Fprintf(c.Root().Writer, "  - %s\n", id)
		}
	}
	fmt.Fprintf(c.Root().Writer, "\nTokens: %d prompt / %d output, cost: $%.4f\n",
		result.Usage.PromptTokens, result.Usage.OutputTokens, result.Usage.Cost)
}
