package cli

import (
	"context"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/memoir/pkg/usecase/face"
	"github.com/urfave/cli/v3"
)

func facesCommand() *cli.Command {
	return &cli.Command{
		Name:  "faces",
		Usage: "Manage face identity clusters",
		Commands: []*cli.Command{
			facesListCommand(),
			facesRenameCommand(),
			facesDeleteCommand(),
		},
	}
}

func facesListCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:  "list",
		Usage: "List face clusters",
		Flags: globalFlags(&cfg),
		Action: func(ctx context.Context, c *cli.Command) error {
			repo, err := cfg.newRepository()
			if err != nil {
				return err
			}

			clusters, err := face.New(repo).List(ctx)
			if err != nil {
				return err
			}

			for _, cl := range clusters {
				fmt.Fprintf(c.Root().Writer, "%s: %d faces in %d memories\n",
					cl.Name, len(cl.Faces), len(cl.MemoryIDs))
			}
			return nil
		},
	}
}

func facesRenameCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:      "rename",
		Usage:     "Rename a face cluster (merges when the new name exists)",
		ArgsUsage: "<old-name> <new-name>",
		Flags:     globalFlags(&cfg),
		Action: func(ctx context.Context, c *cli.Command) error {
			oldName, newName := c.Args().Get(0), c.Args().Get(1)
			if oldName == "" || newName == "" {
				return goerr.New("old and new cluster names are required")
			}

			repo, err := cfg.newRepository()
			if err != nil {
				return err
			}
			return face.New(repo).Rename(ctx, oldName, newName)
		},
	}
}

func facesDeleteCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:      "delete",
		Usage:     "Delete a face cluster and its tags",
		ArgsUsage: "<name>",
		Flags:     globalFlags(&cfg),
		Action: func(ctx context.Context, c *cli.Command) error {
			name := c.Args().First()
			if name == "" {
				return goerr.New("cluster name is required")
			}

			repo, err := cfg.newRepository()
			if err != nil {
				return err
			}
			return face.New(repo).Delete(ctx, name)
		},
	}
}
