package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/potlab/ecx/internal/app/removegroup"
	"github.com/potlab/ecx/internal/storage/sqlite"
)

type RmCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	groupID string
}

// NewRmCommand returns the rm command.
func NewRmCommand(rootCmd *RootCommand, app *kingpin.Application) *RmCommand {
	c := &RmCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("rm", "Forget a run group locally (remote runs are untouched).")
	c.Cmd.Arg("group-id", "Run group id.").Required().StringVar(&c.groupID)

	return c
}

func (c RmCommand) Name() string { return c.Cmd.FullCommand() }

func (c RmCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	// Initialize storage (SQLite).
	repo, err := sqlite.NewRepository(ctx, sqlite.RepositoryConfig{
		DBPath: c.rootCmd.DBPath,
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("could not create repository: %w", err)
	}

	// Create remove service.
	svc, err := removegroup.NewService(removegroup.ServiceConfig{
		Repository: repo,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	// Execute remove.
	if err := svc.Run(ctx, removegroup.Request{GroupID: c.groupID}); err != nil {
		return fmt.Errorf("could not remove group: %w", err)
	}

	fmt.Fprintf(c.rootCmd.Stdout, "Removed group %s\n", c.groupID)
	return nil
}
