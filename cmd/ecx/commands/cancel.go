package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/potlab/ecx/internal/app/cancelgroup"
	"github.com/potlab/ecx/internal/storage/sqlite"
)

type CancelCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	groupID string
}

// NewCancelCommand returns the cancel command.
func NewCancelCommand(rootCmd *RootCommand, app *kingpin.Application) *CancelCommand {
	c := &CancelCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("cancel", "Cancel every run of a run group.")
	c.Cmd.Arg("group-id", "Run group id.").Required().StringVar(&c.groupID)

	return c
}

func (c CancelCommand) Name() string { return c.Cmd.FullCommand() }

func (c CancelCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	boxes, err := loadFleet(ctx, c.rootCmd.FleetPath)
	if err != nil {
		return err
	}

	registry, err := buildRegistry(boxes, logger)
	if err != nil {
		return err
	}

	// Initialize storage (SQLite).
	repo, err := sqlite.NewRepository(ctx, sqlite.RepositoryConfig{
		DBPath: c.rootCmd.DBPath,
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("could not create repository: %w", err)
	}

	// Create cancel service.
	svc, err := cancelgroup.NewService(cancelgroup.ServiceConfig{
		Boxes:      registry,
		Repository: repo,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	// Execute cancel.
	resp, err := svc.Run(ctx, cancelgroup.Request{GroupID: c.groupID})
	if err != nil {
		if resp != nil && len(resp.Cancelled) > 0 {
			logger.Warningf("cancelled %d runs before failures: %v", len(resp.Cancelled), err)
		}
		return fmt.Errorf("could not cancel group: %w", err)
	}

	fmt.Fprintf(c.rootCmd.Stdout, "Cancelled %d runs of group %s\n", len(resp.Cancelled), c.groupID)
	return nil
}
