package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/alecthomas/kingpin/v2"

	"github.com/potlab/ecx/internal/app/pollgroup"
	"github.com/potlab/ecx/internal/printer"
	"github.com/potlab/ecx/internal/storage/sqlite"
)

type StatusCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	groupID  string
	watch    bool
	interval time.Duration
	format   string
}

// NewStatusCommand returns the status command.
func NewStatusCommand(rootCmd *RootCommand, app *kingpin.Application) *StatusCommand {
	c := &StatusCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("status", "Poll the status of a run group across its boxes.")
	c.Cmd.Arg("group-id", "Run group id.").Required().StringVar(&c.groupID)
	c.Cmd.Flag("watch", "Keep polling until every run is terminal.").Short('w').BoolVar(&c.watch)
	c.Cmd.Flag("interval", "Poll interval when watching.").Default("5s").DurationVar(&c.interval)
	c.Cmd.Flag("format", "Output format (table, json).").Default("table").EnumVar(&c.format, "table", "json")

	return c
}

func (c StatusCommand) Name() string { return c.Cmd.FullCommand() }

func (c StatusCommand) Run(ctx context.Context) error {
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

	// Create poll service.
	svc, err := pollgroup.NewService(pollgroup.ServiceConfig{
		Boxes:      registry,
		Repository: repo,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	var p printer.Printer
	switch c.format {
	case "json":
		p = printer.NewJSONPrinter(c.rootCmd.Stdout)
	default: // table
		p = printer.NewTablePrinter(c.rootCmd.Stdout)
	}

	// One poll at a time for a given group: the watch loop below is the only
	// in-flight poll of this process.
	for {
		snapshot, err := svc.Run(ctx, pollgroup.Request{GroupID: c.groupID})
		if err != nil {
			if snapshot == nil {
				return fmt.Errorf("could not poll group: %w", err)
			}
			// Some boxes failed, print what the rest reported.
			logger.Warningf("partial poll of group %s: %v", c.groupID, err)
		}

		if err := p.PrintSnapshot(*snapshot); err != nil {
			return fmt.Errorf("could not print snapshot: %w", err)
		}

		if !c.watch || snapshot.AllDone {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.interval):
		}
	}
}
