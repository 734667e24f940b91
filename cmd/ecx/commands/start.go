package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/potlab/ecx/internal/app/startgroup"
	"github.com/potlab/ecx/internal/printer"
	"github.com/potlab/ecx/internal/storage/sqlite"
)

type StartCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	batchFile      string
	experimentName string
	subdir         string
	format         string
}

// NewStartCommand returns the start command.
func NewStartCommand(rootCmd *RootCommand, app *kingpin.Application) *StartCommand {
	c := &StartCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("start", "Dispatch a batch of measurement entries as one run group.")
	c.Cmd.Flag("file", "Path to the batch YAML file.").Short('f').Required().StringVar(&c.batchFile)
	c.Cmd.Flag("name", "Experiment name.").Short('n').StringVar(&c.experimentName)
	c.Cmd.Flag("subdir", "Result subdirectory on the boxes.").StringVar(&c.subdir)
	c.Cmd.Flag("format", "Output format (table, json).").Default("table").EnumVar(&c.format, "table", "json")

	return c
}

func (c StartCommand) Name() string { return c.Cmd.FullCommand() }

func (c StartCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	// Load batch entries and box fleet.
	entries, err := loadBatch(ctx, c.batchFile)
	if err != nil {
		return err
	}

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

	// Create start service.
	svc, err := startgroup.NewService(startgroup.ServiceConfig{
		Boxes:      registry,
		Repository: repo,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	// Execute start.
	resp, err := svc.Run(ctx, startgroup.Request{
		ExperimentName: c.experimentName,
		Subdir:         c.subdir,
		Entries:        entries,
	})
	if err != nil {
		// Jobs dispatched before the failure stay running on their boxes;
		// their refs are persisted and the partial group stays pollable.
		if resp != nil && resp.Group != nil && len(resp.Group.Refs) > 0 {
			logger.Warningf("group %s partially dispatched: %d runs started before the failure", resp.Group.ID, len(resp.Group.Refs))
		}
		return fmt.Errorf("could not dispatch group: %w", err)
	}

	// Print output.
	var p printer.Printer
	switch c.format {
	case "json":
		p = printer.NewJSONPrinter(c.rootCmd.Stdout)
	default: // table
		p = printer.NewTablePrinter(c.rootCmd.Stdout)
	}

	if err := p.PrintRunRefs(resp.Group.Refs); err != nil {
		return fmt.Errorf("could not print run refs: %w", err)
	}

	return nil
}
