package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/potlab/ecx/internal/printer"
)

type BoxesCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	format string
}

// NewBoxesCommand returns the boxes command.
func NewBoxesCommand(rootCmd *RootCommand, app *kingpin.Application) *BoxesCommand {
	c := &BoxesCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("boxes", "List the configured box fleet.")
	c.Cmd.Flag("format", "Output format (table, json).").Default("table").EnumVar(&c.format, "table", "json")

	return c
}

func (c BoxesCommand) Name() string { return c.Cmd.FullCommand() }

func (c BoxesCommand) Run(ctx context.Context) error {
	boxes, err := loadFleet(ctx, c.rootCmd.FleetPath)
	if err != nil {
		return err
	}

	// Print output.
	var p printer.Printer
	switch c.format {
	case "json":
		p = printer.NewJSONPrinter(c.rootCmd.Stdout)
	default: // table
		p = printer.NewTablePrinter(c.rootCmd.Stdout)
	}

	if err := p.PrintBoxes(boxes); err != nil {
		return fmt.Errorf("could not print boxes: %w", err)
	}

	return nil
}
