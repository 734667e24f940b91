package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/potlab/ecx/internal/app/downloadgroup"
	"github.com/potlab/ecx/internal/storage/sqlite"
)

type DownloadCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	groupID   string
	outputDir string
}

// NewDownloadCommand returns the download command.
func NewDownloadCommand(rootCmd *RootCommand, app *kingpin.Application) *DownloadCommand {
	c := &DownloadCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("download", "Download the result archives of a run group.")
	c.Cmd.Arg("group-id", "Run group id.").Required().StringVar(&c.groupID)
	c.Cmd.Flag("output", "Directory to write the archives to.").Short('o').Default(".").StringVar(&c.outputDir)

	return c
}

func (c DownloadCommand) Name() string { return c.Cmd.FullCommand() }

func (c DownloadCommand) Run(ctx context.Context) error {
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

	// Create download service.
	svc, err := downloadgroup.NewService(downloadgroup.ServiceConfig{
		Boxes:      registry,
		Repository: repo,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	// Execute download.
	resp, err := svc.Run(ctx, downloadgroup.Request{
		GroupID:   c.groupID,
		OutputDir: c.outputDir,
	})
	if err != nil {
		if resp != nil && len(resp.Files) > 0 {
			logger.Warningf("downloaded %d archives before failures: %v", len(resp.Files), err)
		}
		return fmt.Errorf("could not download group: %w", err)
	}

	for _, f := range resp.Files {
		fmt.Fprintln(c.rootCmd.Stdout, f)
	}

	return nil
}
