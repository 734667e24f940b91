package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/potlab/ecx/internal/box"
	"github.com/potlab/ecx/internal/box/httpbox"
	"github.com/potlab/ecx/internal/log"
	"github.com/potlab/ecx/internal/model"
	storageio "github.com/potlab/ecx/internal/storage/io"
)

// loadFleet reads the box fleet configuration file.
func loadFleet(ctx context.Context, path string) ([]model.BoxConfig, error) {
	repo := storageio.NewFleetYAMLRepository(os.DirFS(filepath.Dir(path)))
	boxes, err := repo.GetFleet(ctx, filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("could not load fleet config %s: %w", path, err)
	}
	return boxes, nil
}

// buildRegistry creates one HTTP client per configured box, looked up by box
// id.
func buildRegistry(boxes []model.BoxConfig, logger log.Logger) (box.Registry, error) {
	clients := make(map[string]box.Client, len(boxes))
	for _, b := range boxes {
		client, err := httpbox.NewClient(httpbox.ClientConfig{
			Box:    b,
			Logger: logger,
		})
		if err != nil {
			return nil, fmt.Errorf("could not create client for box %s: %w", b.ID, err)
		}
		clients[b.ID] = client
	}

	return box.NewStaticRegistry(clients), nil
}

// loadBatch reads the entry drafts of a batch file.
func loadBatch(ctx context.Context, path string) ([]model.EntryDraft, error) {
	repo := storageio.NewBatchYAMLRepository(os.DirFS(filepath.Dir(path)))
	entries, err := repo.GetBatch(ctx, filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("could not load batch file %s: %w", path, err)
	}
	return entries, nil
}
