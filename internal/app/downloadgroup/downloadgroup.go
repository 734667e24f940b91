package downloadgroup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/potlab/ecx/internal/box"
	"github.com/potlab/ecx/internal/conventions"
	"github.com/potlab/ecx/internal/log"
	"github.com/potlab/ecx/internal/model"
	"github.com/potlab/ecx/internal/storage"
)

// ServiceConfig is the configuration for the download group service.
type ServiceConfig struct {
	Boxes      box.Registry
	Repository storage.Repository
	Logger     log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Boxes == nil {
		return fmt.Errorf("box registry is required")
	}

	if c.Repository == nil {
		return fmt.Errorf("repository is required")
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}

	return nil
}

// Service retrieves the result archives of a group, one per run.
type Service struct {
	boxes  box.Registry
	repo   storage.Repository
	logger log.Logger
}

// NewService creates a new download group service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		boxes:  cfg.Boxes,
		repo:   cfg.Repository,
		logger: cfg.Logger,
	}, nil
}

// Request represents the download request parameters.
type Request struct {
	// GroupID is the run group to download.
	GroupID string
	// OutputDir is the directory the archives are written to.
	OutputDir string
}

// Response is the outcome of a group download.
type Response struct {
	// Files are the paths of the archives written, in ref order.
	Files []string
}

// Run retrieves one result archive per run, naming each artifact
// deterministically from the group, box and run ids. Runs are independent:
// one failed download never blocks the remaining ones; failures are reported
// per run in the returned error.
func (s *Service) Run(ctx context.Context, req Request) (*Response, error) {
	group, err := s.repo.GetGroup(ctx, req.GroupID)
	if err != nil {
		return nil, fmt.Errorf("could not get group: %w", err)
	}

	outputDir := req.OutputDir
	if outputDir == "" {
		outputDir = "."
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("could not create output directory: %w", err)
	}

	resp := &Response{}
	var runErrs []error
	for _, ref := range group.Refs {
		path := filepath.Join(outputDir, conventions.ResultArchiveFile(ref.GroupID, ref.BoxID, ref.RunID))
		if err := s.downloadRun(ctx, ref, path); err != nil {
			runErrs = append(runErrs, &model.RunOpError{BoxID: ref.BoxID, RunID: ref.RunID, Err: err})
			continue
		}
		resp.Files = append(resp.Files, path)
	}

	s.logger.Infof("downloaded group %s: %d/%d archives", group.ID, len(resp.Files), len(group.Refs))
	return resp, errors.Join(runErrs...)
}

func (s *Service) downloadRun(ctx context.Context, ref model.RunRef, dstPath string) error {
	client, err := s.boxes.Client(ref.BoxID)
	if err != nil {
		return fmt.Errorf("could not get box client: %w", err)
	}

	body, err := client.DownloadResult(ctx, ref.RunID)
	if err != nil {
		return fmt.Errorf("could not download result: %w", err)
	}
	defer body.Close()

	f, err := os.Create(dstPath)
	if err != nil {
		return fmt.Errorf("creating file %s: %w", dstPath, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, body); err != nil {
		os.Remove(dstPath)
		return fmt.Errorf("writing file %s: %w", dstPath, err)
	}

	s.logger.Debugf("downloaded result of run %s on box %s to %s", ref.RunID, ref.BoxID, dstPath)
	return nil
}
