package cancelgroup

import (
	"context"
	"errors"
	"fmt"

	"github.com/potlab/ecx/internal/box"
	"github.com/potlab/ecx/internal/log"
	"github.com/potlab/ecx/internal/model"
	"github.com/potlab/ecx/internal/storage"
)

// ServiceConfig is the configuration for the cancel group service.
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

// Service cancels every run of a group.
type Service struct {
	boxes  box.Registry
	repo   storage.Repository
	logger log.Logger
}

// NewService creates a new cancel group service.
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

// Request represents the cancel request parameters.
type Request struct {
	// GroupID is the run group to cancel.
	GroupID string
}

// Response is the outcome of a group cancel.
type Response struct {
	// Cancelled lists the refs whose cancel call succeeded.
	Cancelled []model.RunRef
}

// Run issues an independent cancel call per run, regardless of the run's last
// known status: local status may be stale, and boxes accept cancelling an
// already terminal run as a no-op. One run's failure never blocks the
// remaining cancel attempts; failures are reported per run in the returned
// error.
func (s *Service) Run(ctx context.Context, req Request) (*Response, error) {
	group, err := s.repo.GetGroup(ctx, req.GroupID)
	if err != nil {
		return nil, fmt.Errorf("could not get group: %w", err)
	}

	resp := &Response{}
	var runErrs []error
	for _, ref := range group.Refs {
		if err := s.cancelRun(ctx, ref); err != nil {
			runErrs = append(runErrs, &model.RunOpError{BoxID: ref.BoxID, RunID: ref.RunID, Err: err})
			continue
		}
		resp.Cancelled = append(resp.Cancelled, ref)
	}

	s.logger.Infof("cancelled group %s: %d/%d runs", group.ID, len(resp.Cancelled), len(group.Refs))
	return resp, errors.Join(runErrs...)
}

func (s *Service) cancelRun(ctx context.Context, ref model.RunRef) error {
	client, err := s.boxes.Client(ref.BoxID)
	if err != nil {
		return fmt.Errorf("could not get box client: %w", err)
	}

	res, err := client.CancelJob(ctx, ref.RunID)
	if err != nil {
		return fmt.Errorf("could not cancel run: %w", err)
	}

	s.logger.Debugf("cancelled run %s on box %s: status %s", ref.RunID, ref.BoxID, res.Status)
	return nil
}
