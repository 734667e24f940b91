package removegroup

import (
	"context"
	"fmt"

	"github.com/potlab/ecx/internal/log"
	"github.com/potlab/ecx/internal/storage"
)

// ServiceConfig is the configuration for the remove group service.
type ServiceConfig struct {
	Repository storage.Repository
	Logger     log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Repository == nil {
		return fmt.Errorf("repository is required")
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}

	return nil
}

// Service forgets a run group locally. The remote runs are untouched.
type Service struct {
	repo   storage.Repository
	logger log.Logger
}

// NewService creates a new remove group service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		repo:   cfg.Repository,
		logger: cfg.Logger,
	}, nil
}

// Request represents the remove request parameters.
type Request struct {
	// GroupID is the run group to forget.
	GroupID string
}

// Run removes a group and its run refs from local storage.
func (s *Service) Run(ctx context.Context, req Request) error {
	if err := s.repo.DeleteGroup(ctx, req.GroupID); err != nil {
		return fmt.Errorf("could not delete group: %w", err)
	}

	s.logger.Infof("removed group %s", req.GroupID)
	return nil
}
