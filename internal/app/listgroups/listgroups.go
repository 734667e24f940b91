package listgroups

import (
	"context"
	"fmt"

	"github.com/potlab/ecx/internal/log"
	"github.com/potlab/ecx/internal/model"
	"github.com/potlab/ecx/internal/storage"
)

// ServiceConfig is the configuration for the list groups service.
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

// Service lists the locally known run groups.
type Service struct {
	repo   storage.Repository
	logger log.Logger
}

// NewService creates a new list groups service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		repo:   cfg.Repository,
		logger: cfg.Logger,
	}, nil
}

// Request represents the list request parameters.
type Request struct{}

// Run returns all locally known groups, newest first.
func (s *Service) Run(ctx context.Context, req Request) ([]model.RunGroup, error) {
	groups, err := s.repo.ListGroups(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not list groups: %w", err)
	}

	s.logger.Debugf("listed %d groups", len(groups))
	return groups, nil
}
