package startgroup

import (
	"context"
	"fmt"
	"time"

	"github.com/potlab/ecx/internal/box"
	"github.com/potlab/ecx/internal/log"
	"github.com/potlab/ecx/internal/model"
	"github.com/potlab/ecx/internal/storage"
)

// ServiceConfig is the configuration for the start group service.
type ServiceConfig struct {
	Boxes      box.Registry
	Repository storage.Repository
	Logger     log.Logger
	// Now is the clock used for group identity, injectable for tests.
	Now func() time.Time
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

	if c.Now == nil {
		c.Now = time.Now
	}

	return nil
}

// Service dispatches a batch of entries as one run group: one job per entry
// on the entry's box, all sharing one group id.
type Service struct {
	boxes  box.Registry
	repo   storage.Repository
	logger log.Logger
	now    func() time.Time
}

// NewService creates a new start group service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		boxes:  cfg.Boxes,
		repo:   cfg.Repository,
		logger: cfg.Logger,
		now:    cfg.Now,
	}, nil
}

// Request represents the start group request parameters.
type Request struct {
	// ExperimentName names the experiment; blank falls back to a placeholder.
	ExperimentName string
	// Subdir is the optional result subdirectory on the boxes.
	Subdir string
	// Entries are the operator's drafts, dispatched in order.
	Entries []model.EntryDraft
}

// Response is the outcome of a dispatch.
type Response struct {
	Group *model.RunGroup
}

// Run builds the start command and dispatches one job per entry, in entry
// order. Each entry is an independent transaction against its box: a dispatch
// failure surfaces immediately and aborts the remaining entries, but jobs
// already started stay running and their refs stay persisted, so the partial
// group remains pollable and cancellable. No automatic compensation.
func (s *Service) Run(ctx context.Context, req Request) (*Response, error) {
	cmd, err := model.BuildStartGroupCommand(s.now, req.ExperimentName, req.Subdir, req.Entries)
	if err != nil {
		return nil, fmt.Errorf("could not build start command: %w", err)
	}

	s.logger.Infof("dispatching group %s (%d entries)", cmd.GroupID, len(cmd.Entries))

	group := model.RunGroup{
		ID:             cmd.GroupID,
		ExperimentName: cmd.ExperimentName,
		Subdir:         cmd.Subdir,
		ClientDateTime: cmd.ClientDateTime,
		CreatedAt:      s.now().UTC(),
	}

	// The group row is written before any dispatch so a mid-batch failure
	// still leaves the already started subset queryable.
	if err := s.repo.CreateGroup(ctx, group); err != nil {
		return nil, fmt.Errorf("could not persist group: %w", err)
	}

	for i, entry := range cmd.Entries {
		ref, err := s.dispatchEntry(ctx, cmd, entry)
		if err != nil {
			return &Response{Group: &group}, fmt.Errorf("entry %d (box %s, slot %s): %w", i, entry.BoxID, entry.Slot, err)
		}

		if err := s.repo.AddRunRef(ctx, *ref); err != nil {
			return &Response{Group: &group}, fmt.Errorf("could not persist run ref: %w", err)
		}
		group.Refs = append(group.Refs, *ref)

		s.logger.Debugf("dispatched entry %d: run %s on box %s", i, ref.RunID, ref.BoxID)
	}

	s.logger.Infof("dispatched group %s: %d runs", group.ID, len(group.Refs))
	return &Response{Group: &group}, nil
}

func (s *Service) dispatchEntry(ctx context.Context, cmd *model.StartGroupCommand, entry model.EntryDraft) (*model.RunRef, error) {
	client, err := s.boxes.Client(entry.BoxID)
	if err != nil {
		return nil, fmt.Errorf("could not get box client: %w", err)
	}

	runID, err := client.StartJob(ctx, box.StartJobRequest{
		GroupID:        cmd.GroupID,
		Slot:           entry.Slot,
		WellID:         entry.WellID,
		Modes:          entry.Modes,
		ParamsByMode:   entry.ParamsByMode,
		ExperimentName: cmd.ExperimentName,
		Subdir:         cmd.Subdir,
		ClientDateTime: cmd.ClientDateTime,
		GeneratePlots:  true,
	})
	if err != nil {
		return nil, fmt.Errorf("could not start job: %w", err)
	}

	return &model.RunRef{
		GroupID: cmd.GroupID,
		BoxID:   entry.BoxID,
		RunID:   runID,
		WellID:  entry.WellID,
		Slot:    entry.Slot,
	}, nil
}
