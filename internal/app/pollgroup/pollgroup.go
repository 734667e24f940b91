package pollgroup

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/potlab/ecx/internal/box"
	"github.com/potlab/ecx/internal/log"
	"github.com/potlab/ecx/internal/model"
	"github.com/potlab/ecx/internal/storage"
)

// ServiceConfig is the configuration for the poll group service.
type ServiceConfig struct {
	Boxes      box.Registry
	Repository storage.Repository
	Logger     log.Logger
	// Now stamps the snapshot, injectable for tests.
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

// Service polls the distributed status of one run group and merges the
// per-box replies into a single snapshot. Boxes are authoritative: every
// status field is passed through as received, nothing is derived client-side.
type Service struct {
	boxes  box.Registry
	repo   storage.Repository
	logger log.Logger
	now    func() time.Time
}

// NewService creates a new poll group service.
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

// Request represents the poll request parameters.
type Request struct {
	// GroupID is the run group to poll.
	GroupID string
}

type refKey struct {
	runID string
	boxID string
}

// Run partitions the group's run refs by owning box, issues one batched
// status call per distinct box (concurrently, boxes are independent
// services), and merges the replies into one snapshot ordered like the
// original dispatch.
//
// A box that fails is reported as a model.BoxOpError without dropping the
// sibling boxes' results: the snapshot is returned alongside the joined
// error. A run a box did not report simply does not appear in this
// snapshot. Callers are expected not to start a second poll for the same
// group while one is in flight.
func (s *Service) Run(ctx context.Context, req Request) (*model.RunGroupSnapshot, error) {
	group, err := s.repo.GetGroup(ctx, req.GroupID)
	if err != nil {
		return nil, fmt.Errorf("could not get group: %w", err)
	}

	if len(group.Refs) == 0 {
		return &model.RunGroupSnapshot{GroupID: group.ID, PolledAt: s.now().UTC()}, nil
	}

	// Partition run ids by owning box, keeping first-seen box order so the
	// number of round-trips is the number of distinct boxes.
	boxIDs := make([]string, 0)
	runIDsByBox := map[string][]string{}
	for _, ref := range group.Refs {
		if _, ok := runIDsByBox[ref.BoxID]; !ok {
			boxIDs = append(boxIDs, ref.BoxID)
		}
		runIDsByBox[ref.BoxID] = append(runIDsByBox[ref.BoxID], ref.RunID)
	}

	// Fan out one batched call per box. Slots are per box, so no locking is
	// needed; a failed box must not cancel its siblings, hence no shared
	// errgroup context.
	payloadsByBox := make([][]box.JobPayload, len(boxIDs))
	errsByBox := make([]error, len(boxIDs))

	var g errgroup.Group
	for i, boxID := range boxIDs {
		i, boxID := i, boxID
		g.Go(func() error {
			client, err := s.boxes.Client(boxID)
			if err != nil {
				errsByBox[i] = &model.BoxOpError{BoxID: boxID, Err: err}
				return nil
			}

			payloads, err := client.PollJobs(ctx, runIDsByBox[boxID])
			if err != nil {
				errsByBox[i] = &model.BoxOpError{BoxID: boxID, Err: err}
				return nil
			}

			payloadsByBox[i] = payloads
			return nil
		})
	}
	_ = g.Wait()

	// Merge keyed by (runID, boxID); reply arrival order is irrelevant.
	payloadByRef := map[refKey]box.JobPayload{}
	for i, boxID := range boxIDs {
		for _, p := range payloadsByBox[i] {
			payloadByRef[refKey{runID: p.RunID, boxID: boxID}] = p
		}
	}

	snapshot := &model.RunGroupSnapshot{
		GroupID:  group.Refs[0].GroupID,
		PolledAt: s.now().UTC(),
	}

	for _, ref := range group.Refs {
		payload, ok := payloadByRef[refKey{runID: ref.RunID, boxID: ref.BoxID}]
		if !ok {
			continue
		}
		snapshot.Statuses = append(snapshot.Statuses, normalizeStatus(ref, payload))
	}
	snapshot.AllDone = model.AllTerminal(snapshot.Statuses)

	s.logger.Debugf("polled group %s: %d/%d runs reported, allDone=%t",
		group.ID, len(snapshot.Statuses), len(group.Refs), snapshot.AllDone)

	return snapshot, errors.Join(errsByBox...)
}

// normalizeStatus reconciles one heterogeneous box payload into the
// canonical status shape, recovering well/slot context from the originating
// run ref since box replies do not carry it.
func normalizeStatus(ref model.RunRef, p box.JobPayload) model.RunStatus {
	state := model.RunState(strings.ToLower(strings.TrimSpace(p.Status)))
	if state == "" {
		state = model.RunStateQueued
	}

	currentMode := p.CurrentMode
	if currentMode == "" {
		// Pre multi-mode boxes only report the single-mode field.
		currentMode = p.LegacyMode
	}

	progress, _ := coerceFloat(p.ProgressPct)

	var remainingS *float64
	if v, ok := coerceFloat(p.RemainingS); ok {
		remainingS = &v
	}

	return model.RunStatus{
		RunID:          p.RunID,
		BoxID:          ref.BoxID,
		State:          state,
		StartedAt:      p.StartedAt,
		EndedAt:        p.EndedAt,
		ProgressPct:    progress,
		RemainingS:     remainingS,
		CurrentMode:    currentMode,
		RemainingModes: coerceStringSlice(p.RemainingModes),
		ErrorMessage:   p.Message,
		WellID:         ref.WellID,
		Slot:           ref.Slot,
	}
}

// coerceFloat extracts a number from whatever shape the box sent it in.
func coerceFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		var f float64
		if _, err := fmt.Sscanf(strings.TrimSpace(n), "%g", &f); err == nil {
			return f, true
		}
		return 0, false
	default:
		return 0, false
	}
}

// coerceStringSlice extracts a mode token sequence, defaulting to empty when
// the field is missing or not a sequence.
func coerceStringSlice(v any) []string {
	switch s := v.(type) {
	case []string:
		return append([]string{}, s...)
	case []any:
		tokens := make([]string, 0, len(s))
		for _, item := range s {
			if token, ok := item.(string); ok {
				tokens = append(tokens, token)
			}
		}
		return tokens
	default:
		return []string{}
	}
}
