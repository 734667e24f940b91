package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/potlab/ecx/internal/log"
	"github.com/potlab/ecx/internal/model"
)

// RepositoryConfig is the configuration for the memory repository.
type RepositoryConfig struct {
	Logger log.Logger
}

func (c *RepositoryConfig) defaults() error {
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.Memory"})
	return nil
}

// Repository is an in-memory implementation of storage.Repository.
type Repository struct {
	groups map[string]model.RunGroup
	mu     sync.RWMutex
	logger log.Logger
}

// NewRepository creates a new memory repository.
func NewRepository(cfg RepositoryConfig) (*Repository, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Repository{
		groups: make(map[string]model.RunGroup),
		logger: cfg.Logger,
	}, nil
}

// CreateGroup creates a new run group in the repository.
func (r *Repository) CreateGroup(ctx context.Context, g model.RunGroup) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.groups[g.ID]; ok {
		return fmt.Errorf("group with id %s: %w", g.ID, model.ErrAlreadyExists)
	}

	r.groups[g.ID] = copyGroup(g)
	r.logger.Debugf("Created group in repository: %s", g.ID)

	return nil
}

// AddRunRef appends one run ref to an existing group.
func (r *Repository) AddRunRef(ctx context.Context, ref model.RunRef) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.groups[ref.GroupID]
	if !ok {
		return fmt.Errorf("group %s: %w", ref.GroupID, model.ErrNotFound)
	}

	for _, existing := range g.Refs {
		if existing.BoxID == ref.BoxID && existing.RunID == ref.RunID {
			return fmt.Errorf("run %s on box %s: %w", ref.RunID, ref.BoxID, model.ErrAlreadyExists)
		}
	}

	g.Refs = append(g.Refs, ref)
	r.groups[ref.GroupID] = g

	return nil
}

// GetGroup retrieves a group by id.
func (r *Repository) GetGroup(ctx context.Context, id string) (*model.RunGroup, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, ok := r.groups[id]
	if !ok {
		return nil, fmt.Errorf("group %s: %w", id, model.ErrNotFound)
	}

	copied := copyGroup(g)
	return &copied, nil
}

// ListGroups returns all groups, newest first.
func (r *Repository) ListGroups(ctx context.Context) ([]model.RunGroup, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	groups := make([]model.RunGroup, 0, len(r.groups))
	for _, g := range r.groups {
		groups = append(groups, copyGroup(g))
	}

	sort.Slice(groups, func(i, j int) bool {
		if !groups[i].CreatedAt.Equal(groups[j].CreatedAt) {
			return groups[i].CreatedAt.After(groups[j].CreatedAt)
		}
		return groups[i].ID > groups[j].ID
	})

	return groups, nil
}

// DeleteGroup deletes a group.
func (r *Repository) DeleteGroup(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.groups[id]; !ok {
		return fmt.Errorf("group %s: %w", id, model.ErrNotFound)
	}

	delete(r.groups, id)
	r.logger.Debugf("Deleted group from repository: %s", id)

	return nil
}

func copyGroup(g model.RunGroup) model.RunGroup {
	copied := g
	copied.Refs = append([]model.RunRef(nil), g.Refs...)
	return copied
}
