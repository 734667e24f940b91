package storage

import (
	"context"

	"github.com/potlab/ecx/internal/model"
)

// Repository is the interface for run group bookkeeping persistence. Only
// group identity and run refs are stored; run status is always fetched fresh
// from the boxes.
type Repository interface {
	CreateGroup(ctx context.Context, g model.RunGroup) error
	// AddRunRef appends one run ref to an existing group, preserving
	// insertion order.
	AddRunRef(ctx context.Context, ref model.RunRef) error
	GetGroup(ctx context.Context, id string) (*model.RunGroup, error)
	ListGroups(ctx context.Context) ([]model.RunGroup, error)
	DeleteGroup(ctx context.Context, id string) error
}
