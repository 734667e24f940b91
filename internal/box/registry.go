package box

import (
	"fmt"
	"sort"

	"github.com/potlab/ecx/internal/model"
)

// Registry looks up the client of a configured box by its id. There is no
// single global client: every box is an independent capability with its own
// address and credential.
type Registry interface {
	Client(boxID string) (Client, error)
	BoxIDs() []string
}

// StaticRegistry is a Registry over a fixed set of clients, built from the
// fleet configuration at startup.
type StaticRegistry struct {
	clients map[string]Client
}

// NewStaticRegistry creates a registry from a box id to client mapping.
func NewStaticRegistry(clients map[string]Client) *StaticRegistry {
	copied := make(map[string]Client, len(clients))
	for id, c := range clients {
		copied[id] = c
	}
	return &StaticRegistry{clients: copied}
}

// Client returns the client for a box id.
func (r *StaticRegistry) Client(boxID string) (Client, error) {
	c, ok := r.clients[boxID]
	if !ok {
		return nil, fmt.Errorf("box %s: %w", boxID, model.ErrBoxNotConfigured)
	}
	return c, nil
}

// BoxIDs returns the configured box ids, sorted.
func (r *StaticRegistry) BoxIDs() []string {
	ids := make([]string, 0, len(r.clients))
	for id := range r.clients {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
