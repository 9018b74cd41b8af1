// Package catalog maps numeric document ids to their display names. The
// index itself only knows ids; the catalog is consulted when results are
// shown to a person.
package catalog

import (
	"context"
	"fmt"
	"sync"

	apperrors "github.com/Adithya-Monish-Kumar-K/btree-search-engine/pkg/errors"
)

// Catalog stores document names by id.
type Catalog interface {
	Put(ctx context.Context, id uint64, name string) error
	Name(ctx context.Context, id uint64) (string, error)
	Names(ctx context.Context, ids []uint64) (map[uint64]string, error)
}

// Memory is an in-process Catalog.
type Memory struct {
	mu    sync.RWMutex
	names map[uint64]string
}

func NewMemory() *Memory {
	return &Memory{names: make(map[uint64]string)}
}

func (m *Memory) Put(_ context.Context, id uint64, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.names[id] = name
	return nil
}

func (m *Memory) Name(_ context.Context, id uint64) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	name, ok := m.names[id]
	if !ok {
		return "", fmt.Errorf("document %d: %w", id, apperrors.ErrDocumentNotFound)
	}
	return name, nil
}

// Names returns the names of the known ids; unknown ids are left out.
func (m *Memory) Names(_ context.Context, ids []uint64) (map[uint64]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[uint64]string, len(ids))
	for _, id := range ids {
		if name, ok := m.names[id]; ok {
			out[id] = name
		}
	}
	return out, nil
}

func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.names)
}
