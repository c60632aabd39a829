package cart

import (
	"context"
	"sync"

	"github.com/example/bistro/pkg/models"
)

// Store persists one serialized cart per session.
type Store interface {
	Load(ctx context.Context, sessionID string) ([]models.CartLine, error)
	Save(ctx context.Context, sessionID string, lines []models.CartLine) error
}

// MemoryStore keeps carts in process memory. Used when no Redis is
// configured; carts do not survive a restart.
type MemoryStore struct {
	mu    sync.Mutex
	carts map[string][]models.CartLine
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{carts: make(map[string][]models.CartLine)}
}

func (s *MemoryStore) Load(_ context.Context, sessionID string) ([]models.CartLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.CartLine(nil), s.carts[sessionID]...), nil
}

func (s *MemoryStore) Save(_ context.Context, sessionID string, lines []models.CartLine) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(lines) == 0 {
		delete(s.carts, sessionID)
		return nil
	}
	s.carts[sessionID] = append([]models.CartLine(nil), lines...)
	return nil
}
