package cart

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/example/bistro/pkg/apperr"
	"github.com/example/bistro/pkg/config"
	"github.com/example/bistro/pkg/models"
	"github.com/example/bistro/pkg/repository"
)

// flakyStore fails saves while failSaves is set.
type flakyStore struct {
	*MemoryStore
	mu        sync.Mutex
	failSaves bool
	saves     int
}

func (s *flakyStore) Save(ctx context.Context, sessionID string, lines []models.CartLine) error {
	s.mu.Lock()
	s.saves++
	fail := s.failSaves
	s.mu.Unlock()
	if fail {
		return errors.New("store unavailable")
	}
	return s.MemoryStore.Save(ctx, sessionID, lines)
}

func (s *flakyStore) setFail(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failSaves = v
}

func newManager(t *testing.T, store Store, idle time.Duration) *Manager {
	t.Helper()
	m := NewManager(store, ManagerConfig{IdleTimeout: idle, RequestTimeout: 2 * time.Second}, zaptest.NewLogger(t))
	t.Cleanup(m.Close)
	return m
}

func TestManager_WriteThrough(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	m := newManager(t, store, 0)

	view, err := m.Add(ctx, "s1", salmon)
	require.NoError(t, err)
	assert.Equal(t, 1, view.ItemCount)

	saved, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, "Grilled Salmon", saved[0].Name)

	view, err = m.UpdateQuantity(ctx, "s1", "3", 2)
	require.NoError(t, err)
	assert.Equal(t, 3, view.ItemCount)
	assert.Equal(t, "74.97", view.Total.StringFixed(2))

	saved, _ = store.Load(ctx, "s1")
	assert.Equal(t, 3, saved[0].Quantity)
}

func TestManager_LoadsExistingCart(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Save(ctx, "s1", []models.CartLine{
		{MenuItemID: "9", Name: "Espresso", Price: coffee.Price, Quantity: 2},
	}))
	m := newManager(t, store, 0)

	view, err := m.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 2, view.ItemCount)
	assert.Equal(t, "6.50", view.Total.StringFixed(2))
}

func TestManager_SessionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	m := newManager(t, NewMemoryStore(), 0)

	_, err := m.Add(ctx, "s1", salmon)
	require.NoError(t, err)
	_, err = m.Add(ctx, "s2", coffee)
	require.NoError(t, err)

	v1, err := m.Get(ctx, "s1")
	require.NoError(t, err)
	v2, err := m.Get(ctx, "s2")
	require.NoError(t, err)
	assert.Equal(t, "3", v1.Items[0].MenuItemID)
	assert.Equal(t, "9", v2.Items[0].MenuItemID)
}

func TestManager_ConcurrentAddsAreSerialized(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	m := newManager(t, store, 0)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.Add(ctx, "s1", salmon)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	view, err := m.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 50, view.ItemCount)

	saved, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 50, saved[0].Quantity)
}

func TestManager_FailedSaveRestoresCart(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{MemoryStore: NewMemoryStore()}
	m := newManager(t, store, 0)

	_, err := m.Add(ctx, "s1", salmon)
	require.NoError(t, err)

	store.setFail(true)
	view, err := m.Add(ctx, "s1", coffee)
	assert.True(t, apperr.IsPersistence(err))
	assert.Equal(t, 1, view.ItemCount)

	store.setFail(false)
	view, err = m.Get(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, "3", view.Items[0].MenuItemID)
}

func TestManager_MutationErrorLeavesCart(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{MemoryStore: NewMemoryStore()}
	m := newManager(t, store, 0)

	_, err := m.Add(ctx, "s1", salmon)
	require.NoError(t, err)

	_, err = m.Remove(ctx, "s1", "404")
	assert.True(t, apperr.IsNotFound(err))

	view, err := m.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 1, view.ItemCount)

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Equal(t, 1, store.saves)
}

func TestManager_IdleActorRespawnsFromStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	m := newManager(t, store, 50*time.Millisecond)

	_, err := m.Add(ctx, "s1", salmon)
	require.NoError(t, err)

	time.Sleep(300 * time.Millisecond)

	view, err := m.Add(ctx, "s1", salmon)
	require.NoError(t, err)
	assert.Equal(t, 2, view.ItemCount)
}

func TestManager_ClearRemovesBlob(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	redis := repository.NewRedisRepository(&config.RedisConfig{Addr: mr.Addr()})
	t.Cleanup(func() { _ = redis.Close() })
	m := newManager(t, redis.CartBlobs(time.Hour), 0)

	_, err := m.Add(ctx, "s1", salmon)
	require.NoError(t, err)
	assert.True(t, mr.Exists("cart:s1"))

	view, err := m.Clear(ctx, "s1")
	require.NoError(t, err)
	assert.Zero(t, view.ItemCount)
	assert.False(t, mr.Exists("cart:s1"))
}

func TestManager_RequiresSession(t *testing.T) {
	_, err := newManager(t, NewMemoryStore(), 0).Get(context.Background(), "")
	assert.True(t, apperr.IsValidation(err))
}
