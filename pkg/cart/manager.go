package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"

	"github.com/example/bistro/pkg/apperr"
	"github.com/example/bistro/pkg/models"
)

const spawnAttempts = 3

// Messages handled by a session actor.
type (
	mutate struct {
		ctx   context.Context
		apply func(*Cart) error
	}
	snapshot struct {
		ctx context.Context
	}
	reply struct {
		view View
		err  error
	}
)

// sessionActor owns one cart. Its mailbox runs load, mutate and save one
// request at a time, so rapid updates from a session never interleave.
type sessionActor struct {
	sessionID string
	store     Store
	idle      time.Duration
	logger    *zap.Logger

	cart *Cart
}

func (a *sessionActor) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		if a.idle > 0 {
			ctx.SetReceiveTimeout(a.idle)
		}
		a.logger.Debug("Cart actor started")

	case *actor.ReceiveTimeout:
		a.logger.Debug("Cart actor idle, stopping")
		ctx.Stop(ctx.Self())

	case *snapshot:
		if err := a.load(msg.ctx); err != nil {
			ctx.Respond(&reply{err: err})
			return
		}
		ctx.Respond(&reply{view: a.cart.View()})

	case *mutate:
		ctx.Respond(a.apply(msg))

	case *actor.Stopped:
		a.logger.Debug("Cart actor stopped")
	}
}

func (a *sessionActor) load(ctx context.Context) error {
	if a.cart != nil {
		return nil
	}
	lines, err := a.store.Load(ctx, a.sessionID)
	if err != nil {
		a.logger.Error("Failed to load cart", zap.Error(err))
		return apperr.Persistence("load cart", err)
	}
	a.cart = New(lines)
	return nil
}

// apply runs one mutation and writes the whole cart through to the store.
// When the write fails the cart is put back as it was.
func (a *sessionActor) apply(msg *mutate) *reply {
	if err := a.load(msg.ctx); err != nil {
		return &reply{err: err}
	}

	previous := a.cart.Lines()
	if err := msg.apply(a.cart); err != nil {
		a.cart = New(previous)
		return &reply{view: a.cart.View(), err: err}
	}

	if err := a.store.Save(msg.ctx, a.sessionID, a.cart.Lines()); err != nil {
		a.cart = New(previous)
		a.logger.Error("Failed to save cart", zap.Error(err))
		return &reply{view: a.cart.View(), err: apperr.Persistence("save cart", err)}
	}
	return &reply{view: a.cart.View()}
}

type ManagerConfig struct {
	// IdleTimeout stops a session actor after this long without requests.
	// Zero keeps actors until Close.
	IdleTimeout    time.Duration
	RequestTimeout time.Duration
}

// Manager routes cart requests to one actor per session, spawning actors
// on demand.
type Manager struct {
	system *actor.ActorSystem
	store  Store
	cfg    ManagerConfig
	logger *zap.Logger
}

func NewManager(store Store, cfg ManagerConfig, logger *zap.Logger) *Manager {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 3 * time.Second
	}
	return &Manager{
		system: actor.NewActorSystem(),
		store:  store,
		cfg:    cfg,
		logger: logger.Named("cart"),
	}
}

func (m *Manager) props(sessionID string) *actor.Props {
	return actor.PropsFromProducer(func() actor.Actor {
		return &sessionActor{
			sessionID: sessionID,
			store:     m.store,
			idle:      m.cfg.IdleTimeout,
			logger:    m.logger.With(zap.String("session_id", sessionID)),
		}
	})
}

func (m *Manager) request(ctx context.Context, sessionID string, msg interface{}) (View, error) {
	if sessionID == "" {
		return View{}, apperr.Invalid("session_id", "is required")
	}

	timeout := m.cfg.RequestTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if d := time.Until(deadline); d < timeout {
			timeout = d
		}
	}
	if timeout <= 0 {
		return View{}, context.DeadlineExceeded
	}

	var lastErr error
	for attempt := 0; attempt < spawnAttempts; attempt++ {
		pid, err := m.system.Root.SpawnNamed(m.props(sessionID), "cart-"+sessionID)
		if err != nil && !errors.Is(err, actor.ErrNameExists) {
			return View{}, fmt.Errorf("failed to spawn cart actor: %w", err)
		}

		result, err := m.system.Root.RequestFuture(pid, msg, timeout).Result()
		if errors.Is(err, actor.ErrDeadLetter) {
			// The actor stopped between lookup and delivery.
			lastErr = err
			time.Sleep(time.Duration(attempt+1) * 10 * time.Millisecond)
			continue
		}
		if err != nil {
			return View{}, fmt.Errorf("cart %s: %w", sessionID, err)
		}

		r, ok := result.(*reply)
		if !ok {
			return View{}, fmt.Errorf("cart %s: unexpected reply %T", sessionID, result)
		}
		return r.view, r.err
	}
	return View{}, fmt.Errorf("cart %s: %w", sessionID, lastErr)
}

func (m *Manager) mutate(ctx context.Context, sessionID string, apply func(*Cart) error) (View, error) {
	return m.request(ctx, sessionID, &mutate{ctx: ctx, apply: apply})
}

// Get returns the current cart for a session.
func (m *Manager) Get(ctx context.Context, sessionID string) (View, error) {
	return m.request(ctx, sessionID, &snapshot{ctx: ctx})
}

func (m *Manager) Add(ctx context.Context, sessionID string, item *models.MenuItem) (View, error) {
	return m.mutate(ctx, sessionID, func(c *Cart) error {
		c.Add(item)
		return nil
	})
}

func (m *Manager) UpdateQuantity(ctx context.Context, sessionID, menuItemID string, delta int) (View, error) {
	return m.mutate(ctx, sessionID, func(c *Cart) error {
		return c.UpdateQuantity(menuItemID, delta)
	})
}

func (m *Manager) Remove(ctx context.Context, sessionID, menuItemID string) (View, error) {
	return m.mutate(ctx, sessionID, func(c *Cart) error {
		return c.Remove(menuItemID)
	})
}

func (m *Manager) Clear(ctx context.Context, sessionID string) (View, error) {
	return m.mutate(ctx, sessionID, func(c *Cart) error {
		c.Clear()
		return nil
	})
}

// Subtract removes the given lines in a single mutation, leaving anything
// added after they were read.
func (m *Manager) Subtract(ctx context.Context, sessionID string, lines []models.CartLine) (View, error) {
	return m.mutate(ctx, sessionID, func(c *Cart) error {
		c.Subtract(lines)
		return nil
	})
}

// Close stops every session actor.
func (m *Manager) Close() {
	m.system.Shutdown()
}
