// Package order implements order placement and the order status lifecycle.
package order

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/example/bistro/pkg/apperr"
	"github.com/example/bistro/pkg/events"
	"github.com/example/bistro/pkg/models"
)

const auditService = "order-service"

// ErrAuditDisabled is returned by AuditTrail when no audit log is configured.
var ErrAuditDisabled = errors.New("audit log is not configured")

// Store is the durable order repository.
type Store interface {
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id string) (*models.Order, error)
	List(ctx context.Context, status models.OrderStatus) ([]models.Order, error)
	Update(ctx context.Context, id string, mutate func(*models.Order) error) (*models.Order, error)
	Delete(ctx context.Context, id string) error
}

// Catalog is the part of the menu the service reads when repricing.
type Catalog interface {
	GetByID(ctx context.Context, id string) (*models.MenuItem, error)
}

type Cache interface {
	Get(ctx context.Context, id string) (*models.Order, bool, error)
	Set(ctx context.Context, order *models.Order) error
	Invalidate(ctx context.Context, id string) error
}

type AuditLog interface {
	CreateAuditLog(ctx context.Context, entry *models.AuditEntry) error
	GetAuditLogs(ctx context.Context, orderID string, limit int64) ([]*models.AuditEntry, error)
}

type Publisher interface {
	Publish(ctx context.Context, evt events.OrderEvent) error
}

type Option func(*Service)

func WithCache(c Cache) Option             { return func(s *Service) { s.cache = c } }
func WithAudit(a AuditLog) Option          { return func(s *Service) { s.audit = a } }
func WithPublisher(p Publisher) Option     { return func(s *Service) { s.publisher = p } }
func WithPricePolicy(p PricePolicy) Option { return func(s *Service) { s.pricing = p } }
func WithTransitions(t Transitions) Option { return func(s *Service) { s.transitions = t } }
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Service places orders and moves them through their lifecycle. The
// durable write is the only step that can fail an operation; cache,
// event and audit side effects run after commit and are logged on error.
type Service struct {
	store       Store
	catalog     Catalog
	cache       Cache
	audit       AuditLog
	publisher   Publisher
	pricing     PricePolicy
	transitions Transitions
	now         func() time.Time
	logger      *zap.Logger

	gens    generations
	auditWG sync.WaitGroup
}

func NewService(store Store, catalog Catalog, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		store:       store,
		catalog:     catalog,
		pricing:     PriceTrust,
		transitions: Permissive(),
		now:         time.Now,
		logger:      logger.Named("order-service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateOrder validates the request, snapshots every line and stores the
// order with status pending. The total is computed here from the line
// snapshots; no caller-supplied total is accepted.
func (s *Service) CreateOrder(ctx context.Context, customer Customer, lines []LineInput) (*models.Order, error) {
	customer = customer.normalized()
	lines = append([]LineInput(nil), lines...)

	violations := validateCustomer(customer)
	violations = append(violations, validateLines(lines)...)
	if len(violations) > 0 {
		s.logger.Info("Order rejected", zap.Int("violations", len(violations)))
		return nil, apperr.Validation(violations...)
	}

	catalogViolations, err := s.applyPricePolicy(ctx, lines)
	if err != nil {
		s.logger.Error("Catalog lookup failed", zap.Error(err))
		return nil, err
	}
	if len(catalogViolations) > 0 {
		s.logger.Info("Order rejected by price policy",
			zap.String("policy", string(s.pricing)),
			zap.Int("violations", len(catalogViolations)))
		return nil, apperr.Validation(catalogViolations...)
	}

	now := s.now().UTC()
	order := &models.Order{
		ID:              uuid.NewString(),
		CustomerName:    customer.Name,
		CustomerPhone:   customer.Phone,
		CustomerAddress: customer.Address,
		Status:          models.StatusPending,
		Notes:           customer.Notes,
		Items:           make([]models.OrderItem, len(lines)),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	total := decimal.Zero
	for i, l := range lines {
		order.Items[i] = models.OrderItem{
			ID:           uuid.NewString(),
			OrderID:      order.ID,
			Position:     i,
			MenuItemID:   l.MenuItemID,
			MenuItemName: l.MenuItemName,
			Quantity:     l.Quantity,
			Price:        l.Price,
		}
		total = total.Add(order.Items[i].Subtotal())
	}
	order.TotalPrice = total
	if err := validateTotal(total); err != nil {
		s.logger.Info("Order rejected", zap.String("total", total.StringFixed(2)))
		return nil, err
	}

	if err := s.store.Create(ctx, order); err != nil {
		s.logger.Error("Failed to create order", zap.Error(err))
		return nil, err
	}

	s.logger.Info("Order created",
		zap.String("order_id", order.ID),
		zap.Int("items", len(order.Items)),
		zap.String("total", order.TotalPrice.StringFixed(2)))

	s.publish(ctx, events.OrderEvent{Type: events.OrderCreated, OrderID: order.ID, Status: order.Status, Order: order, OccurredAt: now})
	s.recordAudit("create_order", order.ID, map[string]any{
		"customer_name": order.CustomerName,
		"total_price":   order.TotalPrice.StringFixed(2),
		"items":         len(order.Items),
	})
	return order, nil
}

func (s *Service) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	if s.cache != nil {
		cached, found, err := s.cache.Get(ctx, id)
		switch {
		case err != nil:
			s.logger.Warn("Order cache read failed", zap.String("order_id", id), zap.Error(err))
		case found:
			return cached, nil
		}
	}

	gen := s.gens.current(id)
	order, err := s.store.FindByID(ctx, id)
	if err != nil {
		s.logFailure("Failed to load order", id, err)
		return nil, err
	}

	if s.cache != nil {
		s.fill(ctx, order, gen)
	}
	return order, nil
}

// fill caches an order read at generation gen. A write that committed
// while the read was in flight bumps the generation before invalidating,
// so a fill that raced with it is either skipped or removed again here.
func (s *Service) fill(ctx context.Context, order *models.Order, gen uint64) {
	if s.gens.current(order.ID) != gen {
		return
	}
	if err := s.cache.Set(ctx, order); err != nil {
		s.logger.Warn("Order cache write failed", zap.String("order_id", order.ID), zap.Error(err))
		return
	}
	if s.gens.current(order.ID) != gen {
		s.logger.Debug("Dropping order cached during a concurrent write", zap.String("order_id", order.ID))
		if err := s.cache.Invalidate(ctx, order.ID); err != nil {
			s.logger.Warn("Order cache invalidation failed", zap.String("order_id", order.ID), zap.Error(err))
		}
	}
}

// ListOrders returns orders newest first. An empty status lists all orders.
func (s *Service) ListOrders(ctx context.Context, status string) ([]models.Order, error) {
	var filter models.OrderStatus
	if status != "" {
		parsed, err := models.ParseOrderStatus(status)
		if err != nil {
			return nil, err
		}
		filter = parsed
	}

	orders, err := s.store.List(ctx, filter)
	if err != nil {
		s.logger.Error("Failed to list orders", zap.Error(err))
		return nil, err
	}
	return orders, nil
}

// UpdateOrderStatus moves an order to status and refreshes its update
// time. The stored status is untouched when the request is rejected.
func (s *Service) UpdateOrderStatus(ctx context.Context, id, status string) (*models.Order, error) {
	next, err := models.ParseOrderStatus(status)
	if err != nil {
		return nil, err
	}
	return s.PatchOrder(ctx, id, models.OrderPatch{Status: &next})
}

// PatchOrder applies the mutable fields set in patch.
func (s *Service) PatchOrder(ctx context.Context, id string, patch models.OrderPatch) (*models.Order, error) {
	if patch.Empty() {
		return nil, apperr.Invalid("", "at least one of status, notes must be set")
	}
	if patch.Status != nil {
		if _, err := models.ParseOrderStatus(string(*patch.Status)); err != nil {
			return nil, err
		}
	}
	if patch.Notes != nil {
		if v := validateNotes(*patch.Notes); len(v) > 0 {
			return nil, apperr.Validation(v...)
		}
	}

	var previous models.OrderStatus
	now := s.now().UTC()
	order, err := s.store.Update(ctx, id, func(o *models.Order) error {
		previous = o.Status
		if patch.Status != nil {
			if err := s.transitions.Check(o.Status, *patch.Status); err != nil {
				return err
			}
			o.Status = *patch.Status
		}
		if patch.Notes != nil {
			o.Notes = *patch.Notes
		}
		o.UpdatedAt = now
		return nil
	})
	if err != nil {
		s.logFailure("Failed to update order", id, err)
		return nil, err
	}

	s.invalidate(ctx, id)

	data := map[string]any{}
	if patch.Status != nil {
		s.logger.Info("Order status updated",
			zap.String("order_id", id),
			zap.String("from", string(previous)),
			zap.String("to", string(order.Status)))
		s.publish(ctx, events.OrderEvent{
			Type:           events.OrderStatusChanged,
			OrderID:        id,
			Status:         order.Status,
			PreviousStatus: previous,
			OccurredAt:     now,
		})
		data["from"] = string(previous)
		data["to"] = string(order.Status)
	}
	if patch.Notes != nil {
		s.publish(ctx, events.OrderEvent{Type: events.OrderUpdated, OrderID: id, Status: order.Status, OccurredAt: now})
		data["notes"] = order.Notes
	}
	s.recordAudit("update_order", id, data)
	return order, nil
}

func (s *Service) DeleteOrder(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		s.logFailure("Failed to delete order", id, err)
		return err
	}
	s.logger.Info("Order deleted", zap.String("order_id", id))

	s.invalidate(ctx, id)
	s.publish(ctx, events.OrderEvent{Type: events.OrderDeleted, OrderID: id, OccurredAt: s.now().UTC()})
	s.recordAudit("delete_order", id, nil)
	return nil
}

// AuditTrail returns the newest audit entries for an order first.
func (s *Service) AuditTrail(ctx context.Context, id string, limit int64) ([]*models.AuditEntry, error) {
	if s.audit == nil {
		return nil, ErrAuditDisabled
	}
	if limit <= 0 {
		limit = 50
	}
	entries, err := s.audit.GetAuditLogs(ctx, id, limit)
	if err != nil {
		s.logger.Error("Failed to read audit trail", zap.String("order_id", id), zap.Error(err))
		return nil, apperr.Persistence("read audit trail", err)
	}
	return entries, nil
}

// Close waits for pending audit writes.
func (s *Service) Close() {
	s.auditWG.Wait()
}

func (s *Service) logFailure(msg, id string, err error) {
	if apperr.IsPersistence(err) || apperr.KindOf(err) == apperr.KindUnknown {
		s.logger.Error(msg, zap.String("order_id", id), zap.Error(err))
		return
	}
	s.logger.Info(msg, zap.String("order_id", id), zap.String("kind", string(apperr.KindOf(err))))
}

func (s *Service) invalidate(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	s.gens.bump(id)
	if err := s.cache.Invalidate(ctx, id); err != nil {
		s.logger.Warn("Order cache invalidation failed", zap.String("order_id", id), zap.Error(err))
	}
}

func (s *Service) publish(ctx context.Context, evt events.OrderEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(context.WithoutCancel(ctx), evt); err != nil {
		s.logger.Warn("Failed to publish order event",
			zap.String("type", string(evt.Type)),
			zap.String("order_id", evt.OrderID),
			zap.Error(err))
	}
}

func (s *Service) recordAudit(action, id string, data map[string]any) {
	if s.audit == nil {
		return
	}
	entry := &models.AuditEntry{
		Service:   auditService,
		Action:    action,
		OrderID:   id,
		Data:      data,
		CreatedAt: s.now().UTC(),
	}

	s.auditWG.Add(1)
	go func() {
		defer s.auditWG.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
			s.logger.Warn("Failed to write audit log",
				zap.String("action", action),
				zap.String("order_id", id),
				zap.Error(err))
		}
	}()
}
