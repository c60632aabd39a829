package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/bistro/pkg/apperr"
	"github.com/example/bistro/pkg/models"
)

// OrderStore persists order headers and their line items.
type OrderStore struct {
	db *gorm.DB
}

func NewOrderStore(db *gorm.DB) *OrderStore {
	return &OrderStore{db: db}
}

func preloadItems(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

// Create writes the header and every item in one transaction. Either all
// rows are stored or none are.
func (s *OrderStore) Create(ctx context.Context, order *models.Order) error {
	if len(order.Items) == 0 {
		return apperr.Invalid("items", "must contain at least one item")
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(order).Error; err != nil {
			return err
		}
		for i := range order.Items {
			order.Items[i].OrderID = order.ID
			order.Items[i].Position = i
		}
		return tx.Create(&order.Items).Error
	})
	if err != nil {
		return apperr.Persistence("create order", err)
	}
	return nil
}

// FindByID loads an order with its items from a single snapshot.
func (s *OrderStore) FindByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Preload("Items", preloadItems).Where("id = ?", id).First(&order).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("order", id)
		}
		return nil, apperr.Persistence("load order", err)
	}
	return &order, nil
}

// List returns orders newest first. An empty status returns every order.
func (s *OrderStore) List(ctx context.Context, status models.OrderStatus) ([]models.Order, error) {
	orders := []models.Order{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Preload("Items", preloadItems).Order("created_at DESC").Order("id DESC")
		if status != "" {
			q = q.Where("status = ?", status)
		}
		return q.Find(&orders).Error
	})
	if err != nil {
		return nil, apperr.Persistence("list orders", err)
	}
	return orders, nil
}

// Update loads the header, lets mutate change it and writes back the
// mutable columns (status, notes, updated_at). mutate owns UpdatedAt. An
// error from mutate aborts the transaction and is returned unchanged.
func (s *OrderStore) Update(ctx context.Context, id string, mutate func(*models.Order) error) (*models.Order, error) {
	var order models.Order
	var mutateErr error

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&order).Error; err != nil {
			return err
		}
		if err := mutate(&order); err != nil {
			mutateErr = err
			return err
		}
		cols := map[string]any{
			"status":     order.Status,
			"notes":      order.Notes,
			"updated_at": order.UpdatedAt,
		}
		if err := tx.Model(&models.Order{}).Where("id = ?", id).UpdateColumns(cols).Error; err != nil {
			return err
		}
		return tx.Preload("Items", preloadItems).Where("id = ?", id).First(&order).Error
	})
	switch {
	case err == nil:
		return &order, nil
	case mutateErr != nil:
		return nil, mutateErr
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, apperr.NotFound("order", id)
	default:
		return nil, apperr.Persistence("update order", err)
	}
}

// Delete removes the order and its items together.
func (s *OrderStore) Delete(ctx context.Context, id string) error {
	var affected int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", id).Delete(&models.OrderItem{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&models.Order{})
		affected = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return apperr.Persistence("delete order", err)
	}
	if affected == 0 {
		return apperr.NotFound("order", id)
	}
	return nil
}

// Count reports stored header and item rows. Used by health and tests.
func (s *OrderStore) Count(ctx context.Context) (orders, items int64, err error) {
	db := s.db.WithContext(ctx)
	if err = db.Model(&models.Order{}).Count(&orders).Error; err != nil {
		return 0, 0, apperr.Persistence("count orders", err)
	}
	if err = db.Model(&models.OrderItem{}).Count(&items).Error; err != nil {
		return 0, 0, apperr.Persistence("count order items", err)
	}
	return orders, items, nil
}
