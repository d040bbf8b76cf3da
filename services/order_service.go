package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/am-factory/factory-orders-api/models"
	"github.com/am-factory/factory-orders-api/policies"
)

// OrderListFilter controls pagination and filtering of order listings
type OrderListFilter struct {
	Page    int
	PerPage int
	Search  string
	Status  string
}

// OrderService owns order intake and the policy-gated order mutations
type OrderService struct {
	db  *gorm.DB
	seq *SequenceService
}

// NewOrderService creates an order service over the given database
func NewOrderService(db *gorm.DB, seq *SequenceService) *OrderService {
	return &OrderService{db: db, seq: seq}
}

// CreateOrder creates a new order with a form number allocated from the
// yearly sequence. startFrom, when supplied and ahead of the counter,
// re-baselines this year's numbering before the allocation.
func (s *OrderService) CreateOrder(ctx context.Context, fields map[string]interface{}, startFrom *int, userID *uint) (*models.Order, error) {
	customerName, _ := fields["customer_name"].(string)
	if customerName == "" {
		return nil, &ValidationError{Field: "customer_name", Message: "customer name is required"}
	}

	now := time.Now().UTC()
	formNumber, err := s.seq.NextFormNumber(ctx, now.Year(), startFrom)
	if err != nil {
		return nil, err
	}

	order := models.Order{
		FormNumber:  formNumber,
		OrderDate:   now,
		Status:      "Pending",
		CreatedByID: userID,
	}
	if err := applyOrderFields(&order, fields); err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Create(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrder fetches one order with its children
func (s *OrderService) GetOrder(ctx context.Context, orderID uint) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).
		Preload("Images").
		Preload("Files").
		Preload("Values").
		Preload("JobMetrics").
		Preload("MachineLogs").
		Preload("ProductionStepLogs").
		First(&order, orderID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "order", ID: orderID}
		}
		return nil, err
	}
	return &order, nil
}

// ListOrders returns a page of orders, newest form numbers first, optionally
// narrowed by a customer-name/form-number search and a status filter.
func (s *OrderService) ListOrders(ctx context.Context, filter OrderListFilter) ([]models.Order, int64, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PerPage < 1 {
		filter.PerPage = 10
	}

	query := s.db.WithContext(ctx).Model(&models.Order{})
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where("LOWER(customer_name) LIKE LOWER(?) OR CAST(form_number AS TEXT) LIKE ?", pattern, pattern)
	}
	if filter.Status != "" && filter.Status != "all" {
		query = query.Where("LOWER(status) = LOWER(?)", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orders []models.Order
	err := query.
		Order("form_number DESC").
		Offset((filter.Page - 1) * filter.PerPage).
		Limit(filter.PerPage).
		Find(&orders).Error
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// UpdateOrder applies a mutation payload after filtering it through the
// role's order policy. Disallowed keys are dropped silently; a role with no
// permitted groups at all is rejected outright.
func (s *OrderService) UpdateOrder(ctx context.Context, orderID uint, roleName string, payload map[string]interface{}) (*models.Order, error) {
	policy := policies.NewOrderPolicy(roleName)
	if len(policy.AllowedGroups()) == 0 {
		return nil, &PolicyDeniedError{Role: roleName, Operation: "edit orders"}
	}

	var order models.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&order, orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &NotFoundError{Resource: "order", ID: orderID}
			}
			return err
		}
		if err := applyOrderFields(&order, policy.FilterPayload(payload)); err != nil {
			return err
		}
		return tx.Save(&order).Error
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// OrderValueInput is one slot in a values bulk replace
type OrderValueInput struct {
	ValueIndex int    `json:"value_index"`
	Value      string `json:"value"`
}

// ReplaceOrderValues bulk-replaces the order's coloring values grid in one
// transaction (delete all, insert new). Only roles holding the values marker
// may write the grid.
func (s *OrderService) ReplaceOrderValues(ctx context.Context, orderID uint, roleName string, values []OrderValueInput) ([]models.OrderValue, error) {
	if !policies.NewOrderPolicy(roleName).AllowsSpecial(policies.SpecialValues) {
		return nil, &PolicyDeniedError{Role: roleName, Operation: "edit order values"}
	}

	rows := make([]models.OrderValue, 0, len(values))
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := tx.First(&order, orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &NotFoundError{Resource: "order", ID: orderID}
			}
			return err
		}

		if err := tx.Where("order_id = ?", orderID).Delete(&models.OrderValue{}).Error; err != nil {
			return err
		}
		for _, in := range values {
			if in.ValueIndex < 1 || in.ValueIndex > models.OrderValueSlots {
				return &ValidationError{Field: "value_index", Message: fmt.Sprintf("value_index must be between 1 and %d", models.OrderValueSlots)}
			}
			row := models.OrderValue{
				OrderID:    orderID,
				ValueIndex: in.ValueIndex,
				Value:      in.Value,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
			rows = append(rows, row)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// GetOrderValues returns the order's coloring values ordered by slot index
func (s *OrderService) GetOrderValues(ctx context.Context, orderID uint) ([]models.OrderValue, error) {
	var rows []models.OrderValue
	err := s.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("value_index ASC").
		Find(&rows).Error
	return rows, err
}

// DeleteOrder removes an order and all of its child records
func (s *OrderService) DeleteOrder(ctx context.Context, orderID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := tx.First(&order, orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &NotFoundError{Resource: "order", ID: orderID}
			}
			return err
		}

		// Children first: sqlite test databases do not enforce the FK
		// cascade the postgres schema declares.
		for _, child := range []interface{}{
			&models.ProductionStepLog{}, &models.MachineLog{}, &models.JobMetric{},
			&models.InvoiceDraft{}, &models.Invoice{},
			&models.OrderImage{}, &models.OrderFile{}, &models.OrderValue{},
		} {
			if err := tx.Where("order_id = ?", orderID).Delete(child).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&order).Error
	})
}
