package models

import (
	"time"

	"github.com/cafe/backend/internal/domain/inventory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// IngredientStockModel is the persistence model for the on-hand quantity of one ingredient
type IngredientStockModel struct {
	IngredientID     uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Name             string          `gorm:"type:varchar(100);not null"`
	Quantity         decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Unit             string          `gorm:"type:varchar(10);not null"`
	ReorderThreshold decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Version          int             `gorm:"not null"`
	CreatedAt        time.Time       `gorm:"not null"`
	UpdatedAt        time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (IngredientStockModel) TableName() string {
	return "ingredient_stocks"
}

// ToDomain converts the persistence model to a domain IngredientStock
func (m *IngredientStockModel) ToDomain() *inventory.IngredientStock {
	return &inventory.IngredientStock{
		IngredientID:     m.IngredientID,
		Name:             m.Name,
		Quantity:         m.Quantity,
		Unit:             inventory.Unit(m.Unit),
		ReorderThreshold: m.ReorderThreshold,
		Version:          m.Version,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

// IngredientStockModelFromDomain creates a persistence model from a domain IngredientStock
func IngredientStockModelFromDomain(s *inventory.IngredientStock) *IngredientStockModel {
	return &IngredientStockModel{
		IngredientID:     s.IngredientID,
		Name:             s.Name,
		Quantity:         s.Quantity,
		Unit:             s.Unit.String(),
		ReorderThreshold: s.ReorderThreshold,
		Version:          s.Version,
		CreatedAt:        s.CreatedAt,
		UpdatedAt:        s.UpdatedAt,
	}
}

// InventoryTransactionModel is the persistence model for append-only ledger rows.
// The unique (order_id, ingredient_id) index is what makes a deduction apply once.
type InventoryTransactionModel struct {
	ID                uuid.UUID       `gorm:"type:uuid;primaryKey"`
	OrderID           uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_inventory_tx_order_ingredient,priority:1"`
	IngredientID      uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_inventory_tx_order_ingredient,priority:2;index:idx_inventory_tx_ingredient_created,priority:1"`
	Delta             decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	ResultingQuantity decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Unit              string          `gorm:"type:varchar(10);not null"`
	CreatedAt         time.Time       `gorm:"not null;index:idx_inventory_tx_ingredient_created,priority:2"`
}

// TableName returns the table name for GORM
func (InventoryTransactionModel) TableName() string {
	return "inventory_transactions"
}

// ToDomain converts the persistence model to a domain InventoryTransaction
func (m *InventoryTransactionModel) ToDomain() *inventory.InventoryTransaction {
	return &inventory.InventoryTransaction{
		ID:                m.ID,
		OrderID:           m.OrderID,
		IngredientID:      m.IngredientID,
		Delta:             m.Delta,
		ResultingQuantity: m.ResultingQuantity,
		Unit:              inventory.Unit(m.Unit),
		CreatedAt:         m.CreatedAt,
	}
}

// InventoryTransactionModelFromDomain creates a persistence model from a domain InventoryTransaction
func InventoryTransactionModelFromDomain(t *inventory.InventoryTransaction) *InventoryTransactionModel {
	return &InventoryTransactionModel{
		ID:                t.ID,
		OrderID:           t.OrderID,
		IngredientID:      t.IngredientID,
		Delta:             t.Delta,
		ResultingQuantity: t.ResultingQuantity,
		Unit:              t.Unit.String(),
		CreatedAt:         t.CreatedAt,
	}
}

// LowStockAlertModel is the persistence model for raised low-stock alerts
type LowStockAlertModel struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey"`
	IngredientID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	IngredientName   string          `gorm:"type:varchar(100)"`
	Kind             string          `gorm:"type:varchar(20);not null"`
	PreviousQuantity decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	ObservedQuantity decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Threshold        decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Unit             string          `gorm:"type:varchar(10)"`
	CreatedAt        time.Time       `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (LowStockAlertModel) TableName() string {
	return "low_stock_alerts"
}

// ToDomain converts the persistence model to a domain LowStockAlert
func (m *LowStockAlertModel) ToDomain() *inventory.LowStockAlert {
	return &inventory.LowStockAlert{
		ID:               m.ID,
		IngredientID:     m.IngredientID,
		IngredientName:   m.IngredientName,
		Kind:             inventory.AlertKind(m.Kind),
		PreviousQuantity: m.PreviousQuantity,
		ObservedQuantity: m.ObservedQuantity,
		Threshold:        m.Threshold,
		Unit:             inventory.Unit(m.Unit),
		CreatedAt:        m.CreatedAt,
	}
}

// LowStockAlertModelFromDomain creates a persistence model from a domain LowStockAlert
func LowStockAlertModelFromDomain(a *inventory.LowStockAlert) *LowStockAlertModel {
	return &LowStockAlertModel{
		ID:               a.ID,
		IngredientID:     a.IngredientID,
		IngredientName:   a.IngredientName,
		Kind:             string(a.Kind),
		PreviousQuantity: a.PreviousQuantity,
		ObservedQuantity: a.ObservedQuantity,
		Threshold:        a.Threshold,
		Unit:             a.Unit.String(),
		CreatedAt:        a.CreatedAt,
	}
}
