package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Invoice statuses. The free-transition set an invoice status may move among.
const (
	InvoiceStatusPending   = "pending"
	InvoiceStatusPaid      = "paid"
	InvoiceStatusFailed    = "failed"
	InvoiceStatusCancelled = "cancelled"
	InvoiceStatusGenerated = "Generated"
	InvoiceStatusSent      = "Sent"
)

// ValidInvoiceStatus reports whether s is one of the allowed invoice statuses
func ValidInvoiceStatus(s string) bool {
	switch s {
	case InvoiceStatusPending, InvoiceStatusPaid, InvoiceStatusFailed,
		InvoiceStatusCancelled, InvoiceStatusGenerated, InvoiceStatusSent:
		return true
	}
	return false
}

// InvoiceDraft is the mutable pre-invoice record for an order. At most one
// draft exists per order; it is deleted when the final invoice is created.
type InvoiceDraft struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	OrderID        uint            `gorm:"not null;uniqueIndex" json:"order_id"`
	Quantity       int             `gorm:"default:0" json:"quantity"`
	CuttingCost    decimal.Decimal `gorm:"type:numeric(14,2);default:0" json:"cutting_cost"`
	NumberOfCuts   int             `gorm:"default:0" json:"number_of_cuts"`
	PeakQuantity   decimal.Decimal `gorm:"type:numeric(14,2);default:0" json:"peak_quantity"`
	PeakWidth      decimal.Decimal `gorm:"type:numeric(14,2);default:0" json:"peak_width"`
	Fee            decimal.Decimal `gorm:"type:numeric(14,2);default:0" json:"fee"`
	LaminationCost decimal.Decimal `gorm:"type:numeric(14,2);default:0" json:"lamination_cost"`
	RowNumber      *int            `json:"row_number"`
	Notes          string          `gorm:"type:text" json:"notes"`
	CreatedByID    *uint           `json:"created_by_id"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// TableName specifies the table name for the InvoiceDraft model
func (InvoiceDraft) TableName() string {
	return "invoice_drafts"
}

// Invoice is the final billing record for an order. Exactly one per order;
// after creation only Status and PaymentDate may change.
type Invoice struct {
	ID            uint   `gorm:"primaryKey" json:"id"`
	OrderID       uint   `gorm:"not null;uniqueIndex" json:"order_id"`
	Order         *Order `gorm:"foreignKey:OrderID" json:"order,omitempty"`
	InvoiceNumber string `gorm:"uniqueIndex;not null" json:"invoice_number"`

	UnitPrice      decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"unit_price"`
	Quantity       int             `gorm:"not null" json:"quantity"`
	CuttingCost    decimal.Decimal `gorm:"type:numeric(14,2);default:0" json:"cutting_cost"`
	NumberOfCuts   int             `json:"number_of_cuts"`
	PeakQuantity   decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"peak_quantity"`
	PeakWidth      decimal.Decimal `gorm:"type:numeric(14,2)" json:"peak_width"`
	Fee            decimal.Decimal `gorm:"type:numeric(14,2)" json:"fee"`
	LaminationCost decimal.Decimal `gorm:"type:numeric(14,2);default:0" json:"lamination_cost"`
	RowNumber      *int            `json:"row_number"`
	TotalPrice     decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"total_price"`

	Status string `gorm:"not null;default:'pending'" json:"status"`
	Notes  string `gorm:"type:text" json:"notes"`

	IssueDate   time.Time  `json:"issue_date"`
	PaymentDate *time.Time `json:"payment_date"`
	CreatedByID *uint      `json:"created_by_id"`
	CreatedAt   time.Time  `json:"created_at"`
}

// TableName specifies the table name for the Invoice model
func (Invoice) TableName() string {
	return "invoices"
}
