package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/am-factory/factory-orders-api/models"
)

// InvoiceInput carries the billing figures supplied with a draft save or a
// promotion. Zero values fall back to the draft and then the order defaults.
type InvoiceInput struct {
	Quantity       int             `json:"quantity"`
	CuttingCost    decimal.Decimal `json:"cutting_cost"`
	NumberOfCuts   int             `json:"number_of_cuts"`
	PeakQuantity   decimal.Decimal `json:"peak_quantity"`
	PeakWidth      decimal.Decimal `json:"peak_width"`
	Fee            decimal.Decimal `json:"fee"`
	LaminationCost decimal.Decimal `json:"lamination_cost"`
	RowNumber      *int            `json:"row_number"`
	Notes          string          `json:"notes"`
}

// InvoiceResult reports what the lifecycle did for a production update
type InvoiceResult struct {
	Promoted      bool                 `json:"promoted"`
	InvoiceNumber string               `json:"invoice_number,omitempty"`
	Invoice       *models.Invoice      `json:"invoice,omitempty"`
	Draft         *models.InvoiceDraft `json:"draft,omitempty"`
}

// InvoiceService owns the NoInvoice -> Draft -> Final lifecycle of an
// order's billing record. Every multi-step operation runs in a single
// transaction so a failure can never leave a half-created invoice or a
// deleted-but-unreplaced draft.
type InvoiceService struct {
	db  *gorm.DB
	seq *SequenceService
}

// NewInvoiceService creates an invoice service over the given database
func NewInvoiceService(db *gorm.DB, seq *SequenceService) *InvoiceService {
	return &InvoiceService{db: db, seq: seq}
}

// UpsertDraft creates or refreshes the order's single invoice draft,
// resyncing number_of_cuts and the press-derived lamination cost from the
// current step logs. The stored lamination cost is only overwritten when it
// is still zero. Once a final invoice exists the call is a no-op.
func (s *InvoiceService) UpsertDraft(ctx context.Context, orderID uint, in *InvoiceInput, userID *uint) (*models.InvoiceDraft, error) {
	var draft *models.InvoiceDraft
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := tx.First(&order, orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &NotFoundError{Resource: "order", ID: orderID}
			}
			return err
		}

		var existingInvoice models.Invoice
		if err := tx.Where("order_id = ?", orderID).First(&existingInvoice).Error; err == nil {
			// Final invoice supersedes the draft; nothing to upsert.
			return nil
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		numberOfCuts, err := NumberOfCutsForOrder(tx, orderID)
		if err != nil {
			return err
		}
		pressLogs, err := PressLogsForOrder(tx, orderID)
		if err != nil {
			return err
		}
		pressCost := PressCost(pressLogs)

		var d models.InvoiceDraft
		err = tx.Where("order_id = ?", orderID).First(&d).Error
		switch {
		case err == nil:
			d.NumberOfCuts = numberOfCuts
			if in != nil {
				applyDraftInput(&d, in)
			}
			if pressCost.IsPositive() && d.LaminationCost.IsZero() {
				d.LaminationCost = pressCost
			}
			if err := tx.Save(&d).Error; err != nil {
				return err
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			d = draftDefaultsFromOrder(&order)
			d.NumberOfCuts = numberOfCuts
			d.CreatedByID = userID
			if in != nil {
				applyDraftInput(&d, in)
			}
			if pressCost.IsPositive() && d.LaminationCost.IsZero() {
				d.LaminationCost = pressCost
			}
			if err := tx.Create(&d).Error; err != nil {
				return err
			}
		default:
			return err
		}

		draft = &d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return draft, nil
}

// PromoteToFinal turns the order's draft (or supplied figures, or order
// defaults) into the final invoice. Idempotent: an order that already has
// an invoice gets it back unchanged. The invoice number is allocated from
// the locked yearly counter, so concurrent completions cannot collide.
func (s *InvoiceService) PromoteToFinal(ctx context.Context, orderID uint, in *InvoiceInput, userID *uint) (*models.Invoice, error) {
	var invoice models.Invoice

	// Idempotent fast path, and keeps the allocator from burning a number
	// for an already-invoiced order.
	err := s.db.WithContext(ctx).Where("order_id = ?", orderID).First(&invoice).Error
	if err == nil {
		return &invoice, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	// Allocated outside the promotion transaction; the allocator holds its
	// own lock. A promotion that rolls back leaves a gap, never a reuse.
	year := time.Now().UTC().Year()
	n, err := s.seq.NextInvoiceNumber(ctx, year)
	if err != nil {
		return nil, err
	}
	invoiceNumber := fmt.Sprintf("INV-%d-%03d", year, n)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := tx.First(&order, orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &NotFoundError{Resource: "order", ID: orderID}
			}
			return err
		}

		if err := tx.Where("order_id = ?", orderID).First(&invoice).Error; err == nil {
			return nil // already invoiced
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		var draft models.InvoiceDraft
		hasDraft := true
		if err := tx.Where("order_id = ?", orderID).First(&draft).Error; err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			hasDraft = false
		}

		figures := promotionFigures(&order, in, hasDraft, &draft)

		numberOfCuts, err := NumberOfCutsForOrder(tx, orderID)
		if err != nil {
			return err
		}
		if numberOfCuts == 0 {
			numberOfCuts = figures.NumberOfCuts
		}
		if numberOfCuts == 0 {
			// Nothing logged for bresh yet; bill as a single cut so
			// completion can still invoice.
			numberOfCuts = 1
		}

		if figures.Quantity <= 0 {
			return &ValidationError{Field: "quantity", Message: "quantity must be positive"}
		}

		pressLogs, err := PressLogsForOrder(tx, orderID)
		if err != nil {
			return err
		}

		breakdown, err := ComputeCost(CostInput{
			PeakQuantity: figures.PeakQuantity,
			PeakWidth:    figures.PeakWidth,
			Fee:          figures.Fee,
			CuttingCost:  figures.CuttingCost,
			NumberOfCuts: numberOfCuts,
			PressLogs:    pressLogs,
		})
		if err != nil {
			return err
		}

		if hasDraft {
			if err := tx.Delete(&draft).Error; err != nil {
				return err
			}
		}

		laminationCost := figures.LaminationCost
		if laminationCost.IsZero() {
			laminationCost = breakdown.PressCost
		}

		notes := figures.Notes
		if notes == "" {
			notes = "Generated from completed order"
		}

		invoice = models.Invoice{
			OrderID:        orderID,
			InvoiceNumber:  invoiceNumber,
			UnitPrice:      breakdown.UnitPrice,
			Quantity:       figures.Quantity,
			CuttingCost:    figures.CuttingCost,
			NumberOfCuts:   numberOfCuts,
			PeakQuantity:   figures.PeakQuantity,
			PeakWidth:      figures.PeakWidth,
			Fee:            figures.Fee,
			LaminationCost: laminationCost,
			RowNumber:      figures.RowNumber,
			TotalPrice:     breakdown.TotalPrice,
			Status:         models.InvoiceStatusGenerated,
			Notes:          notes,
			IssueDate:      time.Now().UTC(),
			CreatedByID:    userID,
		}
		if err := tx.Create(&invoice).Error; err != nil {
			return err
		}

		return tx.Model(&models.Order{}).Where("id = ?", orderID).
			Update("invoiced", true).Error
	})
	if err != nil {
		// A concurrent promotion can slip past both existence checks and win
		// the insert; the loser fails on the order_id unique index. Return
		// the winner's invoice so concurrent callers see the same result.
		var existing models.Invoice
		if lookupErr := s.db.WithContext(ctx).Where("order_id = ?", orderID).First(&existing).Error; lookupErr == nil {
			return &existing, nil
		}
		return nil, err
	}
	return &invoice, nil
}

// GetInvoiceForOrder returns the order's final invoice if one exists,
// otherwise its draft (resynced against the current logs), otherwise a
// draft auto-generated from the order's own figures.
func (s *InvoiceService) GetInvoiceForOrder(ctx context.Context, orderID uint) (*models.Invoice, *models.InvoiceDraft, error) {
	var invoice models.Invoice
	err := s.db.WithContext(ctx).Where("order_id = ?", orderID).First(&invoice).Error
	if err == nil {
		return &invoice, nil, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, err
	}

	draft, err := s.UpsertDraft(ctx, orderID, nil, nil)
	if err != nil {
		return nil, nil, err
	}
	return nil, draft, nil
}

// UpdateStatus changes a final invoice's status and, for settled statuses,
// its payment date. All pricing fields are frozen after creation.
func (s *InvoiceService) UpdateStatus(ctx context.Context, invoiceID uint, status string, paymentDate *time.Time) (*models.Invoice, error) {
	if !models.ValidInvoiceStatus(status) {
		return nil, &ValidationError{Field: "status", Message: fmt.Sprintf("unknown invoice status %q", status)}
	}

	var invoice models.Invoice
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&invoice, invoiceID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &NotFoundError{Resource: "invoice", ID: invoiceID}
			}
			return err
		}

		updates := map[string]interface{}{"status": status}
		if status == models.InvoiceStatusPaid {
			when := time.Now().UTC()
			if paymentDate != nil {
				when = *paymentDate
			}
			updates["payment_date"] = when
			invoice.PaymentDate = &when
		}
		invoice.Status = status

		return tx.Model(&models.Invoice{}).Where("id = ?", invoiceID).Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

// applyDraftInput overwrites draft fields with the supplied figures.
// Zero-valued inputs leave the stored value alone, so partial saves from
// the factory form merge instead of clobbering.
func applyDraftInput(d *models.InvoiceDraft, in *InvoiceInput) {
	if in.Quantity > 0 {
		d.Quantity = in.Quantity
	}
	if in.CuttingCost.IsPositive() {
		d.CuttingCost = in.CuttingCost
	}
	if in.NumberOfCuts > 0 {
		d.NumberOfCuts = in.NumberOfCuts
	}
	if in.PeakQuantity.IsPositive() {
		d.PeakQuantity = in.PeakQuantity
	}
	if in.PeakWidth.IsPositive() {
		d.PeakWidth = in.PeakWidth
	}
	if in.Fee.IsPositive() {
		d.Fee = in.Fee
	}
	if in.LaminationCost.IsPositive() {
		d.LaminationCost = in.LaminationCost
	}
	if in.RowNumber != nil {
		d.RowNumber = in.RowNumber
	}
	if in.Notes != "" {
		d.Notes = in.Notes
	}
}

// draftDefaultsFromOrder seeds a new draft from the order's own figures
func draftDefaultsFromOrder(order *models.Order) models.InvoiceDraft {
	d := models.InvoiceDraft{
		OrderID: order.ID,
		Notes:   "Auto-generated draft from order data",
	}
	if order.ProducedQuantity != nil && *order.ProducedQuantity > 0 {
		d.Quantity = int(*order.ProducedQuantity)
	} else if order.Quantity != nil {
		d.Quantity = *order.Quantity
	}
	if order.PeakQuantity != nil {
		d.PeakQuantity = decimal.NewFromFloat(*order.PeakQuantity)
	}
	if order.Width != nil {
		d.PeakWidth = decimal.NewFromFloat(*order.Width)
	}
	if order.CustomerFee != nil {
		d.Fee = decimal.NewFromFloat(*order.CustomerFee)
	}
	return d
}

// promotionFigures picks the billing figures for promotion: the explicit
// input wins, then the draft, then the order defaults.
func promotionFigures(order *models.Order, in *InvoiceInput, hasDraft bool, draft *models.InvoiceDraft) InvoiceInput {
	if in != nil {
		return *in
	}
	if hasDraft {
		figures := InvoiceInput{
			Quantity:       draft.Quantity,
			CuttingCost:    draft.CuttingCost,
			NumberOfCuts:   draft.NumberOfCuts,
			PeakQuantity:   draft.PeakQuantity,
			PeakWidth:      draft.PeakWidth,
			Fee:            draft.Fee,
			LaminationCost: draft.LaminationCost,
			RowNumber:      draft.RowNumber,
			Notes:          draft.Notes,
		}
		if figures.Quantity == 0 && order.Quantity != nil {
			figures.Quantity = *order.Quantity
		}
		fillFiguresFromOrder(&figures, order)
		return figures
	}

	figures := InvoiceInput{}
	if order.Quantity != nil {
		figures.Quantity = *order.Quantity
	}
	fillFiguresFromOrder(&figures, order)
	return figures
}

func fillFiguresFromOrder(figures *InvoiceInput, order *models.Order) {
	if figures.PeakQuantity.IsZero() && order.PeakQuantity != nil {
		figures.PeakQuantity = decimal.NewFromFloat(*order.PeakQuantity)
	}
	if figures.PeakWidth.IsZero() && order.Width != nil {
		figures.PeakWidth = decimal.NewFromFloat(*order.Width)
	}
	if figures.Fee.IsZero() && order.CustomerFee != nil {
		figures.Fee = decimal.NewFromFloat(*order.CustomerFee)
	}
}
