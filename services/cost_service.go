package services

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/am-factory/factory-orders-api/models"
)

// UnitPressFee is the one-time flat press fee, applied when any logged
// press step has a positive member count.
var UnitPressFee = decimal.NewFromInt(350)

// CostInput carries the pre-fetched billing inputs for one order.
// NumberOfCuts must be recomputed from the current bresh step logs
// (see NumberOfCutsForOrder), never taken from a stale cached value.
type CostInput struct {
	PeakQuantity decimal.Decimal
	PeakWidth    decimal.Decimal
	Fee          decimal.Decimal
	CuttingCost  decimal.Decimal
	NumberOfCuts int
	PressLogs    []models.ProductionStepLog
}

// CostBreakdown holds the derived pricing components. Every value is
// rounded half-up to 2 places at the step it is produced.
type CostBreakdown struct {
	PressCost  decimal.Decimal `json:"press_cost"`
	BasePrice  decimal.Decimal `json:"base_price"`
	Services   decimal.Decimal `json:"services"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

// round2 rounds half-up to 2 fractional digits. Applied at every step, not
// only at the end; a single final rounding gives different totals.
func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// PressCost returns the flat press fee if any press log has member_count > 0
func PressCost(pressLogs []models.ProductionStepLog) decimal.Decimal {
	for _, log := range pressLogs {
		if log.StepName == models.StepPress && log.MemberCount > 0 {
			return UnitPressFee
		}
	}
	return decimal.Zero
}

// ComputeCost derives the invoice pricing from the given inputs.
// peak_quantity, peak_width, fee and number_of_cuts must all be strictly
// positive; otherwise a ValidationError naming the offending field is
// returned and no computation happens.
func ComputeCost(in CostInput) (CostBreakdown, error) {
	if !in.PeakQuantity.IsPositive() {
		return CostBreakdown{}, &ValidationError{Field: "peak_quantity", Message: "peak_quantity must be positive"}
	}
	if !in.PeakWidth.IsPositive() {
		return CostBreakdown{}, &ValidationError{Field: "peak_width", Message: "peak_width must be positive"}
	}
	if !in.Fee.IsPositive() {
		return CostBreakdown{}, &ValidationError{Field: "fee", Message: "fee must be positive"}
	}
	if in.NumberOfCuts <= 0 {
		return CostBreakdown{}, &ValidationError{Field: "number_of_cuts", Message: "number_of_cuts must be positive"}
	}

	pressCost := PressCost(in.PressLogs)
	basePrice := round2(in.PeakQuantity.Mul(in.PeakWidth).Mul(in.Fee))
	servicesCost := round2(in.CuttingCost.Add(pressCost))
	unitPrice := round2(basePrice.Add(servicesCost))
	totalPrice := round2(unitPrice.Mul(decimal.NewFromInt(int64(in.NumberOfCuts))))

	return CostBreakdown{
		PressCost:  pressCost,
		BasePrice:  basePrice,
		Services:   servicesCost,
		UnitPrice:  unitPrice,
		TotalPrice: totalPrice,
	}, nil
}

// NumberOfCutsForOrder derives number_of_cuts as the sum of member_count
// over the order's bresh step logs
func NumberOfCutsForOrder(db *gorm.DB, orderID uint) (int, error) {
	var logs []models.ProductionStepLog
	if err := db.Where("order_id = ? AND step_name = ?", orderID, models.StepBresh).Find(&logs).Error; err != nil {
		return 0, err
	}
	total := 0
	for _, log := range logs {
		total += log.MemberCount
	}
	return total, nil
}

// PressLogsForOrder fetches the order's press step logs for cost derivation
func PressLogsForOrder(db *gorm.DB, orderID uint) ([]models.ProductionStepLog, error) {
	var logs []models.ProductionStepLog
	if err := db.Where("order_id = ? AND step_name = ?", orderID, models.StepPress).Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}
