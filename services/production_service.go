package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"gorm.io/gorm"

	"github.com/am-factory/factory-orders-api/models"
	"github.com/am-factory/factory-orders-api/policies"
)

// StepLogInput is one production step entry in a bulk replace
type StepLogInput struct {
	StepName    string     `json:"step_name"`
	WorkerName  string     `json:"worker_name"`
	Date        *time.Time `json:"date"`
	MemberCount int        `json:"member_count"`
}

// MachineLogInput is one machine shift entry in a bulk replace
type MachineLogInput struct {
	WorkerName        string     `json:"worker_name"`
	StartTime         *time.Time `json:"start_time"`
	EndTime           *time.Time `json:"end_time"`
	StartingQuantity  int        `json:"starting_quantity"`
	RemainingQuantity int        `json:"remaining_quantity"`
	ShiftType         string     `json:"shift_type"`
}

// JobMetricInput is one telemetry entry in a bulk replace
type JobMetricInput struct {
	PackageCount *int     `json:"package_count"`
	PackageValue *float64 `json:"package_value"`
	RollCount    *int     `json:"roll_count"`
	Meterage     *float64 `json:"meterage"`
}

// ProductionUpdate is the payload of a production-status mutation. The
// policy filter runs over Fields before any of it is applied.
type ProductionUpdate struct {
	Fields          map[string]interface{} `json:"fields"`
	ProductionSteps []StepLogInput         `json:"production_steps"`
	MachineLogs     []MachineLogInput      `json:"machine_logs"`
	JobMetrics      []JobMetricInput       `json:"job_metrics"`
	InvoiceInput    *InvoiceInput          `json:"invoice_data"`
	SaveInvoice     bool                   `json:"should_save_invoice"`
}

// ProductionService owns the order's production stage transitions and
// decides, based on stage, whether the invoice lifecycle upserts a draft or
// promotes to the final invoice.
type ProductionService struct {
	db       *gorm.DB
	invoices *InvoiceService
}

// NewProductionService creates a production service over the given database
func NewProductionService(db *gorm.DB, invoices *InvoiceService) *ProductionService {
	return &ProductionService{db: db, invoices: invoices}
}

// UpdateProductionStatus applies a production mutation for the given role.
// Permitted status fields are applied, telemetry lists are bulk-replaced,
// the invoice draft is resynced, and a terminal stage forces progress to
// 100% and promotes the draft to the final invoice.
func (s *ProductionService) UpdateProductionStatus(ctx context.Context, orderID uint, roleName string, update ProductionUpdate, userID *uint) (*models.Order, *InvoiceResult, error) {
	factoryPolicy := policies.NewFactoryPolicy(roleName)
	orderPolicy := policies.NewOrderPolicy(roleName)

	if len(factoryPolicy.AllowedGroups()) == 0 && len(orderPolicy.AllowedGroups()) == 0 {
		return nil, nil, &PolicyDeniedError{Role: roleName, Operation: "update production status"}
	}

	var order models.Order
	terminal := false

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&order, orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &NotFoundError{Resource: "order", ID: orderID}
			}
			return err
		}

		fields := orderPolicy.FilterPayload(update.Fields)
		if factoryPolicy.AllowsSpecial(policies.SpecialStatus) {
			for f := range factoryPolicy.EditableStatusFields() {
				if v, ok := update.Fields[f]; ok {
					fields[f] = v
				}
			}
			for _, f := range []string{"current_stage", "progress_percentage", "factory_notes", "production_duration"} {
				if v, ok := update.Fields[f]; ok {
					fields[f] = v
				}
			}
		}

		if err := applyOrderFields(&order, fields); err != nil {
			return err
		}

		if stage, ok := fields["current_stage"]; ok {
			if models.IsTerminalStage(fmt.Sprint(stage)) {
				order.ProgressPercentage = 100
				terminal = true
			}
		}

		if update.ProductionSteps != nil {
			if !factoryPolicy.AllowsSpecial(policies.SpecialProductionSteps) {
				return &PolicyDeniedError{Role: roleName, Operation: "edit production steps"}
			}
			if err := replaceStepLogs(tx, orderID, update.ProductionSteps, userID); err != nil {
				return err
			}
		}
		if update.MachineLogs != nil {
			if !factoryPolicy.AllowsSpecial(policies.SpecialMachineData) {
				return &PolicyDeniedError{Role: roleName, Operation: "edit machine data"}
			}
			if err := replaceMachineLogs(tx, orderID, update.MachineLogs, userID); err != nil {
				return err
			}
		}
		if update.JobMetrics != nil {
			if !factoryPolicy.AllowsSpecial(policies.SpecialJobMetrics) {
				return &PolicyDeniedError{Role: roleName, Operation: "edit job metrics"}
			}
			if err := replaceJobMetrics(tx, orderID, update.JobMetrics, userID); err != nil {
				return err
			}
		}

		if update.SaveInvoice && update.InvoiceInput != nil && !factoryPolicy.AllowsSpecial(policies.SpecialInvoice) {
			return &PolicyDeniedError{Role: roleName, Operation: "edit invoice"}
		}

		return tx.Save(&order).Error
	})
	if err != nil {
		return nil, nil, err
	}

	// Billing follows the updated telemetry. Terminal stages promote;
	// everything else keeps the draft in sync.
	result := &InvoiceResult{}
	if terminal {
		invoice, err := s.invoices.PromoteToFinal(ctx, orderID, update.InvoiceInput, userID)
		if err != nil {
			return nil, nil, err
		}
		result.Promoted = true
		result.Invoice = invoice
		result.InvoiceNumber = invoice.InvoiceNumber
	} else {
		draft, err := s.invoices.UpsertDraft(ctx, orderID, update.InvoiceInput, userID)
		if err != nil {
			return nil, nil, err
		}
		result.Draft = draft
	}

	if err := s.db.WithContext(ctx).First(&order, orderID).Error; err != nil {
		return nil, nil, err
	}
	return &order, result, nil
}

// ReplaceProductionStepLogs bulk-replaces the order's step logs (delete all,
// insert new, one transaction) and resyncs the invoice draft afterwards so
// the billing figures follow the latest telemetry.
func (s *ProductionService) ReplaceProductionStepLogs(ctx context.Context, orderID uint, logs []StepLogInput, userID *uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := tx.First(&order, orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &NotFoundError{Resource: "order", ID: orderID}
			}
			return err
		}
		return replaceStepLogs(tx, orderID, logs, userID)
	})
	if err != nil {
		return err
	}

	_, err = s.invoices.UpsertDraft(ctx, orderID, nil, userID)
	return err
}

// GetProductionStepLogs returns the order's current step logs keyed by step
func (s *ProductionService) GetProductionStepLogs(ctx context.Context, orderID uint) (map[string][]models.ProductionStepLog, error) {
	var logs []models.ProductionStepLog
	if err := s.db.WithContext(ctx).Where("order_id = ?", orderID).Find(&logs).Error; err != nil {
		return nil, err
	}
	byStep := make(map[string][]models.ProductionStepLog)
	for _, log := range logs {
		byStep[string(log.StepName)] = append(byStep[string(log.StepName)], log)
	}
	return byStep, nil
}

func replaceStepLogs(tx *gorm.DB, orderID uint, logs []StepLogInput, userID *uint) error {
	if err := tx.Where("order_id = ?", orderID).Delete(&models.ProductionStepLog{}).Error; err != nil {
		return err
	}
	for _, in := range logs {
		if !models.ValidProductionStep(in.StepName) {
			return &ValidationError{Field: "step_name", Message: fmt.Sprintf("unknown production step %q", in.StepName)}
		}
		if in.MemberCount < 0 {
			return &ValidationError{Field: "member_count", Message: "member_count must not be negative"}
		}
		log := models.ProductionStepLog{
			OrderID:     orderID,
			StepName:    models.ProductionStep(in.StepName),
			WorkerName:  in.WorkerName,
			Date:        in.Date,
			MemberCount: in.MemberCount,
			CreatedByID: userID,
		}
		if err := tx.Create(&log).Error; err != nil {
			return err
		}
	}
	return nil
}

func replaceMachineLogs(tx *gorm.DB, orderID uint, logs []MachineLogInput, userID *uint) error {
	if err := tx.Where("order_id = ?", orderID).Delete(&models.MachineLog{}).Error; err != nil {
		return err
	}
	for _, in := range logs {
		if in.ShiftType != "" && !models.ValidShiftType(in.ShiftType) {
			return &ValidationError{Field: "shift_type", Message: fmt.Sprintf("invalid shift type %q", in.ShiftType)}
		}
		log := models.MachineLog{
			OrderID:           orderID,
			WorkerName:        in.WorkerName,
			StartTime:         in.StartTime,
			EndTime:           in.EndTime,
			StartingQuantity:  in.StartingQuantity,
			RemainingQuantity: in.RemainingQuantity,
			ShiftType:         models.ShiftType(in.ShiftType),
			CreatedByID:       userID,
		}
		if err := tx.Create(&log).Error; err != nil {
			return err
		}
	}
	return nil
}

func replaceJobMetrics(tx *gorm.DB, orderID uint, metrics []JobMetricInput, userID *uint) error {
	if err := tx.Where("order_id = ?", orderID).Delete(&models.JobMetric{}).Error; err != nil {
		return err
	}
	for _, in := range metrics {
		metric := models.JobMetric{
			OrderID:      orderID,
			PackageCount: in.PackageCount,
			PackageValue: in.PackageValue,
			RollCount:    in.RollCount,
			Meterage:     in.Meterage,
			CreatedByID:  userID,
		}
		if err := tx.Create(&metric).Error; err != nil {
			return err
		}
	}
	return nil
}

// applyOrderFields writes an already policy-filtered payload onto the order
func applyOrderFields(order *models.Order, fields map[string]interface{}) error {
	for key, value := range fields {
		switch key {
		case "customer_name":
			order.CustomerName = fmt.Sprint(value)
		case "sketch_name":
			order.SketchName = fmt.Sprint(value)
		case "file_name":
			order.FileName = fmt.Sprint(value)
		case "status":
			order.Status = fmt.Sprint(value)
		case "current_stage":
			stage := fmt.Sprint(value)
			order.CurrentStage = stage
			order.Status = stage
		case "progress_percentage":
			n, err := toInt(value)
			if err != nil || n < 0 || n > 100 {
				return &ValidationError{Field: "progress_percentage", Message: "progress_percentage must be between 0 and 100"}
			}
			order.ProgressPercentage = n
		case "office_notes":
			order.OfficeNotes = fmt.Sprint(value)
		case "factory_notes":
			order.FactoryNotes = fmt.Sprint(value)
		case "customer_note_to_office":
			order.CustomerNoteToOffice = fmt.Sprint(value)
		case "design_specification":
			order.DesignSpecification = fmt.Sprint(value)
		case "production_duration":
			order.ProductionDuration = fmt.Sprint(value)
		case "fusing_type":
			order.FusingType = fmt.Sprint(value)
		case "lamination_type":
			order.LaminationType = fmt.Sprint(value)
		case "cut_type":
			order.CutType = fmt.Sprint(value)
		case "label_type":
			order.LabelType = fmt.Sprint(value)
		case "customer_fee":
			f, err := toFloat(value)
			if err != nil {
				return &ValidationError{Field: "customer_fee", Message: "invalid customer_fee"}
			}
			order.CustomerFee = &f
		case "fabric_density":
			n, err := toInt(value)
			if err != nil {
				return &ValidationError{Field: "fabric_density", Message: "invalid fabric_density"}
			}
			order.FabricDensity = &n
		case "fabric_cut":
			f, err := toFloat(value)
			if err != nil {
				return &ValidationError{Field: "fabric_cut", Message: "invalid fabric_cut"}
			}
			order.FabricCut = &f
		case "width":
			f, err := toFloat(value)
			if err != nil {
				return &ValidationError{Field: "width", Message: "invalid width"}
			}
			order.Width = &f
		case "height":
			f, err := toFloat(value)
			if err != nil {
				return &ValidationError{Field: "height", Message: "invalid height"}
			}
			order.Height = &f
		case "quantity":
			n, err := toInt(value)
			if err != nil {
				return &ValidationError{Field: "quantity", Message: "invalid quantity"}
			}
			order.Quantity = &n
		case "total_length_meters":
			f, err := toFloat(value)
			if err != nil {
				return &ValidationError{Field: "total_length_meters", Message: "invalid total_length_meters"}
			}
			order.TotalLengthMeters = &f
		case "peak_quantity":
			f, err := toFloat(value)
			if err != nil {
				return &ValidationError{Field: "peak_quantity", Message: "invalid peak_quantity"}
			}
			order.PeakQuantity = &f
		case "produced_quantity":
			f, err := toFloat(value)
			if err != nil {
				return &ValidationError{Field: "produced_quantity", Message: "invalid produced_quantity"}
			}
			order.ProducedQuantity = &f
		case "delivery_date":
			t, err := toDate(value)
			if err != nil {
				return &ValidationError{Field: "delivery_date", Message: "invalid delivery_date, use YYYY-MM-DD"}
			}
			order.DeliveryDate = t
		case "exit_from_office_date":
			t, err := toDate(value)
			if err != nil {
				return &ValidationError{Field: "exit_from_office_date", Message: "invalid exit_from_office_date, use YYYY-MM-DD"}
			}
			order.ExitFromOfficeDate = t
		case "exit_from_factory_date":
			t, err := toDate(value)
			if err != nil {
				return &ValidationError{Field: "exit_from_factory_date", Message: "invalid exit_from_factory_date, use YYYY-MM-DD"}
			}
			order.ExitFromFactoryDate = t
		}
	}
	return nil
}

func toInt(v interface{}) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("%v is not an integer", n)
		}
		return int(n), nil
	case string:
		var parsed int
		if _, err := fmt.Sscanf(n, "%d", &parsed); err != nil {
			return 0, err
		}
		return parsed, nil
	}
	return 0, fmt.Errorf("cannot convert %T to int", v)
}

func toFloat(v interface{}) (float64, error) {
	switch n := v.(type) {
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case float64:
		return n, nil
	case string:
		var parsed float64
		if _, err := fmt.Sscanf(n, "%g", &parsed); err != nil {
			return 0, err
		}
		return parsed, nil
	}
	return 0, fmt.Errorf("cannot convert %T to float", v)
}

func toDate(v interface{}) (*time.Time, error) {
	switch d := v.(type) {
	case nil:
		return nil, nil
	case time.Time:
		return &d, nil
	case string:
		if d == "" {
			return nil, nil
		}
		t, err := time.Parse("2006-01-02", d)
		if err != nil {
			return nil, err
		}
		return &t, nil
	}
	return nil, fmt.Errorf("cannot convert %T to date", v)
}
