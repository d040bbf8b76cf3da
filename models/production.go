package models

import (
	"time"
)

// ProductionStep identifies a step in the production pipeline
type ProductionStep string

const (
	StepMongane ProductionStep = "mongane"
	StepAhar    ProductionStep = "ahar"
	StepPress   ProductionStep = "press"
	StepBresh   ProductionStep = "bresh"
)

// ValidProductionStep reports whether s is one of the known step names
func ValidProductionStep(s string) bool {
	switch ProductionStep(s) {
	case StepMongane, StepAhar, StepPress, StepBresh:
		return true
	}
	return false
}

// ProductionStepLog records work done on a single production step of an order.
// Logs are bulk-replaced on every production-status update, never patched;
// cost derivation aggregates over whatever rows are current.
type ProductionStepLog struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	OrderID     uint           `gorm:"not null;index" json:"order_id"`
	StepName    ProductionStep `gorm:"not null" json:"step_name"`
	WorkerName  string         `json:"worker_name"`
	Date        *time.Time     `json:"date"`
	MemberCount int            `gorm:"default:0" json:"member_count"`
	CreatedByID *uint          `json:"created_by_id"`
	CreatedAt   time.Time      `json:"created_at"`
}

// TableName specifies the table name for the ProductionStepLog model
func (ProductionStepLog) TableName() string {
	return "production_step_logs"
}

// ShiftType identifies a machine work shift
type ShiftType string

const (
	ShiftDay   ShiftType = "day"
	ShiftNight ShiftType = "night"
)

// ValidShiftType reports whether s is a known shift type
func ValidShiftType(s string) bool {
	switch ShiftType(s) {
	case ShiftDay, ShiftNight:
		return true
	}
	return false
}

// MachineLog records a machine shift run against an order
type MachineLog struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	OrderID           uint       `gorm:"not null;index" json:"order_id"`
	WorkerName        string     `json:"worker_name"`
	StartTime         *time.Time `json:"start_time"`
	EndTime           *time.Time `json:"end_time"`
	StartingQuantity  int        `gorm:"default:0" json:"starting_quantity"`
	RemainingQuantity int        `gorm:"default:0" json:"remaining_quantity"`
	ShiftType         ShiftType  `json:"shift_type"`
	CreatedByID       *uint      `json:"created_by_id"`
	CreatedAt         time.Time  `json:"created_at"`
}

// TableName specifies the table name for the MachineLog model
func (MachineLog) TableName() string {
	return "machine_logs"
}

// JobMetric records per-order output telemetry (packaging and rolls)
type JobMetric struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	OrderID      uint      `gorm:"not null;index" json:"order_id"`
	PackageCount *int      `json:"package_count"`
	PackageValue *float64  `json:"package_value"`
	RollCount    *int      `json:"roll_count"`
	Meterage     *float64  `json:"meterage"`
	CreatedByID  *uint     `json:"created_by_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName specifies the table name for the JobMetric model
func (JobMetric) TableName() string {
	return "job_metrics"
}
