package models

import (
	"time"

	"gorm.io/gorm"
)

// Order represents a production order in the system.
// FormNumber is allocated from the yearly sequence at intake and never changes.
type Order struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	FormNumber int       `gorm:"not null;index" json:"form_number"`
	OrderDate  time.Time `json:"order_date"`

	CustomerName      string   `gorm:"not null" json:"customer_name"`
	CustomerFee       *float64 `json:"customer_fee"`
	FabricDensity     *int     `json:"fabric_density"`
	FabricCut         *float64 `json:"fabric_cut"`
	Width             *float64 `json:"width"`
	Height            *float64 `json:"height"`
	Quantity          *int     `json:"quantity"`
	TotalLengthMeters *float64 `json:"total_length_meters"`

	DeliveryDate        *time.Time `json:"delivery_date"`
	DesignSpecification string     `gorm:"type:text" json:"design_specification"`
	OfficeNotes         string     `gorm:"type:text" json:"office_notes"`
	FactoryNotes        string     `gorm:"type:text" json:"factory_notes"`

	FusingType     string `json:"fusing_type"`
	LaminationType string `json:"lamination_type"`
	CutType        string `json:"cut_type"`
	LabelType      string `json:"label_type"`

	Status             string `gorm:"not null;default:'Pending'" json:"status"`
	CurrentStage       string `gorm:"default:'New'" json:"current_stage"`
	ProgressPercentage int    `gorm:"default:0" json:"progress_percentage"`

	ExitFromOfficeDate   *time.Time `json:"exit_from_office_date"`
	ExitFromFactoryDate  *time.Time `json:"exit_from_factory_date"`
	SketchName           string     `json:"sketch_name"`
	FileName             string     `json:"file_name"`
	CustomerNoteToOffice string     `gorm:"type:text" json:"customer_note_to_office"`
	ProductionDuration   string     `json:"production_duration"`

	PeakQuantity     *float64 `json:"peak_quantity"`
	ProducedQuantity *float64 `json:"produced_quantity"`
	Invoiced         bool     `gorm:"default:false" json:"invoiced"`

	CreatedByID *uint `gorm:"index" json:"created_by_id"`
	CreatedBy   *User `gorm:"foreignKey:CreatedByID" json:"created_by,omitempty"`

	Images             []OrderImage        `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"images,omitempty"`
	Files              []OrderFile         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"order_files,omitempty"`
	Values             []OrderValue        `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"values,omitempty"`
	JobMetrics         []JobMetric         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"job_metrics,omitempty"`
	MachineLogs        []MachineLog        `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"machine_logs,omitempty"`
	ProductionStepLogs []ProductionStepLog `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"production_steps,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Order model
func (Order) TableName() string {
	return "orders"
}

// IsTerminalStage reports whether a stage value closes the order for billing.
// Terminal orders are forced to 100% progress and get their final invoice.
func IsTerminalStage(stage string) bool {
	switch stage {
	case "Completed", "Shipped":
		return true
	}
	return false
}

// OrderImage represents an uploaded image attached to an order.
// Only the storage key is kept here; the bytes live in S3.
type OrderImage struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	OrderID          uint      `gorm:"not null;index" json:"order_id"`
	S3Key            string    `gorm:"not null" json:"s3_key"`
	OriginalFilename string    `gorm:"not null" json:"original_filename"`
	FileSize         int64     `json:"file_size"`
	MimeType         string    `json:"mime_type"`
	ImageURL         string    `gorm:"-" json:"image_url,omitempty"` // computed field, presigned URL
	UploadedByID     *uint     `json:"uploaded_by_id"`
	CreatedAt        time.Time `json:"created_at"`
}

// TableName specifies the table name for the OrderImage model
func (OrderImage) TableName() string {
	return "order_images"
}

// OrderFile represents a non-image file attached to an order
type OrderFile struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	OrderID      uint      `gorm:"not null;index" json:"order_id"`
	FileName     string    `gorm:"not null" json:"file_name"`
	DisplayName  string    `json:"display_name"`
	UploadedByID *uint     `json:"uploaded_by_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName specifies the table name for the OrderFile model
func (OrderFile) TableName() string {
	return "order_files"
}

// OrderValueSlots is the number of coloring value slots on the order form
const OrderValueSlots = 8

// OrderValue is one slot of the order's coloring values grid. ValueIndex is
// the 1-based slot position on the form.
type OrderValue struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	OrderID    uint   `gorm:"not null;index" json:"order_id"`
	ValueIndex int    `gorm:"not null" json:"value_index"`
	Value      string `json:"value"`
}

// TableName specifies the table name for the OrderValue model
func (OrderValue) TableName() string {
	return "order_values"
}
