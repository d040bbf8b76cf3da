package models

import "time"

// Sequence scopes. Each scope keeps an independent per-year counter.
const (
	SequenceScopeForm    = "form"
	SequenceScopeInvoice = "invoice"
)

// NumberSequence holds the last issued number for one (scope, year) pair.
// The row is mutated only inside a locked read-modify-write transaction in
// the sequence service; LastNumber is monotonic non-decreasing and issued
// values are never reused.
type NumberSequence struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Scope      string    `gorm:"not null;uniqueIndex:idx_sequences_scope_year" json:"scope"`
	Year       int       `gorm:"not null;uniqueIndex:idx_sequences_scope_year" json:"year"`
	LastNumber int       `gorm:"not null;default:0" json:"last_number"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName specifies the table name for the NumberSequence model
func (NumberSequence) TableName() string {
	return "number_sequences"
}
