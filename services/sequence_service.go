package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/am-factory/factory-orders-api/models"
)

const allocateMaxAttempts = 5

// SequenceService issues unique, monotonically increasing numbers scoped
// per (scope, calendar year). The counter row is mutated only inside a
// locked read-modify-write transaction, so two concurrent callers for the
// same year can never receive the same value, and a rolled-back allocation
// leaves the counter untouched.
type SequenceService struct {
	db *gorm.DB
}

// NewSequenceService creates a sequence service over the given database
func NewSequenceService(db *gorm.DB) *SequenceService {
	return &SequenceService{db: db}
}

// NextFormNumber allocates the next order form number for a year.
// A non-nil startFrom greater than the current counter re-baselines the
// sequence to that value; otherwise the counter increments by one.
func (s *SequenceService) NextFormNumber(ctx context.Context, year int, startFrom *int) (int, error) {
	return s.allocate(ctx, models.SequenceScopeForm, year, startFrom)
}

// NextInvoiceNumber allocates the next invoice number for a year
func (s *SequenceService) NextInvoiceNumber(ctx context.Context, year int) (int, error) {
	return s.allocate(ctx, models.SequenceScopeInvoice, year, nil)
}

// allocate runs the locked read-modify-write. The allocator is the only
// lock-contended path in the system, so failed transactions are retried a
// bounded number of times before surfacing an AllocationError.
func (s *SequenceService) allocate(ctx context.Context, scope string, year int, startFrom *int) (int, error) {
	var lastErr error
	for attempt := 0; attempt < allocateMaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return 0, &AllocationError{Scope: scope, Year: year, Err: ctx.Err()}
			case <-time.After(time.Duration(attempt) * 20 * time.Millisecond):
			}
		}

		n, err := s.allocateOnce(ctx, scope, year, startFrom)
		if err == nil {
			return n, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return 0, &AllocationError{Scope: scope, Year: year, Err: err}
		}
		lastErr = err
	}
	return 0, &AllocationError{Scope: scope, Year: year, Err: lastErr}
}

func (s *SequenceService) allocateOnce(ctx context.Context, scope string, year int, startFrom *int) (int, error) {
	var allocated int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var seq models.NumberSequence

		query := tx.Where("scope = ? AND year = ?", scope, year)
		if tx.Dialector.Name() == "postgres" {
			// Row-level exclusive lock, held until commit. SQLite has no
			// FOR UPDATE syntax and serializes writers itself.
			query = query.Clauses(clause.Locking{Strength: "UPDATE"})
		}

		if err := query.First(&seq).Error; err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			seq = models.NumberSequence{Scope: scope, Year: year, LastNumber: 0}
			if err := tx.Create(&seq).Error; err != nil {
				// Lost the create race; the retry loop will lock the
				// winner's row.
				return err
			}
		}

		if startFrom != nil && *startFrom > seq.LastNumber {
			seq.LastNumber = *startFrom
		} else {
			seq.LastNumber++
		}

		if err := tx.Model(&models.NumberSequence{}).
			Where("id = ?", seq.ID).
			Update("last_number", seq.LastNumber).Error; err != nil {
			return err
		}

		allocated = seq.LastNumber
		return nil
	})
	if err != nil {
		return 0, err
	}
	return allocated, nil
}
