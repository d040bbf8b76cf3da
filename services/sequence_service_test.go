package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/am-factory/factory-orders-api/models"
)

func TestNextFormNumber_Monotonic(t *testing.T) {
	db := setupServiceTestDB(t)
	svc := NewSequenceService(db)
	ctx := context.Background()

	for want := 1; want <= 5; want++ {
		n, err := svc.NextFormNumber(ctx, 2026, nil)
		assert.NoError(t, err)
		assert.Equal(t, want, n)
	}
}

func TestNextFormNumber_StartFromJump(t *testing.T) {
	db := setupServiceTestDB(t)
	svc := NewSequenceService(db)
	ctx := context.Background()

	n, err := svc.NextFormNumber(ctx, 2026, nil)
	assert.NoError(t, err)
	assert.Equal(t, 1, n)

	// Jump ahead re-baselines the counter
	startFrom := 500
	n, err = svc.NextFormNumber(ctx, 2026, &startFrom)
	assert.NoError(t, err)
	assert.Equal(t, 500, n)

	// Subsequent allocations continue from the jump
	n, err = svc.NextFormNumber(ctx, 2026, nil)
	assert.NoError(t, err)
	assert.Equal(t, 501, n)
}

func TestNextFormNumber_StartFromBelowCounterIgnored(t *testing.T) {
	db := setupServiceTestDB(t)
	svc := NewSequenceService(db)
	ctx := context.Background()

	startFrom := 100
	n, err := svc.NextFormNumber(ctx, 2026, &startFrom)
	assert.NoError(t, err)
	assert.Equal(t, 100, n)

	// A start below the counter must never rewind the sequence
	lower := 50
	n, err = svc.NextFormNumber(ctx, 2026, &lower)
	assert.NoError(t, err)
	assert.Equal(t, 101, n)
}

func TestSequence_ScopesAndYearsIndependent(t *testing.T) {
	db := setupServiceTestDB(t)
	svc := NewSequenceService(db)
	ctx := context.Background()

	n, err := svc.NextFormNumber(ctx, 2026, nil)
	assert.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = svc.NextFormNumber(ctx, 2026, nil)
	assert.NoError(t, err)
	assert.Equal(t, 2, n)

	// Different year starts over
	n, err = svc.NextFormNumber(ctx, 2027, nil)
	assert.NoError(t, err)
	assert.Equal(t, 1, n)

	// Invoice scope has its own counter
	n, err = svc.NextInvoiceNumber(ctx, 2026)
	assert.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSequence_CounterRowPersisted(t *testing.T) {
	db := setupServiceTestDB(t)
	svc := NewSequenceService(db)
	ctx := context.Background()

	_, err := svc.NextInvoiceNumber(ctx, 2026)
	assert.NoError(t, err)
	_, err = svc.NextInvoiceNumber(ctx, 2026)
	assert.NoError(t, err)

	var seq models.NumberSequence
	err = db.Where("scope = ? AND year = ?", models.SequenceScopeInvoice, 2026).First(&seq).Error
	assert.NoError(t, err)
	assert.Equal(t, 2, seq.LastNumber)
}

func TestSequence_ConcurrentAllocationsDistinct(t *testing.T) {
	db := setupFileTestDB(t)
	svc := NewSequenceService(db)
	ctx := context.Background()

	const workers = 5
	const perWorker = 4

	var mu sync.Mutex
	var wg sync.WaitGroup
	seen := make(map[int]bool)
	var firstErr error

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				n, err := svc.NextFormNumber(ctx, 2026, nil)
				mu.Lock()
				if err != nil {
					if firstErr == nil {
						firstErr = err
					}
				} else {
					if seen[n] {
						t.Errorf("number %d allocated twice", n)
					}
					seen[n] = true
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.NoError(t, firstErr)
	assert.Len(t, seen, workers*perWorker)
	for n := 1; n <= workers*perWorker; n++ {
		assert.True(t, seen[n], "number %d should have been allocated", n)
	}
}
