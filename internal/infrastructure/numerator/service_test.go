package numerator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	corenumerator "stocklot/internal/core/numerator"
)

type mockRow struct {
	val int64
	err error
}

func (m *mockRow) Scan(dest ...any) error {
	if m.err != nil {
		return m.err
	}
	if len(dest) > 0 {
		if ptr, ok := dest[0].(*int64); ok {
			*ptr = m.val
		}
	}
	return nil
}

// mockQuerier simulates the sys_sequences upsert: every call advances the
// counter by the increment argument (1 for strict, range size for cached).
type mockQuerier struct {
	mu           sync.Mutex
	currentValue int64
	calls        int
	lastKey      string
}

func (m *mockQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if len(args) > 0 {
		if key, ok := args[0].(string); ok {
			m.lastKey = key
		}
	}

	var increment int64 = 1
	if len(args) == 2 {
		if val, ok := args[1].(int64); ok {
			increment = val
		}
	}

	m.currentValue += increment
	return &mockRow{val: m.currentValue}
}

var testPeriod = time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

func TestGetNextNumber_Strict(t *testing.T) {
	q := &mockQuerier{}
	svc := New(q)
	ctx := context.Background()
	cfg := corenumerator.DefaultConfig("BATCH")

	num, err := svc.GetNextNumber(ctx, cfg, nil, testPeriod)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if num != "BATCH-2026-00001" {
		t.Errorf("expected BATCH-2026-00001, got %s", num)
	}

	num, err = svc.GetNextNumber(ctx, cfg, nil, testPeriod)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if num != "BATCH-2026-00002" {
		t.Errorf("expected BATCH-2026-00002, got %s", num)
	}

	if q.calls != 2 {
		t.Errorf("strict strategy should hit the DB per number, got %d calls", q.calls)
	}
	if q.lastKey != "BATCH_2026" {
		t.Errorf("expected yearly sequence key BATCH_2026, got %s", q.lastKey)
	}
}

func TestGetNextNumber_Cached(t *testing.T) {
	q := &mockQuerier{}
	svc := New(q)
	ctx := context.Background()
	cfg := corenumerator.DefaultConfig("BATCH")

	opts := &corenumerator.Options{
		Strategy:  corenumerator.StrategyCached,
		RangeSize: 10,
	}

	// First call reserves the 1..10 range in one round trip.
	num, err := svc.GetNextNumber(ctx, cfg, opts, testPeriod)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if num != "BATCH-2026-00001" {
		t.Errorf("expected BATCH-2026-00001, got %s", num)
	}
	if q.currentValue != 10 {
		t.Errorf("expected DB value 10 after range reservation, got %d", q.currentValue)
	}

	// The next nine numbers come from memory.
	for i := 2; i <= 10; i++ {
		num, err = svc.GetNextNumber(ctx, cfg, opts, testPeriod)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if num != "BATCH-2026-00010" {
		t.Errorf("expected BATCH-2026-00010, got %s", num)
	}
	if q.calls != 1 {
		t.Errorf("expected a single DB call for the whole range, got %d", q.calls)
	}

	// The eleventh number forces a new range.
	num, err = svc.GetNextNumber(ctx, cfg, opts, testPeriod)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if num != "BATCH-2026-00011" {
		t.Errorf("expected BATCH-2026-00011, got %s", num)
	}
	if q.calls != 2 {
		t.Errorf("expected a second DB call for the new range, got %d", q.calls)
	}
}

func TestGetNextNumber_ResetPeriods(t *testing.T) {
	tests := []struct {
		name        string
		resetPeriod string
		wantKey     string
	}{
		{"yearly", "year", "BATCH_2026"},
		{"monthly", "month", "BATCH_2026_03"},
		{"never", "never", "BATCH"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := &mockQuerier{}
			svc := New(q)
			cfg := corenumerator.Config{Prefix: "BATCH", IncludeYear: true, PadWidth: 5, ResetPeriod: tt.resetPeriod}

			if _, err := svc.GetNextNumber(context.Background(), cfg, nil, testPeriod); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if q.lastKey != tt.wantKey {
				t.Errorf("expected key %s, got %s", tt.wantKey, q.lastKey)
			}
		})
	}
}

func TestSetNextNumber_InvalidatesCache(t *testing.T) {
	q := &mockQuerier{}
	svc := New(q)
	ctx := context.Background()
	cfg := corenumerator.DefaultConfig("BATCH")
	opts := &corenumerator.Options{Strategy: corenumerator.StrategyCached, RangeSize: 10}

	if _, err := svc.GetNextNumber(ctx, cfg, opts, testPeriod); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := svc.SetNextNumber(ctx, cfg, testPeriod, 100); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The cached 2..10 range must be discarded after the reset.
	num, err := svc.GetNextNumber(ctx, cfg, opts, testPeriod)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if num == "BATCH-2026-00002" {
		t.Errorf("cached range survived SetNextNumber, got %s", num)
	}
}
