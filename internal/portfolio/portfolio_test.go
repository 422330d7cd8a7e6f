package portfolio_test

import (
	"testing"
	"time"

	"github.com/atlas-desktop/krypto-paper/internal/portfolio"
	"github.com/atlas-desktop/krypto-paper/pkg/types"
	"github.com/shopspring/decimal"
)

func snap(sessionID string, minute int, equity float64) types.EquitySnapshot {
	return types.EquitySnapshot{
		SessionID: sessionID,
		Equity:    decimal.NewFromFloat(equity),
		Timestamp: time.Date(2026, 1, 1, 0, minute, 0, 0, time.UTC),
	}
}

func TestMergeForwardFillSingleSessionHoldsLastValue(t *testing.T) {
	snapshots := []types.EquitySnapshot{
		snap("s1", 0, 1000),
		snap("s1", 2, 1100),
	}

	points := portfolio.MergeForwardFill(snapshots)
	if len(points) != 3 {
		t.Fatalf("expected 3 minute-grid points spanning minute 0..2, got %d", len(points))
	}
	if !points[0].TotalEquity.Equal(decimal.NewFromFloat(1000)) {
		t.Fatalf("expected minute 0 to equal the first snapshot, got %v", points[0].TotalEquity)
	}
	if !points[1].TotalEquity.Equal(decimal.NewFromFloat(1000)) {
		t.Fatalf("expected minute 1 to forward-fill from minute 0, got %v", points[1].TotalEquity)
	}
	if !points[2].TotalEquity.Equal(decimal.NewFromFloat(1100)) {
		t.Fatalf("expected minute 2 to pick up the fresh sample, got %v", points[2].TotalEquity)
	}
}

func TestMergeForwardFillSessionExcludedBeforeItsStart(t *testing.T) {
	snapshots := []types.EquitySnapshot{
		snap("early", 0, 500),
		snap("early", 3, 500),
		snap("late", 2, 2000),
		snap("late", 3, 2000),
	}

	points := portfolio.MergeForwardFill(snapshots)
	if len(points) != 4 {
		t.Fatalf("expected 4 minute-grid points, got %d", len(points))
	}

	if !points[0].TotalEquity.Equal(decimal.NewFromFloat(500)) {
		t.Fatalf("expected minute 0 to count only the started session, got %v", points[0].TotalEquity)
	}
	if !points[1].TotalEquity.Equal(decimal.NewFromFloat(500)) {
		t.Fatalf("expected minute 1 to still exclude the not-yet-started session, got %v", points[1].TotalEquity)
	}
	if !points[2].TotalEquity.Equal(decimal.NewFromFloat(2500)) {
		t.Fatalf("expected minute 2 to include both sessions once the late one starts, got %v", points[2].TotalEquity)
	}
}

func TestMergeForwardFillEmptyInputReturnsNil(t *testing.T) {
	points := portfolio.MergeForwardFill(nil)
	if points != nil {
		t.Fatalf("expected nil output for empty input, got %v", points)
	}
}

// TestMergeForwardFillTwoSessionAggregation covers S6: A:(t0,100),
// B:(t0+2,50), A:(t0+3,120) expects totals 100, 100, 150, 170 at minutes
// t0..t0+3.
func TestMergeForwardFillTwoSessionAggregation(t *testing.T) {
	snapshots := []types.EquitySnapshot{
		snap("A", 0, 100),
		snap("B", 2, 50),
		snap("A", 3, 120),
	}

	points := portfolio.MergeForwardFill(snapshots)
	if len(points) != 4 {
		t.Fatalf("expected 4 minute-grid points spanning t0..t0+3, got %d", len(points))
	}

	want := []float64{100, 100, 150, 170}
	for i, w := range want {
		if !points[i].TotalEquity.Equal(decimal.NewFromFloat(w)) {
			t.Fatalf("minute t0+%d: expected total %v, got %v", i, w, points[i].TotalEquity)
		}
	}
}

func TestMergeForwardFillSingleSnapshotProducesOnePoint(t *testing.T) {
	points := portfolio.MergeForwardFill([]types.EquitySnapshot{snap("solo", 5, 777)})
	if len(points) != 1 {
		t.Fatalf("expected exactly 1 point for a single snapshot, got %d", len(points))
	}
	if !points[0].TotalEquity.Equal(decimal.NewFromFloat(777)) {
		t.Fatalf("expected the single point to equal the lone snapshot's equity, got %v", points[0].TotalEquity)
	}
}
