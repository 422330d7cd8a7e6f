package dataframe_test

import (
	"testing"
	"time"

	"github.com/atlas-desktop/krypto-paper/internal/dataframe"
)

func TestNewAllocatesAlignedColumns(t *testing.T) {
	df := dataframe.New(5)
	if df.Len() != 5 {
		t.Fatalf("expected Len() 5, got %d", df.Len())
	}
	if len(df.Open) != 5 || len(df.High) != 5 || len(df.Low) != 5 || len(df.Volume) != 5 {
		t.Fatal("expected all OHLCV columns preallocated to the same length")
	}
	if df.Feature("missing") != nil {
		t.Fatal("expected an absent feature column to return nil")
	}
}

func TestSetFeatureAndFeatureRoundtrip(t *testing.T) {
	df := dataframe.New(3)
	col := []float64{1, 2, 3}
	df.SetFeature("sma20", col)

	got := df.Feature("sma20")
	if len(got) != 3 || got[2] != 3 {
		t.Fatalf("expected feature column to round-trip, got %v", got)
	}
}

func TestAtAndLast(t *testing.T) {
	df := dataframe.New(0)
	if df.Last() != -1 {
		t.Fatalf("expected Last() == -1 for an empty frame, got %d", df.Last())
	}

	df2 := dataframe.New(4)
	for i := range df2.Close {
		df2.Close[i] = float64(i) * 10
	}
	df2.Time[0] = time.Unix(0, 0)

	if df2.Last() != 3 {
		t.Fatalf("expected Last() == 3, got %d", df2.Last())
	}
	if df2.At(df2.Last()) != 30 {
		t.Fatalf("expected At(Last()) == 30, got %f", df2.At(df2.Last()))
	}
}
