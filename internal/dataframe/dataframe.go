// Package dataframe implements the columnar pipeline medium that feature
// engineering and signal generation communicate through: a set of named
// float64 columns sharing one row count. Any columnar library would satisfy
// the contract; this one is a direct slice-based translation since the
// example pack carries no Go dataframe dependency to wire against (see
// DESIGN.md).
package dataframe

import "time"

// DataFrame is a columnar table: `time` plus OHLCV plus any number of
// derived feature columns, all aligned by row index.
type DataFrame struct {
	Time   []time.Time
	Open   []float64
	High   []float64
	Low    []float64
	Close  []float64
	Volume []float64

	Features map[string][]float64
}

// New allocates a DataFrame with n preallocated rows of OHLCV data and an
// empty feature column set.
func New(n int) *DataFrame {
	return &DataFrame{
		Time:     make([]time.Time, n),
		Open:     make([]float64, n),
		High:     make([]float64, n),
		Low:      make([]float64, n),
		Close:    make([]float64, n),
		Volume:   make([]float64, n),
		Features: make(map[string][]float64),
	}
}

// Len returns the row count.
func (df *DataFrame) Len() int { return len(df.Close) }

// SetFeature attaches a derived column. col must have the same length as the
// frame's row count.
func (df *DataFrame) SetFeature(name string, col []float64) {
	if df.Features == nil {
		df.Features = make(map[string][]float64)
	}
	df.Features[name] = col
}

// Feature returns a named derived column, or nil if absent.
func (df *DataFrame) Feature(name string) []float64 {
	return df.Features[name]
}

// At returns the closing price at row i; used throughout the strategy
// catalogue as the canonical "price" series.
func (df *DataFrame) At(i int) float64 { return df.Close[i] }

// Last returns the index of the final row, or -1 if the frame is empty.
func (df *DataFrame) Last() int { return df.Len() - 1 }
