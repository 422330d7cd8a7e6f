// Package types provides shared type definitions for the paper-trading engine.
package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Timeframe represents candle intervals accepted by the market data adapter.
type Timeframe string

const (
	Timeframe1m  Timeframe = "1m"
	Timeframe5m  Timeframe = "5m"
	Timeframe15m Timeframe = "15m"
	Timeframe1h  Timeframe = "1h"
	Timeframe4h  Timeframe = "4h"
	Timeframe1d  Timeframe = "1d"
)

// OHLCV represents a single candlestick.
type OHLCV struct {
	Timestamp time.Time       `json:"timestamp"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	Volume    decimal.Decimal `json:"volume"`
}

// TradeSide is the side of a paper trade leg.
type TradeSide string

const (
	TradeSideBuy  TradeSide = "BUY"
	TradeSideSell TradeSide = "SELL"
)

// SessionStatus is the lifecycle state of a Session.
type SessionStatus string

const (
	SessionStatusActive  SessionStatus = "active"
	SessionStatusStopped SessionStatus = "stopped"
)

// ExecutionMode controls whether the engine acts on every observed signal or
// only on a freshly crossed one while flat.
type ExecutionMode string

const (
	ExecutionModeSync ExecutionMode = "sync"
	ExecutionModeEdge ExecutionMode = "edge"
)

// Strategy is a parameterized, optimized algorithm bound to one market.
// Immutable after creation; deletion cascades to sessions, trades and snapshots.
type Strategy struct {
	ID                string          `json:"id"`
	Name              string          `json:"name"`
	StrategyType      string          `json:"strategyType"`
	Symbol            string          `json:"symbol"`
	Interval          string          `json:"interval"`
	Parameters        []byte          `json:"parameters"`
	PerformanceMetrics []byte         `json:"performanceMetrics,omitempty"`
	BacktestCurve     []byte          `json:"backtestCurve,omitempty"`
	KellyFraction     decimal.NullDecimal `json:"kellyFraction,omitempty"`
	CreatedAt         time.Time       `json:"createdAt"`
}

// Session is a running paper-trade instance of one Strategy.
//
// Invariant: CurrentPosition != 0 iff both EntryPrice and EntryEquity are set.
type Session struct {
	ID              string          `json:"id"`
	StrategyID      string          `json:"strategyId"`
	Symbol          string          `json:"symbol"`
	Interval        string          `json:"interval"`
	InitialCapital  decimal.Decimal `json:"initialCapital"`
	CurrentEquity   decimal.Decimal `json:"currentEquity"`
	EntryEquity     decimal.NullDecimal `json:"entryEquity"`
	CurrentPosition decimal.Decimal `json:"currentPosition"` // -1, 0, +1
	EntryPrice      decimal.NullDecimal `json:"entryPrice"`
	Status          SessionStatus   `json:"status"`
	ExecutionMode   ExecutionMode   `json:"executionMode"`

	// HighestHigh/LowestLow/AllocatedWeight are supplemental analytics fields
	// carried from the original model; the engine updates the extent fields
	// but no state transition depends on them.
	HighestHigh     decimal.NullDecimal `json:"highestHigh,omitempty"`
	LowestLow       decimal.NullDecimal `json:"lowestLow,omitempty"`
	AllocatedWeight float64             `json:"allocatedWeight,omitempty"`

	LastUpdate time.Time `json:"lastUpdate"`
	CreatedAt  time.Time `json:"createdAt"`
}

// HasPosition reports whether the session currently holds a nonzero exposure.
func (s *Session) HasPosition() bool {
	return !s.CurrentPosition.IsZero()
}

// Trade is an append-only audit record of a paper trade. Quantity is always
// zero: sizing is encoded purely through Session.CurrentPosition.
type Trade struct {
	ID        string          `json:"id"`
	SessionID string          `json:"sessionId"`
	Symbol    string          `json:"symbol"`
	Side      TradeSide       `json:"side"`
	Price     decimal.Decimal `json:"price"`
	Quantity  decimal.Decimal `json:"quantity"`
	PnL       decimal.NullDecimal `json:"pnl"`
	Reason    string          `json:"reason,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// EquitySnapshot is an append-only equity time series point for one session.
type EquitySnapshot struct {
	ID        int64           `json:"id"`
	SessionID string          `json:"sessionId"`
	Equity    decimal.Decimal `json:"equity"`
	Timestamp time.Time       `json:"timestamp"`
}

// PortfolioCachePoint is one row of the derived minute-resolution total-equity
// timeline rebuilt by the Portfolio Manager.
type PortfolioCachePoint struct {
	Timestamp   time.Time       `json:"timestamp"`
	TotalEquity decimal.Decimal `json:"totalEquity"`
}

// BacktestResult is the objective-function output consumed by the optimizer
// and persisted (downsampled) by the Strategy Generator.
type BacktestResult struct {
	SharpeRatio     float64   `json:"sharpeRatio"`
	TotalReturnPct  float64   `json:"totalReturnPct"`
	MaxDrawdownPct  float64   `json:"maxDrawdownPct"`
	WinRate         float64   `json:"winRate"`
	ProfitFactor    float64   `json:"profitFactor"`
	TotalTrades     int       `json:"totalTrades"`
	KellyFraction   float64   `json:"kellyFraction"`
	EquityCurve     []float64 `json:"equityCurve"`
}
