// Package engine implements the Trading Engine: a supervisor loop that
// subscribes to live klines for every symbol with an active session,
// mark-to-markets every session on each tick, and evaluates each session's
// strategy (on closed bars only) to decide whether to flip position.
//
// Grounded on the teacher's internal/orchestrator supervisor-loop shape
// (restart-with-backoff around a streaming subscription) and on
// original_source/backend/src/services/trading_engine.rs for the exact
// execute_paper_trade state machine and MtM persistence thresholds.
package engine

import (
	"context"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/atlas-desktop/krypto-paper/internal/apperr"
	"github.com/atlas-desktop/krypto-paper/internal/dbstore"
	"github.com/atlas-desktop/krypto-paper/internal/features"
	"github.com/atlas-desktop/krypto-paper/internal/marketdata"
	"github.com/atlas-desktop/krypto-paper/internal/strategy"
	"github.com/atlas-desktop/krypto-paper/pkg/types"
	"go.uber.org/zap"
)

const (
	candleLookback  = 500
	refreshInterval = 30 * time.Second
	emptyPollDelay  = 5 * time.Second

	// mtmEquityEpsilon is the minimum equity delta (absolute) that counts as
	// a "change" worth persisting on a non-final bar.
	mtmEquityEpsilon = 1e-6
)

// Config carries the engine's persistence tunables. The subscription refresh
// tick is not configurable here: it is the fixed refreshInterval constant.
type Config struct {
	SnapshotCooldown    time.Duration
	MtMPersistThreshold time.Duration
}

// Engine is the Trading Engine supervisor.
type Engine struct {
	store  *dbstore.Store
	market *marketdata.Adapter
	logger *zap.Logger
	cfg    Config

	mu sync.Mutex
	// lastSessionWriteAt gates the sessions-row MtM write (§4.1: forced on a
	// final bar, otherwise only every MtMPersistThreshold and only when
	// equity actually moved).
	lastSessionWriteAt map[string]time.Time
	// lastWrittenSnapshotAt is the last time an equity_snapshots row was
	// actually inserted for a session, distinct from the session-write gate
	// above so the two cadences never conflate.
	lastWrittenSnapshotAt map[string]time.Time
}

// New constructs an Engine.
func New(store *dbstore.Store, market *marketdata.Adapter, logger *zap.Logger, cfg Config) *Engine {
	return &Engine{
		store:                 store,
		market:                market,
		logger:                logger.Named("engine"),
		cfg:                   cfg,
		lastSessionWriteAt:    make(map[string]time.Time),
		lastWrittenSnapshotAt: make(map[string]time.Time),
	}
}

// Run is the supervisor loop: it discovers active symbols, opens a combined
// stream, and restarts the stream whenever it dies or the active-symbol set
// changes, until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) {
	backoff := time.Second
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		symbols, err := e.store.ActiveSymbols(ctx)
		if err != nil {
			e.logger.Error("load active symbols", zap.Error(err))
			time.Sleep(backoff)
			backoff = nextBackoff(backoff)
			continue
		}
		if len(symbols) == 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(emptyPollDelay):
			}
			continue
		}

		if err := e.runStream(ctx, symbols); err != nil {
			e.logger.Error("stream session ended", zap.Error(err))
			time.Sleep(backoff)
			backoff = nextBackoff(backoff)
			continue
		}
		backoff = time.Second
	}
}

func nextBackoff(cur time.Duration) time.Duration {
	next := cur * 2
	if next > 30*time.Second {
		return 30 * time.Second
	}
	return next
}

// runStream opens one combined stream for symbols and services it until the
// stream ends or a refresh tick finds the active symbol set has changed.
func (e *Engine) runStream(ctx context.Context, symbols []string) error {
	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	events, err := e.market.StartStream(streamCtx, symbols)
	if err != nil {
		return err
	}
	defer e.market.Stop()

	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-events:
			if !ok {
				return apperr.NewMarketAPI("stream closed", nil)
			}
			e.handleKline(ctx, evt)

		case <-ticker.C:
			fresh, err := e.store.ActiveSymbols(ctx)
			if err != nil {
				e.logger.Warn("refresh active symbols", zap.Error(err))
				continue
			}
			if !sameSymbolSet(symbols, fresh) {
				return nil // supervisor loop reopens the stream with the new set
			}
		}
	}
}

func sameSymbolSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]bool, len(a))
	for _, s := range a {
		seen[s] = true
	}
	for _, s := range b {
		if !seen[s] {
			return false
		}
	}
	return true
}

// handleKline is the per-event pipeline: MtM every active session on symbol
// regardless of bar finality, then evaluate strategies on final bars only.
func (e *Engine) handleKline(ctx context.Context, evt marketdata.KlineEvent) {
	symbol := strings.ToUpper(evt.Symbol)
	eventsProcessed.WithLabelValues(symbol).Inc()

	sessions, err := e.store.ActiveSessionsForSymbol(ctx, symbol)
	if err != nil {
		e.logger.Error("load sessions", zap.String("symbol", symbol), zap.Error(err))
		return
	}
	if len(sessions) == 0 {
		return
	}

	now := time.Now()
	for _, sess := range sessions {
		e.markToMarket(ctx, sess, evt, now)
	}

	if !evt.IsFinal {
		return
	}
	for _, sess := range sessions {
		e.evaluateStrategy(ctx, sess, now)
	}
}

// markToMarket updates current_equity from entry_equity basis (never from a
// compounding current_equity basis) and extends highest_high/lowest_low.
// Per §4.1 the sessions-row write itself is gated, not just the snapshot: it
// happens only when the bar is final, or when equity has moved by more than
// mtmEquityEpsilon AND at least MtMPersistThreshold has elapsed since the
// last write. A snapshot row is inserted on top of that write only when the
// bar is final or the (separately tracked) snapshot cooldown has elapsed, so
// a held position on a final bar always gets a snapshot even if the MtM
// cadence would otherwise have suppressed one.
func (e *Engine) markToMarket(ctx context.Context, sess *types.Session, evt marketdata.KlineEvent, now time.Time) {
	if !sess.HasPosition() || !sess.EntryEquity.Valid || !sess.EntryPrice.Valid {
		return
	}

	entryEquity := sess.EntryEquity.Decimal.InexactFloat64()
	entryPrice := sess.EntryPrice.Decimal.InexactFloat64()
	if entryPrice == 0 {
		return
	}
	position := sess.CurrentPosition.InexactFloat64()
	equity := entryEquity * (1 + position*(evt.Close-entryPrice)/entryPrice)
	currentEquity := sess.CurrentEquity.InexactFloat64()

	var highestHigh, lowestLow *float64
	if !sess.HighestHigh.Valid || evt.High > sess.HighestHigh.Decimal.InexactFloat64() {
		h := evt.High
		highestHigh = &h
	}
	if !sess.LowestLow.Valid || evt.Low < sess.LowestLow.Decimal.InexactFloat64() {
		l := evt.Low
		lowestLow = &l
	}

	e.mu.Lock()
	lastWrite, haveWrite := e.lastSessionWriteAt[sess.ID]
	lastSnapshot, haveSnapshot := e.lastWrittenSnapshotAt[sess.ID]
	e.mu.Unlock()

	moved := math.Abs(equity-currentEquity) > mtmEquityEpsilon
	staleEnough := !haveWrite || now.Sub(lastWrite) >= e.cfg.MtMPersistThreshold
	writeSession := evt.IsFinal || (moved && staleEnough)
	if !writeSession {
		return
	}

	withSnapshot := evt.IsFinal || !haveSnapshot || now.Sub(lastSnapshot) >= e.cfg.SnapshotCooldown

	if err := e.store.UpdateEquityOnly(ctx, sess.ID, equity, now, withSnapshot, highestHigh, lowestLow); err != nil {
		e.logger.Error("persist MtM", zap.String("session", sess.ID), zap.Error(err))
		return
	}

	e.mu.Lock()
	e.lastSessionWriteAt[sess.ID] = now
	if withSnapshot {
		e.lastWrittenSnapshotAt[sess.ID] = now
	}
	e.mu.Unlock()

	if withSnapshot {
		mtmPersists.Inc()
	}
}

// evaluateStrategy fetches recent candles, runs the bound strategy, and
// drives execute_paper_trade when the resulting target position differs
// from the session's current one (subject to execution-mode filtering).
func (e *Engine) evaluateStrategy(ctx context.Context, sess *types.Session, now time.Time) {
	st, err := e.store.GetStrategy(ctx, sess.StrategyID)
	if err != nil {
		e.logger.Error("load strategy", zap.String("session", sess.ID), zap.Error(err))
		return
	}

	strat, ok, err := strategy.Deserialize(st.StrategyType, st.Parameters)
	if err != nil || !ok {
		e.logger.Error("deserialize strategy", zap.String("strategy_type", st.StrategyType), zap.Error(err))
		return
	}

	df, err := e.market.FetchCandles(ctx, sess.Symbol, sess.Interval, candleLookback)
	if err != nil {
		e.logger.Error("fetch candles", zap.String("symbol", sess.Symbol), zap.Error(err))
		return
	}
	features.NewEngine().AddTechnicals(df)

	signal := strat.Predict(df)
	if len(signal) == 0 {
		return
	}
	current := sess.CurrentPosition.InexactFloat64()
	latest, previous := latestAndPrevious(signal)
	target := executionModeFilter(sess.ExecutionMode, current, latest, previous)

	if target == current {
		return
	}

	price := df.Close[df.Last()]
	e.executePaperTrade(ctx, sess, target, price, now)
}

// latestAndPrevious returns the final two signal values (the second repeated
// if the series has only one row, so a fresh session sees no crossing).
func latestAndPrevious(signal []float64) (latest, previous float64) {
	latest = signal[len(signal)-1]
	previous = latest
	if len(signal) >= 2 {
		previous = signal[len(signal)-2]
	}
	return latest, previous
}

// executionModeFilter implements the edge-mode suppression: when flat and in
// edge mode, a signal that hasn't freshly crossed (|latest-previous| < 0.01)
// is overridden to 0 rather than re-entering on a pre-existing signal.
func executionModeFilter(mode types.ExecutionMode, currentPosition float64, latest, previous float64) float64 {
	if mode == types.ExecutionModeEdge && currentPosition == 0 && math.Abs(latest-previous) < 0.01 {
		return 0
	}
	return latest
}

// executePaperTrade is the state transition: closing the existing leg (if
// any) settles PnL against the entry_equity basis, opening a new leg resets
// entry_price/entry_equity to the current mark. Both legs, the session
// update, and a forced equity snapshot commit in one transaction.
func (e *Engine) executePaperTrade(ctx context.Context, sess *types.Session, target, price float64, now time.Time) {
	position := sess.CurrentPosition.InexactFloat64()
	var entryPriceIn, entryEquityIn float64
	entryValid := sess.EntryEquity.Valid && sess.EntryPrice.Valid
	if entryValid {
		entryPriceIn = sess.EntryPrice.Decimal.InexactFloat64()
		entryEquityIn = sess.EntryEquity.Decimal.InexactFloat64()
	}

	legs, equity, entryPrice, entryEquity := planTransition(
		position, sess.CurrentEquity.InexactFloat64(),
		entryValid, entryPriceIn, entryEquityIn,
		target, price,
	)

	if err := e.store.ExecuteTransition(ctx, sess, legs, equity, target, entryPrice, entryEquity, now); err != nil {
		e.logger.Error("execute paper trade", zap.String("session", sess.ID), zap.Error(err))
		return
	}
	for _, leg := range legs {
		tradesExecuted.WithLabelValues(string(leg.Side)).Inc()
	}

	e.mu.Lock()
	e.lastSessionWriteAt[sess.ID] = now
	e.lastWrittenSnapshotAt[sess.ID] = now
	e.mu.Unlock()
}

// planTransition computes the trade legs and resulting equity/entry state for
// a position change from position (at currentEquity, with an optional
// existing entry basis) to target at price. It holds no I/O and no session
// reference so the S1-S4 state-machine scenarios can be checked directly
// against it.
func planTransition(position, currentEquity float64, entryValid bool, entryPrice, entryEquity float64, target, price float64) (legs []dbstore.TradeLeg, newEquity float64, newEntryPrice, newEntryEquity *float64) {
	newEquity = currentEquity

	if position != 0 && entryValid && entryPrice != 0 {
		settled := entryEquity * (1 + position*(price-entryPrice)/entryPrice)
		pnl := settled - entryEquity
		newEquity = settled
		legs = append(legs, dbstore.TradeLeg{
			Side:   closeSide(position),
			Price:  price,
			PnL:    &pnl,
			Reason: "strategy_signal_close",
		})
	}

	if target != 0 {
		p := price
		eq := newEquity
		newEntryPrice = &p
		newEntryEquity = &eq
		legs = append(legs, dbstore.TradeLeg{
			Side:   openSide(target),
			Price:  price,
			Reason: "strategy_signal_open",
		})
	}

	return legs, newEquity, newEntryPrice, newEntryEquity
}

func closeSide(position float64) types.TradeSide {
	if position > 0 {
		return types.TradeSideSell
	}
	return types.TradeSideBuy
}

func openSide(target float64) types.TradeSide {
	if target > 0 {
		return types.TradeSideBuy
	}
	return types.TradeSideSell
}
