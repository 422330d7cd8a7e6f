// Package portfolio implements the Portfolio Manager: a periodic job that
// merges every session's equity_snapshots series into one minute-resolution
// total-equity timeline via forward-fill, then rebuilds the persisted
// portfolio_cache from it.
//
// Grounded directly on original_source/backend/src/services/portfolio_manager.rs's
// merge-forward-fill algorithm, restyled into the teacher's ticker-loop idiom
// (internal/workers' run-on-ticker shape, before that package was trimmed).
package portfolio

import (
	"context"
	"sort"
	"time"

	"github.com/atlas-desktop/krypto-paper/internal/dbstore"
	"github.com/atlas-desktop/krypto-paper/pkg/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Manager periodically rebuilds the portfolio_cache table.
type Manager struct {
	store        *dbstore.Store
	logger       *zap.Logger
	tickInterval time.Duration
}

// New constructs a Manager.
func New(store *dbstore.Store, logger *zap.Logger, tickInterval time.Duration) *Manager {
	return &Manager{store: store, logger: logger.Named("portfolio"), tickInterval: tickInterval}
}

// Run executes one rebuild immediately, then on every tick until ctx is
// cancelled.
func (m *Manager) Run(ctx context.Context) {
	m.tick(ctx)

	ticker := time.NewTicker(m.tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.tick(ctx)
		}
	}
}

func (m *Manager) tick(ctx context.Context) {
	snapshots, err := m.store.AllSnapshotsOrdered(ctx)
	if err != nil {
		m.logger.Error("load snapshots", zap.Error(err))
		return
	}
	if len(snapshots) == 0 {
		return
	}

	points := MergeForwardFill(snapshots)
	if err := m.store.RebuildPortfolioCache(ctx, points); err != nil {
		m.logger.Error("rebuild portfolio cache", zap.Error(err))
		return
	}
	m.logger.Debug("portfolio cache rebuilt", zap.Int("points", len(points)))
}

// MergeForwardFill walks every session's equity series on a shared minute
// grid spanning the earliest to latest snapshot, forward-filling each
// session's last known equity at every minute it has no fresh sample, and
// summing across sessions to produce the total-equity timeline.
//
// A session contributes nothing before its own first snapshot: it has not
// started yet and should not be implicitly valued at zero or its neighbor's
// equity.
func MergeForwardFill(snapshots []types.EquitySnapshot) []types.PortfolioCachePoint {
	if len(snapshots) == 0 {
		return nil
	}

	bySession := make(map[string][]types.EquitySnapshot)
	for _, s := range snapshots {
		bySession[s.SessionID] = append(bySession[s.SessionID], s)
	}
	for _, series := range bySession {
		sort.Slice(series, func(i, j int) bool { return series[i].Timestamp.Before(series[j].Timestamp) })
	}

	start := snapshots[0].Timestamp
	end := snapshots[0].Timestamp
	for _, s := range snapshots {
		if s.Timestamp.Before(start) {
			start = s.Timestamp
		}
		if s.Timestamp.After(end) {
			end = s.Timestamp
		}
	}
	start = start.Truncate(time.Minute)
	end = end.Truncate(time.Minute)

	cursor := make(map[string]int, len(bySession))
	lastKnown := make(map[string]decimal.Decimal, len(bySession))
	started := make(map[string]bool, len(bySession))

	var points []types.PortfolioCachePoint
	for t := start; !t.After(end); t = t.Add(time.Minute) {
		for sessionID, series := range bySession {
			idx := cursor[sessionID]
			for idx < len(series) && !series[idx].Timestamp.After(t) {
				lastKnown[sessionID] = series[idx].Equity
				started[sessionID] = true
				idx++
			}
			cursor[sessionID] = idx
		}

		total := decimal.Zero
		for sessionID := range bySession {
			if started[sessionID] {
				total = total.Add(lastKnown[sessionID])
			}
		}
		points = append(points, types.PortfolioCachePoint{Timestamp: t, TotalEquity: total})
	}
	return points
}
