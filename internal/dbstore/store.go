// Package dbstore is the Postgres persistence layer: schema migration and
// the CRUD/transactional operations the Trading Engine, Portfolio Manager,
// Strategy Generator, and HTTP API all share a single pool through.
//
// Grounded on marksmithsgit-go-trader's internal/db/logger.go: pgxpool.New
// + an idempotent `create table if not exists` ensureSchema, pool.Exec /
// pool.Query + rows.Scan query helpers, and coalesce() for nullable JSON
// columns. The teacher itself (benedict-anokye-davies-atlas-ai) has no real
// database — this package is the supplementary dependency SPEC_FULL.md's
// domain stack calls for.
package dbstore

import (
	"context"
	"fmt"
	"time"

	"github.com/atlas-desktop/krypto-paper/internal/apperr"
	"github.com/atlas-desktop/krypto-paper/pkg/types"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Store wraps a pgx connection pool and exposes the schema's CRUD surface.
type Store struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// Open creates a connection pool against dsn and ensures the schema exists.
func Open(ctx context.Context, dsn string, logger *zap.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, apperr.NewDatabase("pgxpool.New", err)
	}
	s := &Store{pool: pool, logger: logger.Named("dbstore")}
	if err := s.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the pool.
func (s *Store) Close() { s.pool.Close() }

// wrapCommit turns a tx.Commit result into a nil error on success, or a
// Database-kind apperr otherwise.
func wrapCommit(op string, err error) error {
	if err == nil {
		return nil
	}
	return apperr.NewDatabase(op, err)
}

func (s *Store) ensureSchema(ctx context.Context) error {
	stmts := []string{
		`create table if not exists strategies (
			id uuid primary key,
			name text not null,
			strategy_type text not null,
			symbol text not null,
			interval text not null,
			parameters jsonb,
			performance_metrics jsonb,
			backtest_curve jsonb,
			kelly_fraction double precision,
			created_at timestamptz not null default now()
		)`,
		`create table if not exists sessions (
			id uuid primary key,
			strategy_id uuid not null references strategies(id) on delete cascade,
			symbol text not null,
			interval text not null,
			initial_capital double precision not null,
			current_equity double precision not null,
			entry_equity double precision,
			current_position double precision not null default 0,
			entry_price double precision,
			status text not null default 'active',
			execution_mode text not null default 'sync',
			highest_high double precision,
			lowest_low double precision,
			allocated_weight double precision not null default 0,
			last_update timestamptz not null default now(),
			created_at timestamptz not null default now()
		)`,
		`create index if not exists idx_sessions_symbol_status on sessions(symbol, status)`,
		`create table if not exists trades (
			id uuid primary key,
			session_id uuid not null references sessions(id) on delete cascade,
			symbol text not null,
			side text not null,
			price double precision not null,
			quantity double precision not null default 0,
			pnl double precision,
			reason text,
			timestamp timestamptz not null default now()
		)`,
		`create index if not exists idx_trades_session on trades(session_id, timestamp desc)`,
		`create table if not exists equity_snapshots (
			id bigserial primary key,
			session_id uuid not null references sessions(id) on delete cascade,
			equity double precision not null,
			timestamp timestamptz not null default now()
		)`,
		`create index if not exists idx_snapshots_session_ts on equity_snapshots(session_id, timestamp)`,
		`create table if not exists portfolio_cache (
			timestamp timestamptz primary key,
			total_equity double precision not null
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return apperr.NewDatabase("ensureSchema", err)
		}
	}
	return nil
}

// ActiveSymbols returns the distinct set of symbols with at least one active
// session, driving the Trading Engine's subscription-refresh tick.
func (s *Store) ActiveSymbols(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `select distinct symbol from sessions where status = 'active' order by symbol`)
	if err != nil {
		return nil, apperr.NewDatabase("ActiveSymbols", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var sym string
		if err := rows.Scan(&sym); err != nil {
			return nil, apperr.NewDatabase("ActiveSymbols scan", err)
		}
		out = append(out, sym)
	}
	return out, rows.Err()
}

// ActiveSessionsForSymbol loads every active session trading symbol.
func (s *Store) ActiveSessionsForSymbol(ctx context.Context, symbol string) ([]*types.Session, error) {
	rows, err := s.pool.Query(ctx, `select id, strategy_id, symbol, interval, initial_capital, current_equity,
			entry_equity, current_position, entry_price, status, execution_mode,
			highest_high, lowest_low, allocated_weight, last_update, created_at
		from sessions where symbol = $1 and status = 'active'`, symbol)
	if err != nil {
		return nil, apperr.NewDatabase("ActiveSessionsForSymbol", err)
	}
	defer rows.Close()

	var out []*types.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

func scanSession(row pgx.Row) (*types.Session, error) {
	var sess types.Session
	var entryEquity, entryPrice, highestHigh, lowestLow *float64
	var status, mode string
	if err := row.Scan(&sess.ID, &sess.StrategyID, &sess.Symbol, &sess.Interval,
		decimalScanner{&sess.InitialCapital}, decimalScanner{&sess.CurrentEquity},
		&entryEquity, decimalScanner{&sess.CurrentPosition}, &entryPrice, &status, &mode,
		&highestHigh, &lowestLow, &sess.AllocatedWeight, &sess.LastUpdate, &sess.CreatedAt); err != nil {
		return nil, apperr.NewDatabase("scanSession", err)
	}
	sess.Status = types.SessionStatus(status)
	sess.ExecutionMode = types.ExecutionMode(mode)
	if entryEquity != nil {
		sess.EntryEquity = decimal.NewNullDecimal(decimal.NewFromFloat(*entryEquity))
	}
	if entryPrice != nil {
		sess.EntryPrice = decimal.NewNullDecimal(decimal.NewFromFloat(*entryPrice))
	}
	if highestHigh != nil {
		sess.HighestHigh = decimal.NewNullDecimal(decimal.NewFromFloat(*highestHigh))
	}
	if lowestLow != nil {
		sess.LowestLow = decimal.NewNullDecimal(decimal.NewFromFloat(*lowestLow))
	}
	return &sess, nil
}

// decimalScanner adapts a *decimal.Decimal destination to pgx's Scan, which
// expects a float64-compatible target for a double precision column.
type decimalScanner struct{ dst *decimal.Decimal }

func (d decimalScanner) Scan(src any) error {
	switch v := src.(type) {
	case float64:
		*d.dst = decimal.NewFromFloat(v)
	case nil:
		*d.dst = decimal.Zero
	default:
		return fmt.Errorf("decimalScanner: unsupported type %T", src)
	}
	return nil
}

// GetStrategy loads a strategy row by id.
func (s *Store) GetStrategy(ctx context.Context, id string) (*types.Strategy, error) {
	row := s.pool.QueryRow(ctx, `select id, name, strategy_type, symbol, interval, parameters,
			coalesce(performance_metrics, 'null'), coalesce(backtest_curve, 'null'), kelly_fraction, created_at
		from strategies where id = $1`, id)

	var st types.Strategy
	var kelly *float64
	if err := row.Scan(&st.ID, &st.Name, &st.StrategyType, &st.Symbol, &st.Interval, &st.Parameters,
		&st.PerformanceMetrics, &st.BacktestCurve, &kelly, &st.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperr.NewNotFound("strategy not found")
		}
		return nil, apperr.NewDatabase("GetStrategy", err)
	}
	if kelly != nil {
		st.KellyFraction = decimal.NewNullDecimal(decimal.NewFromFloat(*kelly))
	}
	return &st, nil
}

// InsertStrategy persists a newly generated/created strategy.
func (s *Store) InsertStrategy(ctx context.Context, st *types.Strategy) error {
	if st.ID == "" {
		st.ID = uuid.NewString()
	}
	_, err := s.pool.Exec(ctx, `insert into strategies
			(id, name, strategy_type, symbol, interval, parameters, performance_metrics, backtest_curve, kelly_fraction)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		st.ID, st.Name, st.StrategyType, st.Symbol, st.Interval, st.Parameters,
		st.PerformanceMetrics, st.BacktestCurve, nullableDecimal(st.KellyFraction))
	if err != nil {
		return apperr.NewDatabase("InsertStrategy", err)
	}
	return nil
}

// DeleteStrategy cascades to sessions/trades/snapshots via FK constraints.
func (s *Store) DeleteStrategy(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `delete from strategies where id = $1`, id)
	if err != nil {
		return apperr.NewDatabase("DeleteStrategy", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NewNotFound("strategy not found")
	}
	return nil
}

// CreateSession creates a session and its seed equity snapshot in one
// transaction.
func (s *Store) CreateSession(ctx context.Context, sess *types.Session) error {
	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return apperr.NewDatabase("CreateSession begin", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `insert into sessions
			(id, strategy_id, symbol, interval, initial_capital, current_equity, current_position,
			 status, execution_mode, allocated_weight, last_update, created_at)
		values ($1,$2,$3,$4,$5,$6,0,'active',$7,$8, now(), now())`,
		sess.ID, sess.StrategyID, sess.Symbol, sess.Interval,
		sess.InitialCapital.InexactFloat64(), sess.InitialCapital.InexactFloat64(),
		string(sess.ExecutionMode), sess.AllocatedWeight)
	if err != nil {
		return apperr.NewDatabase("CreateSession insert", err)
	}

	if _, err := tx.Exec(ctx, `insert into equity_snapshots (session_id, equity, timestamp) values ($1,$2, now())`,
		sess.ID, sess.InitialCapital.InexactFloat64()); err != nil {
		return apperr.NewDatabase("CreateSession seed snapshot", err)
	}
	return wrapCommit("CreateSession commit", tx.Commit(ctx))
}

// ResetSessions deletes all trades, snapshots, and sessions transactionally.
func (s *Store) ResetSessions(ctx context.Context) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return apperr.NewDatabase("ResetSessions begin", err)
	}
	defer tx.Rollback(ctx)
	for _, stmt := range []string{`delete from trades`, `delete from equity_snapshots`, `delete from sessions`} {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return apperr.NewDatabase("ResetSessions", err)
		}
	}
	return wrapCommit("ResetSessions commit", tx.Commit(ctx))
}

// UpdateEquityOnly persists an MtM-only update: current_equity + last_update
// (and, when non-nil, an extended highest_high/lowest_low), plus optionally
// an equity snapshot when the caller has already determined the per-session
// cooldown has elapsed.
func (s *Store) UpdateEquityOnly(ctx context.Context, sessionID string, equity float64, now time.Time, withSnapshot bool, highestHigh, lowestLow *float64) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return apperr.NewDatabase("UpdateEquityOnly begin", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `update sessions set current_equity = $2, last_update = $3,
			highest_high = coalesce($4, highest_high), lowest_low = coalesce($5, lowest_low)
		where id = $1`,
		sessionID, equity, now, highestHigh, lowestLow); err != nil {
		return apperr.NewDatabase("UpdateEquityOnly update", err)
	}
	if withSnapshot {
		if _, err := tx.Exec(ctx, `insert into equity_snapshots (session_id, equity, timestamp) values ($1,$2,$3)`,
			sessionID, equity, now); err != nil {
			return apperr.NewDatabase("UpdateEquityOnly snapshot", err)
		}
	}
	return wrapCommit("UpdateEquityOnly commit", tx.Commit(ctx))
}

// TradeLeg is one leg (closing and/or opening) of an execute_paper_trade
// transition.
type TradeLeg struct {
	Side   types.TradeSide
	Price  float64
	PnL    *float64
	Reason string
}

// ExecuteTransition performs the execute_paper_trade state machine's
// durable side effects atomically: zero or more trade inserts, the session
// row update, and one forced equity snapshot.
func (s *Store) ExecuteTransition(ctx context.Context, sess *types.Session, legs []TradeLeg, newEquity, newPosition float64, entryPrice, entryEquity *float64, now time.Time) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return apperr.NewDatabase("ExecuteTransition begin", err)
	}
	defer tx.Rollback(ctx)

	for _, leg := range legs {
		if _, err := tx.Exec(ctx, `insert into trades (id, session_id, symbol, side, price, quantity, pnl, reason, timestamp)
			values ($1,$2,$3,$4,$5,0,$6,$7,$8)`,
			uuid.NewString(), sess.ID, sess.Symbol, string(leg.Side), leg.Price, leg.PnL, leg.Reason, now); err != nil {
			return apperr.NewDatabase("ExecuteTransition insert trade", err)
		}
	}

	if _, err := tx.Exec(ctx, `update sessions set current_equity=$2, current_position=$3, entry_price=$4,
			entry_equity=$5, last_update=$6 where id=$1`,
		sess.ID, newEquity, newPosition, entryPrice, entryEquity, now); err != nil {
		return apperr.NewDatabase("ExecuteTransition update session", err)
	}

	if _, err := tx.Exec(ctx, `insert into equity_snapshots (session_id, equity, timestamp) values ($1,$2,$3)`,
		sess.ID, newEquity, now); err != nil {
		return apperr.NewDatabase("ExecuteTransition snapshot", err)
	}

	return wrapCommit("ExecuteTransition commit", tx.Commit(ctx))
}

// AllSnapshotsOrdered returns every equity_snapshots row ordered by
// ascending timestamp, feeding the Portfolio Manager's merge-forward-fill.
func (s *Store) AllSnapshotsOrdered(ctx context.Context) ([]types.EquitySnapshot, error) {
	rows, err := s.pool.Query(ctx, `select id, session_id, equity, timestamp from equity_snapshots order by timestamp asc`)
	if err != nil {
		return nil, apperr.NewDatabase("AllSnapshotsOrdered", err)
	}
	defer rows.Close()
	var out []types.EquitySnapshot
	for rows.Next() {
		var snap types.EquitySnapshot
		var equity float64
		if err := rows.Scan(&snap.ID, &snap.SessionID, &equity, &snap.Timestamp); err != nil {
			return nil, apperr.NewDatabase("AllSnapshotsOrdered scan", err)
		}
		snap.Equity = decimal.NewFromFloat(equity)
		out = append(out, snap)
	}
	return out, rows.Err()
}

// RebuildPortfolioCache truncates portfolio_cache and bulk-inserts points in
// chunks of 5000 rows, all within one transaction (idempotent by truncate).
func (s *Store) RebuildPortfolioCache(ctx context.Context, points []types.PortfolioCachePoint) error {
	const chunkSize = 5000
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return apperr.NewDatabase("RebuildPortfolioCache begin", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `truncate table portfolio_cache`); err != nil {
		return apperr.NewDatabase("RebuildPortfolioCache truncate", err)
	}

	for start := 0; start < len(points); start += chunkSize {
		end := start + chunkSize
		if end > len(points) {
			end = len(points)
		}
		batch := &pgx.Batch{}
		for _, p := range points[start:end] {
			batch.Queue(`insert into portfolio_cache (timestamp, total_equity) values ($1,$2)`,
				p.Timestamp, p.TotalEquity.InexactFloat64())
		}
		br := tx.SendBatch(ctx, batch)
		for i := 0; i < batch.Len(); i++ {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return apperr.NewDatabase("RebuildPortfolioCache batch insert", err)
			}
		}
		if err := br.Close(); err != nil {
			return apperr.NewDatabase("RebuildPortfolioCache batch close", err)
		}
	}

	return wrapCommit("RebuildPortfolioCache commit", tx.Commit(ctx))
}

// PortfolioHistory reads the cached minute-resolution total-equity series
// for the last rangeDays (0 = all history).
func (s *Store) PortfolioHistory(ctx context.Context, rangeDays int) ([]types.PortfolioCachePoint, error) {
	var rows pgx.Rows
	var err error
	if rangeDays > 0 {
		since := time.Now().Add(-time.Duration(rangeDays) * 24 * time.Hour)
		rows, err = s.pool.Query(ctx, `select timestamp, total_equity from portfolio_cache where timestamp >= $1 order by timestamp asc`, since)
	} else {
		rows, err = s.pool.Query(ctx, `select timestamp, total_equity from portfolio_cache order by timestamp asc`)
	}
	if err != nil {
		return nil, apperr.NewDatabase("PortfolioHistory", err)
	}
	defer rows.Close()

	var out []types.PortfolioCachePoint
	for rows.Next() {
		var p types.PortfolioCachePoint
		var equity float64
		if err := rows.Scan(&p.Timestamp, &equity); err != nil {
			return nil, apperr.NewDatabase("PortfolioHistory scan", err)
		}
		p.TotalEquity = decimal.NewFromFloat(equity)
		out = append(out, p)
	}
	return out, rows.Err()
}

// SessionTrades returns trades for a session, most recent first.
func (s *Store) SessionTrades(ctx context.Context, sessionID string, limit int) ([]types.Trade, error) {
	if limit <= 0 || limit > 1000 {
		limit = 200
	}
	rows, err := s.pool.Query(ctx, `select id, session_id, symbol, side, price, quantity, pnl, coalesce(reason,''), timestamp
		from trades where session_id = $1 order by timestamp desc limit $2`, sessionID, limit)
	if err != nil {
		return nil, apperr.NewDatabase("SessionTrades", err)
	}
	defer rows.Close()

	var out []types.Trade
	for rows.Next() {
		var t types.Trade
		var side string
		var price, qty float64
		var pnl *float64
		if err := rows.Scan(&t.ID, &t.SessionID, &t.Symbol, &side, &price, &qty, &pnl, &t.Reason, &t.Timestamp); err != nil {
			return nil, apperr.NewDatabase("SessionTrades scan", err)
		}
		t.Side = types.TradeSide(side)
		t.Price = decimal.NewFromFloat(price)
		t.Quantity = decimal.NewFromFloat(qty)
		if pnl != nil {
			t.PnL = decimal.NewNullDecimal(decimal.NewFromFloat(*pnl))
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// SessionEquityCurve returns the equity_snapshots series for one session.
func (s *Store) SessionEquityCurve(ctx context.Context, sessionID string) ([]types.EquitySnapshot, error) {
	rows, err := s.pool.Query(ctx, `select id, session_id, equity, timestamp from equity_snapshots
		where session_id = $1 order by timestamp asc`, sessionID)
	if err != nil {
		return nil, apperr.NewDatabase("SessionEquityCurve", err)
	}
	defer rows.Close()
	var out []types.EquitySnapshot
	for rows.Next() {
		var snap types.EquitySnapshot
		var equity float64
		if err := rows.Scan(&snap.ID, &snap.SessionID, &equity, &snap.Timestamp); err != nil {
			return nil, apperr.NewDatabase("SessionEquityCurve scan", err)
		}
		snap.Equity = decimal.NewFromFloat(equity)
		out = append(out, snap)
	}
	return out, rows.Err()
}

func nullableDecimal(nd decimal.NullDecimal) *float64 {
	if !nd.Valid {
		return nil
	}
	v := nd.Decimal.InexactFloat64()
	return &v
}
