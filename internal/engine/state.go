package engine

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"go.uber.org/zap"

	"github.com/qtrader-lab/qtrader/internal/logger"
	"github.com/qtrader-lab/qtrader/internal/types"
	"github.com/qtrader-lab/qtrader/pkg/errors"
)

// RunState records everything a run produces into an in-memory DuckDB
// database: fills, per-bar equity points, and rejected signals. Keeping
// the log in SQL makes export a single COPY per table.
type RunState struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

// NewRunState opens the backing database and creates the tables.
func NewRunState(l *logger.Logger) (*RunState, error) {
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		l.Error("Failed to open database", zap.Error(err))

		return nil, errors.Wrap(errors.ErrCodeStateStoreFailed, "failed to open database", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()

		return nil, errors.Wrap(errors.ErrCodeStateStoreFailed, "failed to connect to database", err)
	}

	state := &RunState{
		db:     db,
		logger: l,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}

	if err := state.initialize(); err != nil {
		db.Close()

		return nil, err
	}

	return state, nil
}

func (s *RunState) initialize() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS fills (
			id TEXT PRIMARY KEY,
			time TIMESTAMP,
			quantity DOUBLE,
			price DOUBLE,
			fee DOUBLE,
			slippage DOUBLE,
			reason TEXT,
			realized_pnl DOUBLE,
			closed_quantity DOUBLE,
			cash_after DOUBLE,
			position_after DOUBLE
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStateStoreFailed, "failed to create fills table", err)
	}

	_, err = s.db.Exec(`
		CREATE TABLE IF NOT EXISTS equity (
			time TIMESTAMP PRIMARY KEY,
			equity DOUBLE
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStateStoreFailed, "failed to create equity table", err)
	}

	_, err = s.db.Exec(`
		CREATE TABLE IF NOT EXISTS rejections (
			time TIMESTAMP,
			code INTEGER,
			message TEXT,
			signal_type TEXT,
			target_quantity DOUBLE
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStateStoreFailed, "failed to create rejections table", err)
	}

	return nil
}

// RecordFill stores an applied fill with its ledger deltas.
func (s *RunState) RecordFill(fill types.AppliedFill) error {
	_, err := s.sq.
		Insert("fills").
		Columns(
			"id", "time", "quantity", "price", "fee", "slippage", "reason",
			"realized_pnl", "closed_quantity", "cash_after", "position_after",
		).
		Values(
			fill.ID, fill.Time, fill.Quantity, fill.Price, fill.Fee, fill.Slippage, fill.Reason,
			fill.RealizedPnL, fill.ClosedQuantity, fill.CashAfter, fill.PositionAfter,
		).
		RunWith(s.db).
		Exec()
	if err != nil {
		return errors.Wrap(errors.ErrCodeStateStoreFailed, "failed to insert fill", err)
	}

	return nil
}

// RecordEquity stores one equity point. The engine appends exactly one
// per processed bar.
func (s *RunState) RecordEquity(point types.EquityPoint) error {
	_, err := s.sq.
		Insert("equity").
		Columns("time", "equity").
		Values(point.Time, point.Equity).
		RunWith(s.db).
		Exec()
	if err != nil {
		return errors.Wrap(errors.ErrCodeStateStoreFailed, "failed to insert equity point", err)
	}

	return nil
}

// RecordRejection stores a rejected signal.
func (s *RunState) RecordRejection(rejection types.Rejection) error {
	_, err := s.sq.
		Insert("rejections").
		Columns("time", "code", "message", "signal_type", "target_quantity").
		Values(
			rejection.Time, int(rejection.Code), rejection.Message,
			string(rejection.Signal.Type), rejection.Signal.TargetQuantity,
		).
		RunWith(s.db).
		Exec()
	if err != nil {
		return errors.Wrap(errors.ErrCodeStateStoreFailed, "failed to insert rejection", err)
	}

	return nil
}

// Fills returns all recorded fills in time order.
func (s *RunState) Fills() ([]types.AppliedFill, error) {
	rows, err := s.sq.
		Select(
			"id", "time", "quantity", "price", "fee", "slippage", "reason",
			"realized_pnl", "closed_quantity", "cash_after", "position_after",
		).
		From("fills").
		OrderBy("time ASC").
		RunWith(s.db).
		Query()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStateStoreFailed, "failed to query fills", err)
	}
	defer rows.Close()

	var fills []types.AppliedFill

	for rows.Next() {
		var fill types.AppliedFill

		err := rows.Scan(
			&fill.ID, &fill.Time, &fill.Quantity, &fill.Price, &fill.Fee, &fill.Slippage, &fill.Reason,
			&fill.RealizedPnL, &fill.ClosedQuantity, &fill.CashAfter, &fill.PositionAfter,
		)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeStateStoreFailed, "failed to scan fill", err)
		}

		fills = append(fills, fill)
	}

	return fills, rows.Err()
}

// EquityCurve returns the recorded equity points in time order.
func (s *RunState) EquityCurve() ([]types.EquityPoint, error) {
	rows, err := s.sq.
		Select("time", "equity").
		From("equity").
		OrderBy("time ASC").
		RunWith(s.db).
		Query()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStateStoreFailed, "failed to query equity curve", err)
	}
	defer rows.Close()

	var curve []types.EquityPoint

	for rows.Next() {
		var point types.EquityPoint
		if err := rows.Scan(&point.Time, &point.Equity); err != nil {
			return nil, errors.Wrap(errors.ErrCodeStateStoreFailed, "failed to scan equity point", err)
		}

		curve = append(curve, point)
	}

	return curve, rows.Err()
}

// Rejections returns the recorded rejections in time order.
func (s *RunState) Rejections() ([]types.Rejection, error) {
	rows, err := s.sq.
		Select("time", "code", "message", "signal_type", "target_quantity").
		From("rejections").
		OrderBy("time ASC").
		RunWith(s.db).
		Query()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStateStoreFailed, "failed to query rejections", err)
	}
	defer rows.Close()

	var rejections []types.Rejection

	for rows.Next() {
		var (
			rejection  types.Rejection
			code       int
			signalType string
		)

		err := rows.Scan(&rejection.Time, &code, &rejection.Message, &signalType, &rejection.Signal.TargetQuantity)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeStateStoreFailed, "failed to scan rejection", err)
		}

		rejection.Code = errors.ErrorCode(code)
		rejection.Signal.Type = types.SignalType(signalType)
		rejection.Signal.Time = rejection.Time

		rejections = append(rejections, rejection)
	}

	return rejections, rows.Err()
}

// FillStats is a SQL-side summary of the fills table. Closing fills are
// the ones that reduced a position and therefore realized PnL.
type FillStats struct {
	TotalFills   int
	ClosingFills int
	WinningFills int
	LosingFills  int
	GrossProfit  float64
	GrossLoss    float64
	TotalFees    float64
}

// FillStats aggregates the fills table in a single query.
func (s *RunState) FillStats() (FillStats, error) {
	var stats FillStats

	err := s.sq.
		Select(
			"COUNT(*)",
			"COUNT(*) FILTER (WHERE closed_quantity > 0)",
			"COUNT(*) FILTER (WHERE closed_quantity > 0 AND realized_pnl > 0)",
			"COUNT(*) FILTER (WHERE closed_quantity > 0 AND realized_pnl < 0)",
			"COALESCE(SUM(realized_pnl) FILTER (WHERE realized_pnl > 0), 0)",
			"COALESCE(SUM(-realized_pnl) FILTER (WHERE realized_pnl < 0), 0)",
			"COALESCE(SUM(fee), 0)",
		).
		From("fills").
		RunWith(s.db).
		QueryRow().
		Scan(
			&stats.TotalFills, &stats.ClosingFills, &stats.WinningFills, &stats.LosingFills,
			&stats.GrossProfit, &stats.GrossLoss, &stats.TotalFees,
		)
	if err != nil {
		return FillStats{}, errors.Wrap(errors.ErrCodeStateStoreFailed, "failed to aggregate fills", err)
	}

	return stats, nil
}

// ExportFormat selects the on-disk format for run exports.
type ExportFormat string

const (
	ExportCSV     ExportFormat = "csv"
	ExportParquet ExportFormat = "parquet"
)

// Export writes the fills, equity, and rejections tables into dir, one
// file per table in the requested format.
func (s *RunState) Export(dir string, format ExportFormat) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(errors.ErrCodeReportWriteFailed, err, "failed to create %s", dir)
	}

	var clause, ext string

	switch format {
	case ExportCSV:
		clause, ext = "(FORMAT CSV, HEADER)", "csv"
	case ExportParquet:
		clause, ext = "(FORMAT PARQUET)", "parquet"
	default:
		return errors.Newf(errors.ErrCodeInvalidConfiguration, "unsupported export format %q", format)
	}

	for _, table := range []string{"fills", "equity", "rejections"} {
		path := filepath.Join(dir, table+"."+ext)

		query := fmt.Sprintf(`COPY (SELECT * FROM %s ORDER BY time ASC) TO '%s' %s`, table, escapeSQL(path), clause)
		if _, err := s.db.Exec(query); err != nil {
			return errors.Wrapf(errors.ErrCodeReportWriteFailed, err, "failed to export %s", table)
		}

		s.logger.Debug("Exported run table",
			zap.String("table", table),
			zap.String("path", path),
		)
	}

	return nil
}

// Close releases the database connection.
func (s *RunState) Close() error {
	if s == nil || s.db == nil {
		return nil
	}

	return s.db.Close()
}

func escapeSQL(v string) string {
	return strings.ReplaceAll(v, "'", "''")
}
