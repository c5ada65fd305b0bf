// Package datasource loads bar data into memory. CSV files are read
// through an in-memory DuckDB connection so that header detection, type
// sniffing, and timestamp parsing are delegated to its CSV reader.
package datasource

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/marcboeker/go-duckdb"
	"go.uber.org/zap"

	"github.com/qtrader-lab/qtrader/internal/logger"
	"github.com/qtrader-lab/qtrader/internal/types"
	"github.com/qtrader-lab/qtrader/pkg/errors"
)

// Column aliases accepted in input files, checked in order. Header
// matching is case-insensitive.
var (
	timeAliases   = []string{"time", "timestamp", "datetime", "date"}
	closeAliases  = []string{"close", "adj close", "adj_close"}
	volumeAliases = []string{"volume", "vol"}
)

// CSVLoader reads OHLCV bars from CSV files.
type CSVLoader struct {
	logger *logger.Logger
}

// NewCSVLoader returns a loader that logs through the given logger.
func NewCSVLoader(l *logger.Logger) *CSVLoader {
	return &CSVLoader{logger: l}
}

// Load reads the file at path and returns a validated bar series. Open,
// high, and low columns are optional; missing ones fall back to the
// close price. Rows come back ordered by time regardless of file order.
func (c *CSVLoader) Load(path string) (*types.BarSeries, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDataParseFailed, "failed to open database", err)
	}
	defer db.Close()

	view := fmt.Sprintf(`CREATE VIEW raw_bars AS SELECT * FROM read_csv_auto('%s', header=true)`, escapeSQL(path))
	if _, err := db.Exec(view); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeDataParseFailed, err, "failed to read %s", path)
	}

	columns, err := viewColumns(db)
	if err != nil {
		return nil, err
	}

	query, err := buildSelect(columns)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("Loading bars from CSV", zap.String("path", path))

	rows, err := db.Query(query)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeDataParseFailed, err, "failed to query %s", path)
	}
	defer rows.Close()

	bars := make([]types.Bar, 0, 1000)

	for rows.Next() {
		var bar types.Bar
		if err := rows.Scan(&bar.Time, &bar.Open, &bar.High, &bar.Low, &bar.Close, &bar.Volume); err != nil {
			return nil, errors.Wrapf(errors.ErrCodeDataParseFailed, err, "failed to scan row from %s", path)
		}

		bars = append(bars, bar)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeDataParseFailed, err, "error reading rows from %s", path)
	}

	series, err := types.NewBarSeries(bars)
	if err != nil {
		return nil, err
	}

	c.logger.Info("Loaded bar series",
		zap.String("path", path),
		zap.Int("bars", series.Len()),
	)

	return series, nil
}

// Slice trims a series to the bars whose timestamps fall inside the
// half-open window [start, end]. Zero bounds leave that side open.
func Slice(series *types.BarSeries, start, end time.Time) (*types.BarSeries, error) {
	bars := make([]types.Bar, 0, series.Len())

	for i := 0; i < series.Len(); i++ {
		bar := series.At(i)
		if !start.IsZero() && bar.Time.Before(start) {
			continue
		}

		if !end.IsZero() && bar.Time.After(end) {
			continue
		}

		bars = append(bars, bar)
	}

	return types.NewBarSeries(bars)
}

func viewColumns(db *sql.DB) (map[string]string, error) {
	rows, err := db.Query(`SELECT column_name FROM information_schema.columns WHERE table_name = 'raw_bars'`)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDataParseFailed, "failed to describe columns", err)
	}
	defer rows.Close()

	// lowercase name -> original name as DuckDB reports it
	columns := make(map[string]string)

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errors.Wrap(errors.ErrCodeDataParseFailed, "failed to scan column name", err)
		}

		columns[strings.ToLower(name)] = name
	}

	return columns, rows.Err()
}

// buildSelect maps the file's headers onto the canonical bar layout.
// The time and close columns are required; everything else degrades to
// a sane default.
func buildSelect(columns map[string]string) (string, error) {
	timeCol, ok := pick(columns, timeAliases)
	if !ok {
		return "", errors.Newf(errors.ErrCodeMissingColumn, "no time column found, expected one of %v", timeAliases)
	}

	closeCol, ok := pick(columns, closeAliases)
	if !ok {
		return "", errors.Newf(errors.ErrCodeMissingColumn, "no close column found, expected one of %v", closeAliases)
	}

	closeExpr := quoteIdent(closeCol)

	selects := []string{
		fmt.Sprintf(`CAST(%s AS TIMESTAMP) AS time`, quoteIdent(timeCol)),
		coalesceExpr(columns, "open", closeExpr),
		coalesceExpr(columns, "high", closeExpr),
		coalesceExpr(columns, "low", closeExpr),
		fmt.Sprintf(`CAST(%s AS DOUBLE) AS close`, closeExpr),
		volumeExpr(columns),
	}

	return fmt.Sprintf(`SELECT %s FROM raw_bars ORDER BY time ASC`, strings.Join(selects, ", ")), nil
}

func coalesceExpr(columns map[string]string, name, fallback string) string {
	if col, ok := columns[name]; ok {
		return fmt.Sprintf(`CAST(COALESCE(%s, %s) AS DOUBLE) AS %s`, quoteIdent(col), fallback, name)
	}

	return fmt.Sprintf(`CAST(%s AS DOUBLE) AS %s`, fallback, name)
}

func volumeExpr(columns map[string]string) string {
	if col, ok := pick(columns, volumeAliases); ok {
		return fmt.Sprintf(`CAST(COALESCE(%s, 0) AS DOUBLE) AS volume`, quoteIdent(col))
	}

	return `CAST(0 AS DOUBLE) AS volume`
}

func pick(columns map[string]string, aliases []string) (string, bool) {
	for _, alias := range aliases {
		if col, ok := columns[alias]; ok {
			return col, true
		}
	}

	return "", false
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func escapeSQL(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
