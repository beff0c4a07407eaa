package recorder

import (
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"RiskSentinel/internal/model"
)

// SQLiteRecorder persists cycles to a SQLite database.
type SQLiteRecorder struct {
	db     *sql.DB
	mu     sync.Mutex
	logger *zap.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, logger *zap.Logger) (*SQLiteRecorder, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, errors.Wrap(err, "create database dir")
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "set WAL mode")
	}

	r := &SQLiteRecorder{db: db, logger: logger}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "migrate")
	}

	logger.Info("sqlite recorder opened", zap.String("path", dbPath))
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS metric_snapshots (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp      INTEGER NOT NULL,
			cycle_seq      INTEGER NOT NULL,
			symbol         TEXT NOT NULL,
			last_price     REAL,
			volatility_ann REAL,
			var_1d         REAL,
			loss_pct       REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_metric_ts ON metric_snapshots(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_metric_symbol ON metric_snapshots(symbol, timestamp)`,

		`CREATE TABLE IF NOT EXISTS suggestions (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp    INTEGER NOT NULL,
			cycle_seq    INTEGER NOT NULL,
			symbol       TEXT NOT NULL,
			kind         TEXT,
			reason       TEXT,
			suggestion   TEXT,
			alternatives TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_suggestion_ts ON suggestions(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return errors.Wrapf(err, "exec %q", s[:40])
		}
	}
	return nil
}

// RecordCycle writes every metric and suggestion of the cycle in one transaction.
func (r *SQLiteRecorder) RecordCycle(cycle *model.Cycle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ts := cycle.At.Unix()
	tx, err := r.db.Begin()
	if err != nil {
		return errors.Wrap(err, "begin")
	}
	defer tx.Rollback()

	for _, m := range cycle.Metrics {
		if _, err := tx.Exec(`INSERT INTO metric_snapshots
			(timestamp, cycle_seq, symbol, last_price, volatility_ann, var_1d, loss_pct)
			VALUES (?,?,?,?,?,?,?)`,
			ts, cycle.Seq, m.Symbol, m.LastPrice, m.VolatilityAnn, m.VaR1d, m.LossPct,
		); err != nil {
			return errors.Wrapf(err, "insert metrics %s", m.Symbol)
		}
	}
	for _, s := range cycle.Suggestions {
		if _, err := tx.Exec(`INSERT INTO suggestions
			(timestamp, cycle_seq, symbol, kind, reason, suggestion, alternatives)
			VALUES (?,?,?,?,?,?,?)`,
			ts, cycle.Seq, s.Symbol, string(s.Kind), s.Reason, s.Text, strings.Join(s.Alternatives, ","),
		); err != nil {
			return errors.Wrapf(err, "insert suggestion %s", s.Symbol)
		}
	}
	return errors.Wrap(tx.Commit(), "commit")
}

// CountRows returns the number of rows in the metrics and suggestions tables.
func (r *SQLiteRecorder) CountRows() (metrics, suggestions int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err = r.db.QueryRow(`SELECT COUNT(*) FROM metric_snapshots`).Scan(&metrics); err != nil {
		return 0, 0, errors.Wrap(err, "count metrics")
	}
	if err = r.db.QueryRow(`SELECT COUNT(*) FROM suggestions`).Scan(&suggestions); err != nil {
		return 0, 0, errors.Wrap(err, "count suggestions")
	}
	return metrics, suggestions, nil
}

func (r *SQLiteRecorder) Close() error {
	r.logger.Info("closing sqlite recorder")
	return r.db.Close()
}
