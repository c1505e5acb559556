// MeterDB keeps the routed meter points of both resolution tiers.
// It should only be written to by meter_collector
// but can be read by any service.
package meterdb

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"path/filepath"
	"time"

	"github.com/NotCoffee418/dbmigrator"
	"github.com/NotCoffee418/p1_telemetry/pkg/pathing"
	"github.com/NotCoffee418/p1_telemetry/pkg/router"
	"go.uber.org/zap"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open creates the database at path when needed and applies migrations.
func Open(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := pathing.EnsureDir(filepath.Dir(path)); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open meter db: %w", err)
	}
	// Create DB before migrations
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect meter db: %w", err)
	}

	dbmigrator.SetDatabaseType(dbmigrator.SQLite)
	<-dbmigrator.MigrateUpCh(
		db,
		migrationFS,
		"migrations",
	)
	for _, table := range tierTables {
		if _, err := db.Exec("SELECT 1 FROM " + table + " LIMIT 1"); err != nil {
			db.Close()
			return nil, fmt.Errorf("meter db not migrated: %w", err)
		}
	}

	logger.Info("meter db ready", zap.String("path", path))
	return &Store{db: db, logger: logger}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// TierSink returns a router.Sink writing into the table of tier.
func (s *Store) TierSink(tier router.SinkID) (*TierSink, error) {
	table, err := tableFor(tier)
	if err != nil {
		return nil, err
	}
	return &TierSink{store: s, tier: tier, table: table}, nil
}

// Sinks returns the sinks of both tiers.
func (s *Store) Sinks() map[router.SinkID]router.Sink {
	sinks := make(map[router.SinkID]router.Sink, len(tierTables))
	for tier, table := range tierTables {
		sinks[tier] = &TierSink{store: s, tier: tier, table: table}
	}
	return sinks
}

type TierSink struct {
	store *Store
	tier  router.SinkID
	table string
}

// Write stores the batch in one transaction. A point for an existing
// (series, kind, timestamp) replaces the stored value.
func (t *TierSink) Write(ctx context.Context, points []router.Point) error {
	if len(points) == 0 {
		return nil
	}
	tx, err := t.store.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		"INSERT OR REPLACE INTO "+t.table+" (timestamp, series, kind, field, value) "+
			"VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range points {
		if _, err := stmt.ExecContext(ctx, p.Time.Unix(), p.Series, p.Kind, p.Field, p.Value); err != nil {
			return fmt.Errorf("insert %s/%s into %s: %w", p.Series, p.Kind, t.table, err)
		}
	}
	return tx.Commit()
}

// Prune removes points of tier older than cutoff and returns how many were deleted.
func (s *Store) Prune(ctx context.Context, tier router.SinkID, cutoff time.Time) (int64, error) {
	table, err := tableFor(tier)
	if err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx, "DELETE FROM "+table+" WHERE timestamp < ?", cutoff.Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Points returns the stored points of tier in [from, to], oldest first.
func (s *Store) Points(ctx context.Context, tier router.SinkID, from, to time.Time) ([]router.Point, error) {
	table, err := tableFor(tier)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT timestamp, series, kind, field, value FROM "+table+
			" WHERE timestamp >= ? AND timestamp <= ? ORDER BY timestamp, series, kind",
		from.Unix(), to.Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []router.Point
	for rows.Next() {
		var row MeterDbPoint
		if err := rows.Scan(&row.Timestamp, &row.Series, &row.Kind, &row.Field, &row.Value); err != nil {
			return nil, err
		}
		points = append(points, router.Point{
			Series: row.Series,
			Kind:   row.Kind,
			Field:  row.Field,
			Value:  row.Value,
			Time:   time.Unix(row.Timestamp, 0).UTC(),
		})
	}
	return points, rows.Err()
}
