// Package audit records the outcome of each reconcile invocation to
// ClickHouse. It sits outside internal/reconcile as an external
// collaborator and is optional: wiring is skipped entirely when no
// ClickHouse configuration is present.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	ch "github.com/MyCarrier-DevOps/goLibMyCarrier/clickhouse"

	"github.com/MyCarrier-DevOps/branchkeeper/internal/domain"
)

// The table DDL below is applied once by the operator, out of band; this
// package never migrates schema (see DESIGN.md's dropped-migrator entry).
//
// CREATE TABLE IF NOT EXISTS reconcile_outcomes (
//     reconciled_at DateTime,
//     base          String,
//     branch        String,
//     action        String,
//     has_diff_with_base UInt8
// ) ENGINE = MergeTree ORDER BY reconciled_at

// Recorder appends reconcile outcomes to ClickHouse.
type Recorder struct {
	conn  driver.Conn
	table string
}

// New opens a ClickHouse connection from cfg and returns a Recorder
// targeting table. cfg is typically obtained from
// goLibMyCarrier/clickhouse's ClickhouseLoadConfig.
func New(cfg *ch.ClickhouseConfig, table string) (*Recorder, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%s", cfg.ChHostname, cfg.ChPort)},
		Auth: clickhouse.Auth{
			Database: cfg.ChDatabase,
			Username: cfg.ChUsername,
			Password: cfg.ChPassword,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("open clickhouse connection: %w", err)
	}
	return &Recorder{conn: conn, table: table}, nil
}

// Record appends one row describing a completed reconcile invocation.
// Failures here are logged by the caller, never fatal to the CLI — an
// audit-trail write must not block the caller's push step.
func (r *Recorder) Record(ctx context.Context, base, branch string, outcome domain.ReconcileOutcome) error {
	query := fmt.Sprintf(
		"INSERT INTO %s (reconciled_at, base, branch, action, has_diff_with_base) VALUES (?, ?, ?, ?, ?)",
		r.table,
	)
	err := r.conn.Exec(ctx, query, time.Now().UTC(), base, branch, outcome.Action.String(), outcome.HasDiffWithBase)
	if err != nil {
		return fmt.Errorf("record reconcile outcome: %w", err)
	}
	return nil
}

// Close releases the underlying ClickHouse connection.
func (r *Recorder) Close() error {
	return r.conn.Close()
}
