package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/FCHEHIDI/lb-analytics/internal/logger"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// migrationLockKey is the advisory lock key guarding schema setup. Any
// fixed value works as long as every writer agrees on it.
const migrationLockKey int64 = 7741002

// ErrSchemaDrift indicates an existing table no longer matches the columns
// this build expects. Startup must treat it as fatal: silently writing into
// a drifted schema corrupts the warehouse.
var ErrSchemaDrift = errors.New("warehouse schema drift detected")

// Migrate applies all embedded migration files in lexical order. Every
// statement is idempotent (IF NOT EXISTS / CREATE OR REPLACE), so running
// it on an already-migrated database is a no-op. The whole run happens in
// one transaction under a transaction-scoped advisory lock: concurrent
// first runs serialize on it, and because the lock lives and dies with the
// transaction's own session, it can never leak through the connection pool
// the way a session lock taken on one pooled connection and released on
// another would.
func (db *DB) Migrate(ctx context.Context) error {
	entries, err := migrationFiles.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("failed to read embedded migrations: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	return db.WithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, migrationLockKey); err != nil {
			return fmt.Errorf("failed to acquire migration lock %d: %w", migrationLockKey, err)
		}

		for _, name := range names {
			contents, err := migrationFiles.ReadFile("migrations/" + name)
			if err != nil {
				return fmt.Errorf("failed to read migration %s: %w", name, err)
			}
			if _, err := tx.ExecContext(ctx, string(contents)); err != nil {
				return fmt.Errorf("migration %s failed: %w", name, err)
			}
			logger.WithField("migration", name).Debug("migration applied")
		}
		return nil
	})
}

// expectedColumns is the column set each warehouse table must expose.
// VerifySchema compares against information_schema so a table created by an
// older or foreign tool is caught before the first insert.
var expectedColumns = map[string][]string{
	"request_logs": {
		"ts", "server_id", "region", "request_method", "status_code",
		"response_time_ms", "retry_rate", "bytes_sent",
	},
	"server_metrics": {
		"ts", "server_id", "cpu_usage_percent", "memory_usage_percent",
		"disk_usage_percent", "network_in_mbps", "network_out_mbps",
		"active_connections", "requests_per_second", "backend_health_failures",
	},
	"analytics_reports": {
		"batch_id", "report_ts", "report_type", "report_data",
	},
	"data_quality_metrics": {
		"check_ts", "table_name", "total_records",
	},
}

// VerifySchema checks that every warehouse table exists with the columns
// the repositories write to. A missing table or column returns
// ErrSchemaDrift wrapped with the specifics.
func (db *DB) VerifySchema(ctx context.Context) error {
	for table, required := range expectedColumns {
		exists, err := db.TableExists(ctx, table)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("%w: table %s missing", ErrSchemaDrift, table)
		}

		rows, err := db.QueryContext(ctx, `
			SELECT column_name FROM information_schema.columns
			WHERE table_schema = 'public' AND table_name = $1`, table)
		if err != nil {
			return fmt.Errorf("failed to read columns for %s: %w", table, err)
		}

		present := make(map[string]bool)
		for rows.Next() {
			var col string
			if err := rows.Scan(&col); err != nil {
				rows.Close()
				return fmt.Errorf("failed to scan column name: %w", err)
			}
			present[col] = true
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return fmt.Errorf("failed to iterate columns for %s: %w", table, err)
		}
		rows.Close()

		for _, col := range required {
			if !present[col] {
				return fmt.Errorf("%w: table %s missing column %s", ErrSchemaDrift, table, col)
			}
		}
	}
	return nil
}
