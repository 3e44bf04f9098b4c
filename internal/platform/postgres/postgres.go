// Package postgres opens the shared database handle, applies the embedded
// schema and classifies driver errors for the stores.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"rankgate/internal/platform/config"
	"rankgate/pkg/platform/cas"
	"rankgate/pkg/platform/sentinel"
)

//go:embed migrations/*.sql
var migrations embed.FS

const uniqueViolation = "23505"

// Open connects with the configured driver ("postgres" for lib/pq, "pgx" for
// pgx's database/sql adapter) and verifies the connection.
func Open(ctx context.Context, cfg config.PostgresConfig) (*sqlx.DB, error) {
	db, err := sqlx.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Driver, err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// Migrate applies every embedded migration in file order. Statements are
// written to be re-runnable.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	names, err := fs.Glob(migrations, "migrations/*.sql")
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	sort.Strings(names)
	for _, name := range names {
		body, err := migrations.ReadFile(name)
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		if _, err := db.ExecContext(ctx, string(body)); err != nil {
			return fmt.Errorf("apply %s: %w", name, err)
		}
	}
	return nil
}

// IsUniqueViolation reports whether err is a unique-constraint violation from
// either supported driver.
func IsUniqueViolation(err error) bool {
	_, ok := uniqueConstraint(err)
	return ok
}

// ViolatedConstraint returns the name of the unique constraint err reports.
func ViolatedConstraint(err error) string {
	name, _ := uniqueConstraint(err)
	return name
}

func uniqueConstraint(err error) (string, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
		return pqErr.Constraint, true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return pgErr.ConstraintName, true
	}
	return "", false
}

// Classify maps a failed write onto the store sentinels: unique violations
// become sentinel.ErrAlreadyUsed, everything else sentinel.ErrStorage.
func Classify(op string, err error) error {
	if IsUniqueViolation(err) {
		return fmt.Errorf("%w: %s: %s", sentinel.ErrAlreadyUsed, op, ViolatedConstraint(err))
	}
	return fmt.Errorf("%w: %s: %w", sentinel.ErrStorage, op, err)
}

// ResolveMiss explains a conditional UPDATE that touched no row. versionQuery
// selects the current version by id.
func ResolveMiss(ctx context.Context, q sqlx.QueryerContext, versionQuery string, aggregateID uuid.UUID) (cas.Result, error) {
	var version int
	if err := sqlx.GetContext(ctx, q, &version, versionQuery, aggregateID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return cas.NotFound, nil
		}
		return cas.NotFound, fmt.Errorf("%w: read current version: %w", sentinel.ErrStorage, err)
	}
	return cas.Conflict, nil
}

// NullString stores the empty string as NULL so optional unique columns do
// not collide.
func NullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
