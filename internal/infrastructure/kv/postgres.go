package kv

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresStore stores records in the kv_records table
type PostgresStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{
		db:  db,
		now: time.Now,
	}
}

// Get returns the record value for key
func (s *PostgresStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT record_value FROM kv_records WHERE record_key = $1",
		key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, wrap("postgres get "+key, err)
	}
	return value, true, nil
}

// Apply upserts and deletes inside one transaction
func (s *PostgresStore) Apply(ctx context.Context, ops ...Op) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrap("postgres begin", err)
	}

	now := s.now()
	for _, op := range ops {
		if op.Delete {
			_, err = tx.ExecContext(ctx,
				"DELETE FROM kv_records WHERE record_key = $1",
				op.Key,
			)
		} else {
			_, err = tx.ExecContext(ctx,
				`INSERT INTO kv_records (record_key, record_value, updated_at)
				 VALUES ($1, $2, $3)
				 ON CONFLICT (record_key) DO UPDATE SET record_value = EXCLUDED.record_value, updated_at = EXCLUDED.updated_at`,
				op.Key,
				op.Value,
				now,
			)
		}
		if err != nil {
			_ = tx.Rollback()
			return wrap("postgres write "+op.Key, err)
		}
	}

	return wrap("postgres commit", tx.Commit())
}

// ConnectPostgres establishes a connection to PostgreSQL
func ConnectPostgres(connStr string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}

// MigratePostgres applies the embedded kv_records schema
func MigratePostgres(db *sql.DB, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to open migrations: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create postgres driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info("No migrations to apply")
			return nil
		}
		return fmt.Errorf("migration up failed: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return fmt.Errorf("failed to get migration version: %w", err)
	}
	logger.Info("Migrations applied", zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}
