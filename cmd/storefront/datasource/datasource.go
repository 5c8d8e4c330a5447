package datasource

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Options configures the connection pool.
type Options struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DataSource wraps the database handle with transaction, migration and
// seeding helpers.
type DataSource struct {
	db  *sqlx.DB
	log zerolog.Logger
}

// Connect opens and pings a PostgreSQL pool.
func Connect(ctx context.Context, opts Options) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to the database: %w", err)
	}

	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}
	return db, nil
}

func New(db *sqlx.DB, log zerolog.Logger) *DataSource {
	return &DataSource{
		db:  db,
		log: log.With().Str("component", "datasource").Logger(),
	}
}

func (ds *DataSource) DB() *sqlx.DB {
	return ds.db
}

func (ds *DataSource) Ping(ctx context.Context) error {
	return ds.db.PingContext(ctx)
}

func (ds *DataSource) Close() error {
	return ds.db.Close()
}

// WithTransaction runs exec inside a transaction. The transaction is
// committed when exec returns nil and rolled back otherwise.
func (ds *DataSource) WithTransaction(ctx context.Context, name string, exec func(tx *sqlx.Tx) error) error {
	tx, err := ds.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrapf(err, "failed to start transaction (%s)", name)
	}
	defer func() {
		if tx == nil {
			return
		}

		if rErr := tx.Rollback(); rErr != nil {
			ds.log.Error().Err(rErr).Str("transaction", name).Msg("Failed to rollback transaction")
			return
		}
		ds.log.Debug().Str("transaction", name).Msg("Rolled back transaction")
	}()

	if err = exec(tx); err != nil {
		return errors.Wrapf(err, "failed to exec transaction (%s)", name)
	}

	if err = tx.Commit(); err != nil {
		return errors.Wrapf(err, "failed to commit transaction (%s)", name)
	}

	tx = nil
	return nil
}
