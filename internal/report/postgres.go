package report

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

const createRunsTable = `CREATE TABLE IF NOT EXISTS crack_runs (
	id          BIGSERIAL PRIMARY KEY,
	recorded_at TIMESTAMPTZ NOT NULL,
	archive     TEXT NOT NULL,
	mode        TEXT NOT NULL,
	workers     INTEGER NOT NULL,
	status      TEXT NOT NULL,
	password    TEXT,
	attempts    BIGINT NOT NULL,
	elapsed_ms  BIGINT NOT NULL,
	error       TEXT
)`

const insertRun = `INSERT INTO crack_runs
	(recorded_at, archive, mode, workers, status, password, attempts, elapsed_ms, error)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

// Connect opens a PostgreSQL handle and pings it, retrying up to attempts
// times with wait between tries while the server comes up.
func Connect(ctx context.Context, dsn string, attempts int, wait time.Duration, log *zap.Logger) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	attempts = max(attempts, 1)
	for i := range attempts {
		if err = db.PingContext(ctx); err == nil {
			log.Debug("connected to the database")
			return db, nil
		}
		if i == attempts-1 {
			break
		}
		log.Info("waiting for database", zap.Int("attempt", i+1), zap.Error(err))
		select {
		case <-ctx.Done():
			db.Close()
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
	db.Close()
	return nil, fmt.Errorf("could not connect to database: %w", err)
}

// Postgres stores results in the crack_runs table.
type Postgres struct {
	DB *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{DB: db}
}

// OpenPostgres connects with Connect and creates the crack_runs table.
func OpenPostgres(ctx context.Context, dsn string, attempts int, wait time.Duration, log *zap.Logger) (*Postgres, error) {
	db, err := Connect(ctx, dsn, attempts, wait, log)
	if err != nil {
		return nil, err
	}
	p := NewPostgres(db)
	if err := p.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return p, nil
}

func (p *Postgres) Close() error { return p.DB.Close() }

// EnsureSchema creates the crack_runs table if needed.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.DB.ExecContext(ctx, createRunsTable); err != nil {
		return fmt.Errorf("create crack_runs: %w", err)
	}
	return nil
}

func (p *Postgres) Record(ctx context.Context, r Result) error {
	_, err := p.DB.ExecContext(ctx, insertRun,
		r.At,
		r.Archive,
		r.Mode,
		r.Workers,
		r.Status,
		nullable(r.Password),
		r.Attempts,
		r.Elapsed.Milliseconds(),
		nullable(r.Error),
	)
	if err != nil {
		return fmt.Errorf("insert crack run: %w", err)
	}
	return nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
