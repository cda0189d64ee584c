// Package history keeps a durable record of finished checkout runs in
// an embedded SQLite database.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "modernc.org/sqlite"

	"github.com/keshavthakur30/SweetShop/internal/domain"
)

// Record is one checkout run: its ordered outcomes plus the committed
// total.
type Record struct {
	ID        string
	SessionID string
	Total     float64
	Outcomes  []domain.Outcome
	CreatedAt time.Time
}

type Repository struct {
	db *sql.DB
}

func NewRepository(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) RunMigrations(migrationsPath string) error {
	driver, err := sqlite.WithInstance(r.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", migrationsPath),
		"sqlite",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

// SaveRun stores the run and its outcomes in one transaction.
func (r *Repository) SaveRun(ctx context.Context, rec *Record) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO checkout_runs (id, session_id, total, created_at) VALUES (?, ?, ?, ?)`,
		rec.ID, rec.SessionID, rec.Total, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert checkout run: %w", err)
	}

	for i, out := range rec.Outcomes {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO checkout_outcomes (run_id, position, sweet_id, status, quantity, reason)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			rec.ID, i, out.SweetID, string(out.Status), out.Quantity, string(out.Reason),
		)
		if err != nil {
			return fmt.Errorf("insert checkout outcome: %w", err)
		}
	}

	return tx.Commit()
}

// RunsBySession returns every recorded run for one session, newest
// first, outcomes in attempt order.
func (r *Repository) RunsBySession(ctx context.Context, sessionID string) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, session_id, total, created_at
		 FROM checkout_runs WHERE session_id = ? ORDER BY created_at DESC`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query checkout runs: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.Total, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan checkout run: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	for i := range records {
		outcomes, err := r.outcomesForRun(ctx, records[i].ID)
		if err != nil {
			return nil, err
		}
		records[i].Outcomes = outcomes
	}

	return records, nil
}

func (r *Repository) outcomesForRun(ctx context.Context, runID string) ([]domain.Outcome, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT sweet_id, status, quantity, reason
		 FROM checkout_outcomes WHERE run_id = ? ORDER BY position`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []domain.Outcome
	for rows.Next() {
		var out domain.Outcome
		var status, reason string
		if err := rows.Scan(&out.SweetID, &status, &out.Quantity, &reason); err != nil {
			return nil, fmt.Errorf("failed to scan outcome: %w", err)
		}
		out.Status = domain.OutcomeStatus(status)
		out.Reason = domain.PurchaseReason(reason)
		outcomes = append(outcomes, out)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return outcomes, nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}
