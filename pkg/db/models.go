package db

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = errors.New("record not found")

// Journal statuses.
const (
	StatusExecuted = "executed"
	StatusNoop     = "noop"
	StatusFailed   = "failed"
)

// JournalEntry records one processed signal.
type JournalEntry struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	Signal    string    `json:"signal"`
	Price     float64   `json:"price,omitempty"`
	Previous  string    `json:"previous"`
	Current   string    `json:"current"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	Steps     int       `json:"steps"`
	CreatedAt time.Time `json:"created_at"`
}

// InsertJournal appends a journal row.
func (d *Database) InsertJournal(ctx context.Context, e JournalEntry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := d.DB.ExecContext(ctx, `
		INSERT INTO signal_journal (
			id, source, signal, price, previous, current, status, error, steps, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		e.ID, e.Source, e.Signal, nullFloat(e.Price), e.Previous, e.Current, e.Status, nullString(e.Error), e.Steps, e.CreatedAt,
	)
	return err
}

// ListJournal returns the most recent entries, newest first.
func (d *Database) ListJournal(ctx context.Context, limit int) ([]JournalEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	rows, err := d.DB.QueryContext(ctx, `
		SELECT id, source, signal, price, previous, current, status, error, steps, created_at
		FROM signal_journal
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []JournalEntry
	for rows.Next() {
		var (
			e     JournalEntry
			price sql.NullFloat64
			msg   sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.Source, &e.Signal, &price, &e.Previous, &e.Current, &e.Status, &msg, &e.Steps, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Price = price.Float64
		e.Error = msg.String
		res = append(res, e)
	}
	return res, rows.Err()
}

// GetPositionState returns the stored position value or ErrNotFound.
func (d *Database) GetPositionState(ctx context.Context) (string, error) {
	var state string
	err := d.DB.QueryRowContext(ctx, `SELECT state FROM position_state WHERE id = 1`).Scan(&state)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return state, nil
}

// SetPositionState overwrites the stored position value.
func (d *Database) SetPositionState(ctx context.Context, state string) error {
	_, err := d.DB.ExecContext(ctx, `
		INSERT INTO position_state (id, state, updated_at)
		VALUES (1, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			state = excluded.state,
			updated_at = CURRENT_TIMESTAMP
	`, state)
	return err
}

func nullFloat(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: v != 0}
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}
