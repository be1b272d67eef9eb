package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/nhle/inbox-calendar/internal/model"
)

// SQLiteStore implements EventStore using a local SQLite database.
// Every mutation commits in a single transaction, so a crash between
// two operations leaves the store having completed zero or one of
// them, never a partial record.
type SQLiteStore struct {
	db   *sqlx.DB
	path string

	// mu serializes read-modify-write sequences across partitions;
	// SQLite alone does not cover the check-then-insert in
	// UpsertPending.
	mu sync.Mutex
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, &CorruptionError{Path: dbPath, Err: err}
	}

	s := &SQLiteStore{db: db, path: dbPath}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, &CorruptionError{Path: dbPath, Err: err}
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// UpsertPending adds a candidate to the pending partition, enforcing
// cross-partition uniqueness of the source message id.
func (s *SQLiteStore) UpsertPending(
	ctx context.Context, cand model.EventCandidate,
) error {
	if err := cand.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var existing string
	err = tx.GetContext(ctx, &existing,
		"SELECT status FROM candidates WHERE message_id = ?",
		cand.SourceMessageID,
	)
	switch {
	case err == nil:
		return &DuplicateError{
			MessageID: cand.SourceMessageID,
			Existing:  model.Status(existing),
		}
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("checking candidate %s: %w", cand.SourceMessageID, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO candidates (
			message_id, title, description, start_time, end_time,
			confidence, status, note, failure_count, detected_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, '', 0, ?, ?)`,
		cand.SourceMessageID, cand.Title, cand.Description,
		cand.StartTime.UTC(), cand.EndTime.UTC(),
		cand.Confidence, string(model.StatusPending),
		cand.DetectedAt.UTC(), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("inserting candidate %s: %w", cand.SourceMessageID, err)
	}

	return tx.Commit()
}

// Decline moves a pending candidate to the declined partition.
func (s *SQLiteStore) Decline(ctx context.Context, messageID, note string) error {
	return s.transition(
		ctx, messageID, model.StatusPending, model.StatusDeclined, note,
	)
}

// Recover moves a declined candidate back to pending, clearing any
// decline annotation.
func (s *SQLiteStore) Recover(ctx context.Context, messageID string) error {
	return s.transition(
		ctx, messageID, model.StatusDeclined, model.StatusPending, "",
	)
}

// transition flips a candidate between partitions in one statement.
// The status predicate makes the operation a no-op (reported as
// NotFoundError) when the candidate is not in the source partition.
func (s *SQLiteStore) transition(
	ctx context.Context,
	messageID string,
	from, to model.Status,
	note string,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE candidates SET status = ?, note = ?, updated_at = ?
		WHERE message_id = ? AND status = ?`,
		string(to), note, time.Now().UTC(), messageID, string(from),
	)
	if err != nil {
		return fmt.Errorf("transitioning candidate %s: %w", messageID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("transitioning candidate %s: %w", messageID, err)
	}
	if affected == 0 {
		return &NotFoundError{MessageID: messageID, Want: from}
	}
	return nil
}

// ConfirmSuccess removes a pending candidate and records the calendar
// reference in the audit log, atomically.
func (s *SQLiteStore) ConfirmSuccess(
	ctx context.Context, messageID string, ref model.CalendarEventRef,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var cand candidateRow
	err = tx.GetContext(ctx, &cand, `
		SELECT * FROM candidates WHERE message_id = ? AND status = ?`,
		messageID, string(model.StatusPending),
	)
	if errors.Is(err, sql.ErrNoRows) {
		return &NotFoundError{MessageID: messageID, Want: model.StatusPending}
	}
	if err != nil {
		return fmt.Errorf("reading candidate %s: %w", messageID, err)
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM candidates WHERE message_id = ?", messageID,
	); err != nil {
		return fmt.Errorf("removing candidate %s: %w", messageID, err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO created_events (
			id, message_id, calendar_id, link, title, start_time, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), messageID, ref.ID, ref.Link,
		cand.Title, cand.StartTime, time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("recording created event for %s: %w", messageID, err)
	}

	return tx.Commit()
}

// ConfirmFailure increments the failure counter of a pending
// candidate, which stays pending for retry.
func (s *SQLiteStore) ConfirmFailure(
	ctx context.Context, messageID string,
) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE candidates SET failure_count = failure_count + 1, updated_at = ?
		WHERE message_id = ? AND status = ?`,
		time.Now().UTC(), messageID, string(model.StatusPending),
	)
	if err != nil {
		return 0, fmt.Errorf("recording failure for %s: %w", messageID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("recording failure for %s: %w", messageID, err)
	}
	if affected == 0 {
		return 0, &NotFoundError{MessageID: messageID, Want: model.StatusPending}
	}

	var count int
	if err := tx.GetContext(ctx, &count,
		"SELECT failure_count FROM candidates WHERE message_id = ?", messageID,
	); err != nil {
		return 0, fmt.Errorf("reading failure count for %s: %w", messageID, err)
	}

	return count, tx.Commit()
}

// Get returns the candidate for the id from either live partition.
func (s *SQLiteStore) Get(
	ctx context.Context, messageID string,
) (*model.EventCandidate, error) {
	var row candidateRow
	err := s.db.GetContext(ctx, &row,
		"SELECT * FROM candidates WHERE message_id = ?", messageID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{MessageID: messageID}
	}
	if err != nil {
		return nil, fmt.Errorf("getting candidate %s: %w", messageID, err)
	}
	cand := row.toModel()
	return &cand, nil
}

// Contains reports whether the id exists in any live partition.
func (s *SQLiteStore) Contains(
	ctx context.Context, messageID string,
) (bool, error) {
	var count int
	err := s.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM candidates WHERE message_id = ?", messageID,
	)
	if err != nil {
		return false, fmt.Errorf("checking candidate %s: %w", messageID, err)
	}
	return count > 0, nil
}

// ListPending returns a snapshot of the pending partition in
// insertion order.
func (s *SQLiteStore) ListPending(ctx context.Context) ([]model.EventCandidate, error) {
	return s.listByStatus(ctx, model.StatusPending)
}

// ListDeclined returns a snapshot of the declined partition in
// insertion order.
func (s *SQLiteStore) ListDeclined(ctx context.Context) ([]model.EventCandidate, error) {
	return s.listByStatus(ctx, model.StatusDeclined)
}

func (s *SQLiteStore) listByStatus(
	ctx context.Context, status model.Status,
) ([]model.EventCandidate, error) {
	var rows []candidateRow
	err := s.db.SelectContext(ctx, &rows,
		"SELECT * FROM candidates WHERE status = ? ORDER BY rowid",
		string(status),
	)
	if err != nil {
		return nil, fmt.Errorf("listing %s candidates: %w", status, err)
	}

	cands := make([]model.EventCandidate, 0, len(rows))
	for _, r := range rows {
		cands = append(cands, r.toModel())
	}
	return cands, nil
}

// PurgeDeclined permanently deletes a declined candidate.
func (s *SQLiteStore) PurgeDeclined(ctx context.Context, messageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"DELETE FROM candidates WHERE message_id = ? AND status = ?",
		messageID, string(model.StatusDeclined),
	)
	if err != nil {
		return fmt.Errorf("purging candidate %s: %w", messageID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("purging candidate %s: %w", messageID, err)
	}
	if affected == 0 {
		return &NotFoundError{MessageID: messageID, Want: model.StatusDeclined}
	}
	return nil
}

// ListCreated returns the audit log of committed calendar writes,
// most recent first.
func (s *SQLiteStore) ListCreated(ctx context.Context) ([]model.CreatedEvent, error) {
	var rows []createdRow
	err := s.db.SelectContext(ctx, &rows,
		"SELECT * FROM created_events ORDER BY created_at DESC, id",
	)
	if err != nil {
		return nil, fmt.Errorf("listing created events: %w", err)
	}

	events := make([]model.CreatedEvent, 0, len(rows))
	for _, r := range rows {
		events = append(events, model.CreatedEvent(r))
	}
	return events, nil
}

// candidateRow mirrors the candidates table for sqlx scanning.
type candidateRow struct {
	MessageID    string    `db:"message_id"`
	Title        string    `db:"title"`
	Description  string    `db:"description"`
	StartTime    time.Time `db:"start_time"`
	EndTime      time.Time `db:"end_time"`
	Confidence   float64   `db:"confidence"`
	Status       string    `db:"status"`
	Note         string    `db:"note"`
	FailureCount int       `db:"failure_count"`
	DetectedAt   time.Time `db:"detected_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (r candidateRow) toModel() model.EventCandidate {
	return model.EventCandidate{
		SourceMessageID: r.MessageID,
		Title:           r.Title,
		Description:     r.Description,
		StartTime:       r.StartTime,
		EndTime:         r.EndTime,
		Confidence:      r.Confidence,
		Status:          model.Status(r.Status),
		Note:            r.Note,
		FailureCount:    r.FailureCount,
		DetectedAt:      r.DetectedAt,
	}
}

// createdRow mirrors the created_events table for sqlx scanning.
type createdRow struct {
	ID              string    `db:"id"`
	SourceMessageID string    `db:"message_id"`
	CalendarID      string    `db:"calendar_id"`
	Link            string    `db:"link"`
	Title           string    `db:"title"`
	StartTime       time.Time `db:"start_time"`
	CreatedAt       time.Time `db:"created_at"`
}
