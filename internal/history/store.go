package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/access-system/face-recognition-enrollment/internal/config"
)

// Store persists attempt outcomes in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates or opens the history database at cfg.HistoryPath.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(cfg.HistoryPath())
}

// OpenPath opens the database file at path.
func OpenPath(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, err)
		}
	}
	store := &Store{db: db, path: path}
	if err := store.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Close closes the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record inserts entry. A second record for the same attempt is ignored so
// that exactly one outcome is kept per attempt.
func (s *Store) Record(ctx context.Context, entry Entry) error {
	if strings.TrimSpace(entry.AttemptID) == "" || !entry.Outcome.Valid() {
		return fmt.Errorf("%w: attempt %q outcome %q", ErrInvalidEntry, entry.AttemptID, entry.Outcome)
	}
	if entry.Finished.IsZero() {
		entry.Finished = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO attempts (attempt_id, outcome, identifier, message, started_at, finished_at)
         VALUES (?, ?, ?, ?, ?, ?)
         ON CONFLICT(attempt_id) DO NOTHING`,
		entry.AttemptID,
		string(entry.Outcome),
		nullableString(entry.Identifier),
		nullableString(entry.Message),
		nullableTime(entry.Started),
		entry.Finished.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}
	return nil
}

// Query filters List results.
type Query struct {
	Outcome Outcome
	Limit   int
}

const entryColumns = "id, attempt_id, outcome, identifier, message, started_at, finished_at"

// List returns attempts newest first.
func (s *Store) List(ctx context.Context, q Query) ([]Entry, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}
	var (
		rows *sql.Rows
		err  error
	)
	if q.Outcome != "" {
		rows, err = s.db.QueryContext(ctx,
			`SELECT `+entryColumns+` FROM attempts WHERE outcome = ? ORDER BY finished_at DESC, id DESC LIMIT ?`,
			string(q.Outcome), limit)
	} else {
		rows, err = s.db.QueryContext(ctx,
			`SELECT `+entryColumns+` FROM attempts ORDER BY finished_at DESC, id DESC LIMIT ?`, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attempts: %w", err)
	}
	return entries, nil
}

// Get returns the entry for attemptID, or nil when none was recorded.
func (s *Store) Get(ctx context.Context, attemptID string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM attempts WHERE attempt_id = ?`, attemptID)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// Counts returns the number of attempts per outcome.
func (s *Store) Counts(ctx context.Context) (map[Outcome]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT outcome, COUNT(1) FROM attempts GROUP BY outcome`)
	if err != nil {
		return nil, fmt.Errorf("count attempts: %w", err)
	}
	defer rows.Close()
	counts := make(map[Outcome]int)
	for rows.Next() {
		var outcome string
		var n int
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[Outcome(outcome)] = n
	}
	return counts, rows.Err()
}

// Prune deletes attempts that finished before cutoff and reports how many
// were removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM attempts WHERE finished_at < ?`, cutoff.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("prune attempts: %w", err)
	}
	return res.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (Entry, error) {
	var (
		entry      Entry
		outcome    string
		identifier sql.NullString
		message    sql.NullString
		started    sql.NullString
		finished   string
	)
	if err := row.Scan(&entry.ID, &entry.AttemptID, &outcome, &identifier, &message, &started, &finished); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, err
		}
		return Entry{}, fmt.Errorf("scan attempt: %w", err)
	}
	entry.Outcome = Outcome(outcome)
	entry.Identifier = identifier.String
	entry.Message = message.String
	if started.Valid {
		entry.Started, _ = time.Parse(time.RFC3339Nano, started.String)
	}
	entry.Finished, _ = time.Parse(time.RFC3339Nano, finished)
	return entry, nil
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func nullableTime(value time.Time) any {
	if value.IsZero() {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}
