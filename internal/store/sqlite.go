// ABOUTME: SQLite implementation of the Store interface using modernc.org/sqlite
// ABOUTME: Provides question persistence with conditional status writes for claims

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Enable busy timeout so racing claim writes queue instead of erroring
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS questions (
			id                 TEXT PRIMARY KEY,
			session_id         TEXT NOT NULL,
			question           TEXT NOT NULL,
			industry           TEXT NOT NULL,
			status             TEXT NOT NULL,
			answer             TEXT,
			created_at         TEXT NOT NULL,
			author_token       TEXT NOT NULL,
			email              TEXT,
			moderation_flagged INTEGER NOT NULL DEFAULT 0,
			moderation_reason  TEXT,
			ip_hash            TEXT,
			user_agent         TEXT,

			CHECK (status IN ('pending', 'answering', 'answered', 'blocked'))
		);

		CREATE INDEX IF NOT EXISTS idx_questions_session
			ON questions(session_id, created_at DESC);

		CREATE INDEX IF NOT EXISTS idx_questions_author
			ON questions(author_token, created_at DESC);

		CREATE INDEX IF NOT EXISTS idx_questions_status
			ON questions(status, created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	s.logger.Info("closing SQLite store")
	return s.db.Close()
}

const questionColumns = `id, session_id, question, industry, status, answer, created_at,
		author_token, email, moderation_flagged, moderation_reason, ip_hash, user_agent`

// sqliteTimeFormat is fixed-width so lexicographic order on the stored text
// matches chronological order. RFC3339Nano trims trailing fractional zeros,
// which would sort "…00.1Z" after "…00.12Z".
const sqliteTimeFormat = "2006-01-02T15:04:05.000000000Z"

// CreateQuestion persists a new question.
// Returns ErrDuplicateQuestion if a question with the same ID already exists.
func (s *SQLiteStore) CreateQuestion(ctx context.Context, q *Question) error {
	query := `
		INSERT INTO questions (` + questionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var flagged int
	var reason string
	if q.Moderation != nil {
		if q.Moderation.Flagged {
			flagged = 1
		}
		reason = q.Moderation.Reason
	}

	var ipHash, userAgent string
	if q.Meta != nil {
		ipHash = q.Meta.IPHash
		userAgent = q.Meta.UserAgent
	}

	_, err := s.db.ExecContext(ctx, query,
		q.ID,
		q.SessionID,
		q.Text,
		q.Industry,
		q.Status,
		nullable(q.Answer),
		q.CreatedAt.UTC().Format(sqliteTimeFormat),
		q.AuthorToken,
		nullable(q.Email),
		flagged,
		nullable(reason),
		nullable(ipHash),
		nullable(userAgent),
	)
	if err != nil {
		if isConstraintViolation(err) {
			return ErrDuplicateQuestion
		}
		return fmt.Errorf("inserting question: %w", err)
	}

	s.logger.Debug("created question", "id", q.ID, "session", q.SessionID, "status", q.Status)
	return nil
}

// isConstraintViolation checks if the error is a SQLite UNIQUE constraint violation
func isConstraintViolation(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "UNIQUE constraint failed") ||
		strings.Contains(errStr, "constraint failed")
}

// nullable converts an empty string to a NULL-able sql value.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// GetQuestion retrieves a question by ID.
// Returns ErrNotFound if the question doesn't exist.
func (s *SQLiteStore) GetQuestion(ctx context.Context, id string) (*Question, error) {
	query := `SELECT ` + questionColumns + ` FROM questions WHERE id = ?`

	q, err := scanQuestion(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying question: %w", err)
	}
	return q, nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for scanQuestion.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuestion(row rowScanner) (*Question, error) {
	var q Question
	var answer, email, reason, ipHash, userAgent sql.NullString
	var createdAtStr string
	var flagged int

	err := row.Scan(
		&q.ID,
		&q.SessionID,
		&q.Text,
		&q.Industry,
		&q.Status,
		&answer,
		&createdAtStr,
		&q.AuthorToken,
		&email,
		&flagged,
		&reason,
		&ipHash,
		&userAgent,
	)
	if err != nil {
		return nil, err
	}

	q.Answer = answer.String
	q.Email = email.String
	q.Moderation = &ModerationResult{
		Flagged: flagged != 0,
		Reason:  reason.String,
	}
	if ipHash.Valid || userAgent.Valid {
		q.Meta = &Meta{
			IPHash:    ipHash.String,
			UserAgent: userAgent.String,
		}
	}

	// RFC3339Nano parsing accepts the fixed-width stored form.
	q.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}

	return &q, nil
}

// DeleteQuestion removes a question by ID.
// Returns ErrNotFound if the question doesn't exist.
func (s *SQLiteStore) DeleteQuestion(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM questions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting question: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking delete result: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}

	s.logger.Debug("deleted question", "id", id)
	return nil
}

// ListBySession returns the display feed for a session: all non-blocked
// questions, newest first.
func (s *SQLiteStore) ListBySession(ctx context.Context, sessionID string) ([]*Question, error) {
	query := `
		SELECT ` + questionColumns + `
		FROM questions
		WHERE session_id = ? AND status != 'blocked'
		ORDER BY created_at DESC, id DESC
	`
	return s.listQuestions(ctx, query, sessionID)
}

// ListByAuthor returns all questions for an author, all statuses, newest first.
func (s *SQLiteStore) ListByAuthor(ctx context.Context, authorToken string) ([]*Question, error) {
	query := `
		SELECT ` + questionColumns + `
		FROM questions
		WHERE author_token = ?
		ORDER BY created_at DESC, id DESC
	`
	return s.listQuestions(ctx, query, authorToken)
}

func (s *SQLiteStore) listQuestions(ctx context.Context, query string, args ...any) ([]*Question, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying questions: %w", err)
	}
	defer rows.Close()

	var questions []*Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning question: %w", err)
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating questions: %w", err)
	}

	return questions, nil
}

// OldestPending returns the pending question with the earliest creation time.
// Ties are broken by ID, which sorts in creation order as well.
// Returns ErrNotFound when no question is pending.
func (s *SQLiteStore) OldestPending(ctx context.Context) (*Question, error) {
	query := `
		SELECT ` + questionColumns + `
		FROM questions
		WHERE status = 'pending'
		ORDER BY created_at ASC, id ASC
		LIMIT 1
	`

	q, err := scanQuestion(s.db.QueryRowContext(ctx, query))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying oldest pending question: %w", err)
	}
	return q, nil
}

// ClaimPending transitions a question from pending to answering using a
// conditional write. The UPDATE matches zero rows unless the stored status
// is still pending, so only one of two racing worker runs can win.
func (s *SQLiteStore) ClaimPending(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE questions SET status = 'answering' WHERE id = ? AND status = 'pending'`, id)
	if err != nil {
		return fmt.Errorf("claiming question: %w", err)
	}
	return s.conditionalWriteResult(ctx, res, id, "claimed question")
}

// SetAnswered transitions a question from answering to answered and records
// the answer. Conditional on the stored status still being answering.
func (s *SQLiteStore) SetAnswered(ctx context.Context, id, answer string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE questions SET status = 'answered', answer = ? WHERE id = ? AND status = 'answering'`,
		answer, id)
	if err != nil {
		return fmt.Errorf("recording answer: %w", err)
	}
	return s.conditionalWriteResult(ctx, res, id, "answered question")
}

// ReleaseClaim reverts a question from answering back to pending, making it
// eligible for a future claim. Conditional on the stored status still being
// answering.
func (s *SQLiteStore) ReleaseClaim(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE questions SET status = 'pending' WHERE id = ? AND status = 'answering'`, id)
	if err != nil {
		return fmt.Errorf("releasing claim: %w", err)
	}
	return s.conditionalWriteResult(ctx, res, id, "released claim on question")
}

// conditionalWriteResult maps a zero-row conditional UPDATE to ErrClaimLost,
// or to ErrNotFound when the question no longer exists at all.
func (s *SQLiteStore) conditionalWriteResult(ctx context.Context, res sql.Result, id, action string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update result: %w", err)
	}
	if n == 0 {
		var exists int
		err := s.db.QueryRowContext(ctx, `SELECT 1 FROM questions WHERE id = ?`, id).Scan(&exists)
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("checking question existence: %w", err)
		}
		return ErrClaimLost
	}

	s.logger.Debug(action, "id", id)
	return nil
}
