package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dkozyrev/support-docs-bot/internal/core/domain"
)

// SessionRepository persists per-session conversation turns. The
// answering core never reads them; they exist for session history
// rendering by the UI collaborator.
type SessionRepository struct {
	db *sql.DB
}

func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082902)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS session_turns (
	seq BIGSERIAL PRIMARY KEY,
	id TEXT NOT NULL UNIQUE,
	session_id TEXT NOT NULL REFERENCES sessions(id),
	role TEXT NOT NULL,
	content TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_session_turns_session ON session_turns(session_id, seq);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *SessionRepository) EnsureSession(ctx context.Context, sessionID string) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO sessions (id, created_at)
VALUES ($1, $2)
ON CONFLICT (id) DO NOTHING
`, sessionID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("ensure session: %w", err)
	}
	return nil
}

func (r *SessionRepository) AppendTurn(ctx context.Context, turn domain.ConversationTurn) error {
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO session_turns (id, session_id, role, content, created_at)
VALUES ($1,$2,$3,$4,$5)
`, turn.ID, turn.SessionID, turn.Role, turn.Text, turn.CreatedAt)
	if err != nil {
		return fmt.Errorf("append session turn: %w", err)
	}
	return nil
}

func (r *SessionRepository) ListTurns(ctx context.Context, sessionID string, limit int) ([]domain.ConversationTurn, error) {
	if limit <= 0 {
		limit = 50
	}
	// seq breaks ties when both turns of one exchange share a timestamp.
	rows, err := r.db.QueryContext(ctx, `
SELECT id, session_id, role, content, created_at
FROM session_turns
WHERE session_id = $1
ORDER BY created_at DESC, seq DESC
LIMIT $2
`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("list session turns: %w", err)
	}
	defer rows.Close()

	out := make([]domain.ConversationTurn, 0, limit)
	for rows.Next() {
		var turn domain.ConversationTurn
		if err := rows.Scan(&turn.ID, &turn.SessionID, &turn.Role, &turn.Text, &turn.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan session turn: %w", err)
		}
		out = append(out, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate session turns: %w", err)
	}

	// Chronological order for rendering.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}
