package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists conversations in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS chat_turns (
			seq BIGSERIAL NOT NULL,
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			speaker TEXT NOT NULL,
			text TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_chat_turns_user_seq ON chat_turns (user_id, seq);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *PostgresStore) AppendTurn(ctx context.Context, userID, speaker, text string) (Turn, error) {
	turn := Turn{
		ID:        uuid.NewString(),
		UserID:    userID,
		Speaker:   speaker,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}
	var seq int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO chat_turns (id, user_id, speaker, text, created_at)
		 VALUES ($1, $2, $3, $4, $5) RETURNING seq`,
		turn.ID, turn.UserID, turn.Speaker, turn.Text, turn.CreatedAt,
	).Scan(&seq)
	if err != nil {
		return Turn{}, fmt.Errorf("append turn: %w", err)
	}
	turn.Seq = uint64(seq)
	return turn, nil
}

func (s *PostgresStore) ListTurns(ctx context.Context, userID string) ([]Turn, error) {
	return s.query(ctx,
		`SELECT seq, id, user_id, speaker, text, created_at
		 FROM chat_turns WHERE user_id=$1 ORDER BY seq ASC`,
		userID,
	)
}

func (s *PostgresStore) RecentTurns(ctx context.Context, userID string, limit int) ([]Turn, error) {
	if limit <= 0 {
		return s.ListTurns(ctx, userID)
	}
	turns, err := s.query(ctx,
		`SELECT seq, id, user_id, speaker, text, created_at
		 FROM chat_turns WHERE user_id=$1 ORDER BY seq DESC LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, err
	}

	// Reverse into chronological order.
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

func (s *PostgresStore) ClearTurns(ctx context.Context, userID string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM chat_turns WHERE user_id=$1`, userID); err != nil {
		return fmt.Errorf("clear turns: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) query(ctx context.Context, sql string, args ...any) ([]Turn, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query turns: %w", err)
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		var (
			t   Turn
			seq int64
		)
		if err := rows.Scan(&seq, &t.ID, &t.UserID, &t.Speaker, &t.Text, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan turn row: %w", err)
		}
		t.Seq = uint64(seq)
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate turn rows: %w", err)
	}
	return turns, nil
}
