package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"essaycoach/models"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS coach_analyses (
	id          TEXT PRIMARY KEY,
	user_id     TEXT NOT NULL,
	essay_text  TEXT NOT NULL,
	context     TEXT,
	analysis    TEXT NOT NULL,
	created_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_coach_analyses_user_created
	ON coach_analyses (user_id, created_at DESC);
`

// Fixed-width so that created_at sorts lexically.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLiteStore is the local backend, mostly for development and tests.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(ctx context.Context, conn *sql.DB) (*SQLiteStore, error) {
	if conn == nil {
		return nil, errors.New("nil db")
	}
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	}
	for _, stmt := range pragmas {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("apply sqlite pragma %q: %w", stmt, err)
		}
	}
	if _, err := conn.ExecContext(ctx, sqliteSchema); err != nil {
		return nil, fmt.Errorf("exec migration: %w", err)
	}
	return &SQLiteStore{db: conn}, nil
}

func (s *SQLiteStore) Insert(ctx context.Context, rec models.AnalysisRecord) error {
	analysis, err := json.Marshal(rec.Analysis)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO coach_analyses (id, user_id, essay_text, context, analysis, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.UserID, rec.EssayText, rec.Context, string(analysis), rec.CreatedAt.UTC().Format(sqliteTimeLayout))
	if err != nil {
		return fmt.Errorf("failed to insert analysis: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListByUser(ctx context.Context, userID string, limit int) ([]models.AnalysisRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, essay_text, context, analysis, created_at FROM coach_analyses
		 WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`,
		userID, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query analyses: %w", err)
	}
	defer rows.Close()

	records := []models.AnalysisRecord{}
	for rows.Next() {
		var (
			rec       models.AnalysisRecord
			ctxText   sql.NullString
			analysis  string
			createdAt string
		)
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.EssayText, &ctxText, &analysis, &createdAt); err != nil {
			return nil, err
		}
		rec.Context = ctxText.String
		if err := json.Unmarshal([]byte(analysis), &rec.Analysis); err != nil {
			return nil, fmt.Errorf("failed to decode analysis %s: %w", rec.ID, err)
		}
		if rec.CreatedAt, err = time.Parse(sqliteTimeLayout, createdAt); err != nil {
			return nil, fmt.Errorf("failed to parse created_at for %s: %w", rec.ID, err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *SQLiteStore) Close(context.Context) error {
	return s.db.Close()
}
