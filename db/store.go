package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"essaycoach/config"
	"essaycoach/models"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// Store is implemented by every persistence backend.
type Store interface {
	Insert(ctx context.Context, rec models.AnalysisRecord) error
	ListByUser(ctx context.Context, userID string, limit int) ([]models.AnalysisRecord, error)
	Close(ctx context.Context) error
}

// NewStore opens the backend selected by persistence.driver. It returns a
// nil Store when persistence is disabled.
func NewStore(ctx context.Context, cfg *config.Config, client *http.Client) (Store, error) {
	switch cfg.Persistence.Driver {
	case config.DriverNone:
		return nil, nil
	case config.DriverSupabase:
		return NewSupabaseStore(cfg.Supabase.URL, cfg.Supabase.ServiceRoleKey, cfg.Supabase.Table, client), nil
	case config.DriverMongo:
		store, err := ConnectMongoDB(ctx, cfg.Database.URI)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.DriverSQLite:
		conn, err := sql.Open("sqlite", cfg.SQLite.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite: %w", err)
		}
		store, err := NewSQLiteStore(ctx, conn)
		if err != nil {
			_ = conn.Close()
			return nil, err
		}
		return store, nil
	}
	return nil, fmt.Errorf("unknown persistence driver %q", cfg.Persistence.Driver)
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultListLimit
	case limit > MaxListLimit:
		return MaxListLimit
	}
	return limit
}
