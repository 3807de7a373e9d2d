// Package store persists a record of every generation the relay served.
package store

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"intenserp-api/internal/config"
)

// Generation is one completed (or interrupted) request/response exchange.
type Generation struct {
	ID          int64     `json:"id"`
	ResponseID  int64     `json:"response_id"`
	Model       string    `json:"model"`
	Prompt      string    `json:"prompt"`
	Response    string    `json:"response"`
	Deepthink   bool      `json:"deepthink"`
	Search      bool      `json:"search"`
	Streamed    bool      `json:"streamed"`
	Interrupted bool      `json:"interrupted"`
	DurationMS  int64     `json:"duration_ms"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store records generation history.
type Store interface {
	SaveGeneration(ctx context.Context, gen *Generation) error
	ListRecent(ctx context.Context, limit int) ([]*Generation, error)
	Close() error
}

// New opens the store selected by history.*. Disabled history yields a nil
// Store; callers treat nil as "do not record".
func New(cfg *config.Store, log *logrus.Logger) (Store, error) {
	if !cfg.GetBool("history.enabled", true) {
		return nil, nil
	}
	return OpenSQLite(cfg.GetString("history.path", "data/history.db"), log)
}
