// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/savingsguru/dealflow/internal/model"
)

// ProductSource resolves a single ASIN to verified product data. A source
// that cannot produce real data returns an error wrapping common.ErrNoData;
// it never fabricates a product. Both the PA-API client and the page
// scraper implement this, which lets the pipeline take test doubles.
type ProductSource interface {
	Resolve(ctx context.Context, asin string) (*model.Product, error)
	Name() string
	Healthy() bool
}

// Resolution records the outcome of one identifier within a session.
type Resolution struct {
	ASIN     string
	Source   model.DataSource
	Title    string
	Note     string
	Price    float64
	Resolved bool
}

// PricePoint is one observed price for an ASIN.
type PricePoint struct {
	ObservedAt time.Time
	ASIN       string
	Source     model.DataSource
	Price      float64
}

// SessionStore persists run history: sessions, per-identifier outcomes, and
// the price observations derived from them.
type SessionStore interface {
	SaveSession(ctx context.Context, session *model.Session) error
	SaveResolutions(ctx context.Context, sessionID string, resolutions []Resolution) error
	ListSessions(ctx context.Context, limit int) ([]model.Session, error)
	PriceHistory(ctx context.Context, asin string, limit int) ([]PricePoint, error)
	Migrate(ctx context.Context) error
	Close() error
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
