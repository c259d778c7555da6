// Package keystore persists API key records and their monthly usage counters.
// The server treats it as a capability interface; drivers exist for in-memory
// (single process, tests) and Redis deployments.
package keystore

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Record is one provisioned API key with its identity and usage history.
type Record struct {
	Key       string           `json:"key"`
	Name      string           `json:"name"`
	Email     string           `json:"email"`
	Tier      string           `json:"tier"`
	Usage     map[string]int64 `json:"usage"`
	CreatedAt time.Time        `json:"createdAt"`
}

// UsageFor returns the usage counter for a calendar month key.
func (r *Record) UsageFor(month string) int64 {
	if r.Usage == nil {
		return 0
	}
	return r.Usage[month]
}

// Store is the capability interface the auth gate and key management API
// depend on.
type Store interface {
	// Validate resolves a key to its record; ErrKeyNotFound when unknown.
	Validate(ctx context.Context, key string) (*Record, error)

	// RecordUsage atomically increments the current-month counter for key.
	RecordUsage(ctx context.Context, key string) error

	// Create provisions a new key. A key belongs to exactly one email:
	// ErrEmailExists when the email already has one.
	Create(ctx context.Context, name, email, tier string) (*Record, error)

	// GetByEmail resolves an email to its record; ErrKeyNotFound when absent.
	GetByEmail(ctx context.Context, email string) (*Record, error)

	// Upgrade mutates the tier of the record owned by email in place.
	Upgrade(ctx context.Context, email, tier string) error

	Close() error
}

// MonthKey returns the calendar-month usage bucket for t, e.g. "2026-09".
func MonthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// NewKey mints an opaque API key.
func NewKey() string {
	return "seo_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}
