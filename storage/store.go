// Package storage defines the session-scoped key-value contract the
// credential store persists through, with a process-local implementation and
// a Redis-backed one for portal shells that run across several workers.
package storage

import (
	"context"

	"github.com/pkg/errors"
)

// Keys reserved by the session core.
const (
	KeyIdentity   = "user"            // Identity, JSON encoded
	KeyCredential = "token"           // Raw signed credential
	KeyWarningAt  = "session.warning" // Warning threshold, epoch seconds
	KeyTimeoutAt  = "session.timeout" // Hard-timeout threshold, epoch seconds
)

// ErrNotFound is returned by Get for an absent key.
var ErrNotFound = errors.New("storage: key not found")

// Store is a session-scoped string key-value store. Clear wipes the whole
// scope, not just the reserved keys; other session-lifetime caches (e.g. a
// menu tree) share the scope and must not survive logout.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}
