// Package guard provides the request-level interceptor for authenticated
// HTTP calls: it injects the bearer credential on the way out and, on an
// unauthorized response, defers to the session manager for recovery instead
// of duplicating its logic. It never mutates session state directly.
package guard

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/cpope-co/portal-session/session"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ctxKeySkipAuth marks requests that must not carry the bearer header
	// (login, verify - not yet authenticated).
	ctxKeySkipAuth ContextKey = "skip_auth"
	// ctxKeySkipRefresh marks requests that must not trigger refresh
	// recovery (refresh and logout themselves, to avoid recursion).
	ctxKeySkipRefresh ContextKey = "skip_refresh"
)

// WithSkipAuth marks the request context to bypass bearer injection.
func WithSkipAuth(ctx context.Context) context.Context {
	return context.WithValue(ctx, ctxKeySkipAuth, true)
}

// WithSkipRefresh marks the request context to bypass 401 recovery.
func WithSkipRefresh(ctx context.Context) context.Context {
	return context.WithValue(ctx, ctxKeySkipRefresh, true)
}

func marked(ctx context.Context, key ContextKey) bool {
	v, _ := ctx.Value(key).(bool)
	return v
}

// Controller is the slice of the session manager the guard drives. The
// guard implements no expiry arithmetic of its own.
type Controller interface {
	IsSessionActive() bool
	CanRefresh() bool
	ResetSession(ctx context.Context) error
	Logout(ctx context.Context, reason session.LogoutReason)
}

// CredentialSource yields the current credential, or "" when anonymous.
type CredentialSource interface {
	Credential() string
}

var _ http.RoundTripper = (*Guard)(nil)

// Guard is an http.RoundTripper. The controller is bound after construction
// because the manager's own API client rides through this same transport.
type Guard struct {
	base        http.RoundTripper
	credentials CredentialSource
	controller  Controller
	log         zerolog.Logger
}

type Option func(*Guard)

func WithLogger(log zerolog.Logger) Option {
	return func(g *Guard) {
		g.log = log
	}
}

func New(base http.RoundTripper, credentials CredentialSource, options ...Option) *Guard {
	if base == nil {
		base = http.DefaultTransport
	}
	g := &Guard{
		base:        base,
		credentials: credentials,
		log:         zerolog.Nop(),
	}
	for _, opt := range options {
		opt(g)
	}
	return g
}

// Bind attaches the session controller. Until bound, 401 responses pass
// through untouched.
func (g *Guard) Bind(controller Controller) {
	g.controller = controller
}

// RoundTrip injects the bearer header unless the request opts out, and on a
// 401 without the skip-refresh marker either kicks off a best-effort session
// reset or logs out. The response is always handed back unchanged so the
// caller's error handling still runs; the original call is never replayed.
func (g *Guard) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	if !marked(ctx, ctxKeySkipAuth) && req.Header.Get("Authorization") == "" {
		if credential := g.credentials.Credential(); credential != "" {
			req = req.Clone(ctx)
			req.Header.Set("Authorization", "Bearer "+credential)
		}
	}

	resp, err := g.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized && !marked(ctx, ctxKeySkipRefresh) && g.controller != nil {
		g.recover(ctx, req)
	}
	return resp, nil
}

func (g *Guard) recover(ctx context.Context, req *http.Request) {
	if !g.controller.IsSessionActive() && g.controller.CanRefresh() {
		// Best effort, detached from the failing request: the session is
		// healed for subsequent calls, the original one is not replayed.
		g.log.Debug().Str("path", req.URL.Path).Msg("[Guard] unauthorized, attempting session reset")
		go func() {
			if err := g.controller.ResetSession(context.WithoutCancel(ctx)); err != nil {
				g.log.Warn().Err(err).Msg("[Guard] session reset failed")
			}
		}()
		return
	}

	g.log.Debug().Str("path", req.URL.Path).Msg("[Guard] unauthorized, logging out")
	g.controller.Logout(context.WithoutCancel(ctx), session.ReasonTokenExpired)
}
