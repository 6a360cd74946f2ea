// Package session owns the life cycle of the authenticated identity: login,
// refresh, verify, logout, and the timer-driven expiry protocol. It is the
// only component that mutates the credential store.
package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/cpope-co/portal-session/credstore"
	"github.com/cpope-co/portal-session/identity"
	"github.com/cpope-co/portal-session/storage"
)

const defaultPollInterval = 10 * time.Second

// Manager drives all Identity/Credential transitions. One instance is
// constructed at process start and injected into every consumer; it carries
// no package-level state so tests can build isolated instances.
type Manager struct {
	api       API
	creds     *credstore.CredStore
	store     storage.Store
	prompter  Prompter
	navigator Navigator

	log          zerolog.Logger
	nowFunc      func() time.Time
	pollInterval time.Duration

	loginCount  atomic.Uint64
	logoutCount atomic.Uint64

	lock        sync.Mutex // guards loggingOut and the poll channels
	loggingOut  bool
	warnStop    chan struct{}
	timeoutStop chan struct{}
}

type ManagerOption func(*Manager)

// WithNowFunc sets the clock (primarily for testing).
func WithNowFunc(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowFunc = now
	}
}

// WithPollInterval overrides the expiry poll interval.
func WithPollInterval(interval time.Duration) ManagerOption {
	return func(m *Manager) {
		m.pollInterval = interval
	}
}

func WithLogger(log zerolog.Logger) ManagerOption {
	return func(m *Manager) {
		m.log = log
	}
}

func NewManager(api API, creds *credstore.CredStore, store storage.Store, prompter Prompter, navigator Navigator, options ...ManagerOption) (*Manager, error) {
	if api == nil {
		return nil, errors.New("[NewManager] api is required")
	}
	if creds == nil {
		return nil, errors.New("[NewManager] credential store is required")
	}
	if store == nil {
		return nil, errors.New("[NewManager] session store is required")
	}
	if prompter == nil {
		return nil, errors.New("[NewManager] prompter is required")
	}
	if navigator == nil {
		return nil, errors.New("[NewManager] navigator is required")
	}

	m := &Manager{
		api:          api,
		creds:        creds,
		store:        store,
		prompter:     prompter,
		navigator:    navigator,
		log:          zerolog.Nop(),
		nowFunc:      time.Now,
		pollInterval: defaultPollInterval,
	}
	for _, opt := range options {
		opt(m)
	}
	return m, nil
}

// Restore loads a persisted session from the store and, when one was found,
// kicks off the detached startup token validation.
func (m *Manager) Restore(ctx context.Context) {
	m.creds.Restore(ctx)
	if m.creds.Identity() != nil {
		m.ValidateTokenOnInit(ctx)
	}
}

// Login exchanges credentials for a token, commits the decoded identity, and
// bumps the login counter. Nothing is mutated on any failure. Dependents
// holding role-derived caches (menu tree) watch the login counter to
// invalidate.
func (m *Manager) Login(ctx context.Context, identifier, secret string) (*identity.Identity, error) {
	token, err := m.api.Login(ctx, identifier, secret)
	if err != nil {
		return nil, errors.Wrap(err, "[Manager.Login] api.Login")
	}

	id, err := identity.Decode(token)
	if err != nil {
		return nil, errors.Wrap(err, "[Manager.Login] decode credential")
	}

	if err := m.creds.Set(ctx, id, token); err != nil {
		return nil, errors.Wrap(err, "[Manager.Login] commit credential")
	}

	m.loginCount.Add(1)
	m.log.Info().Int64("sub", id.Sub).Msg("login")
	return id, nil
}

// Refresh trades the current credential for a new one and commits the
// replacement pair atomically. On failure nothing is mutated; the caller
// decides whether to escalate to logout. A result whose generation went
// stale (a login landed while the refresh was in flight) is discarded.
func (m *Manager) Refresh(ctx context.Context) error {
	_, credential, generation := m.creds.Snapshot()
	if credential == "" {
		return NoSessionErr
	}

	token, err := m.api.Refresh(ctx, credential)
	if err != nil {
		return errors.Wrap(err, "[Manager.Refresh] api.Refresh")
	}

	id, err := identity.Decode(token)
	if err != nil {
		return errors.Wrap(err, "[Manager.Refresh] decode credential")
	}

	if err := m.creds.SetIfGeneration(ctx, generation, id, token); err != nil {
		if errors.Is(err, credstore.ErrStaleGeneration) {
			m.log.Debug().Msg("[Manager.Refresh] discarding stale refresh result")
			return nil
		}
		return errors.Wrap(err, "[Manager.Refresh] commit credential")
	}
	return nil
}

// Verify exchanges an email-link one-time token for a credential. Unlike
// Refresh it needs no existing session.
func (m *Manager) Verify(ctx context.Context, oneTimeToken string) (*identity.Identity, error) {
	_, _, generation := m.creds.Snapshot()

	token, err := m.api.Verify(ctx, oneTimeToken)
	if err != nil {
		return nil, errors.Wrap(err, "[Manager.Verify] api.Verify")
	}

	id, err := identity.Decode(token)
	if err != nil {
		return nil, errors.Wrap(err, "[Manager.Verify] decode credential")
	}

	if err := m.creds.SetIfGeneration(ctx, generation, id, token); err != nil {
		if errors.Is(err, credstore.ErrStaleGeneration) {
			m.log.Debug().Msg("[Manager.Verify] discarding stale verify result")
			return id, nil
		}
		return nil, errors.Wrap(err, "[Manager.Verify] commit credential")
	}
	return id, nil
}

// Logout tears the session down. Concurrent invocations collapse into one
// execution. The server-side call is best effort; local state is cleared
// unconditionally so the user is never stuck logged in locally, then the
// logout counter moves and the user lands on the login screen with the
// reason's message.
func (m *Manager) Logout(ctx context.Context, reason LogoutReason) {
	m.lock.Lock()
	if m.loggingOut {
		m.lock.Unlock()
		return
	}
	m.loggingOut = true
	m.lock.Unlock()

	defer func() {
		m.lock.Lock()
		m.loggingOut = false
		m.lock.Unlock()
	}()

	m.StopSessionCheck()

	defer func() {
		m.creds.Clear(ctx)
		m.logoutCount.Add(1)
		m.navigator.ToLogin(messageForReason(reason))
		m.log.Info().Str("reason", string(reason)).Msg("logout")
	}()

	if credential := m.creds.Credential(); credential != "" {
		if err := m.api.Logout(ctx, credential); err != nil {
			m.log.Warn().Err(err).Msg("[Manager.Logout] server logout failed, clearing locally")
		}
	}
}

// LoginCount is an edge-triggered signal: it only ever increases, and
// dependents compare it to their last-seen value so a transition is observed
// exactly once, even by subscribers that were not listening when it happened.
func (m *Manager) LoginCount() uint64 {
	return m.loginCount.Load()
}

// LogoutCount is the logout counterpart of LoginCount.
func (m *Manager) LogoutCount() uint64 {
	return m.logoutCount.Load()
}
