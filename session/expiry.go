package session

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/cpope-co/portal-session/identity"
	"github.com/cpope-co/portal-session/storage"
)

// Expiry classification leads, measured back from the credential's exp.
// The expiring lead is intentionally the wider window and is checked first;
// once time passes exp-580s the expired branch is shadowed for the rest of
// the token's life. Call sites depend on this observable ordering.
const (
	expiringLead = 580 * time.Second
	expiredLead  = 540 * time.Second
)

const warningPromptText = "Your session is about to expire. Do you want to stay logged in?"

// CheckExpiry classifies the current time against the persisted identity's
// expiry. It rejects with NoSessionErr when no identity is persisted.
func (m *Manager) CheckExpiry(ctx context.Context) (ExpiryState, error) {
	raw, err := m.store.Get(ctx, storage.KeyIdentity)
	if err != nil {
		return "", NoSessionErr
	}

	var id identity.Identity
	if err := json.Unmarshal([]byte(raw), &id); err != nil || id.Exp == 0 {
		return "", NoSessionErr
	}

	now := m.nowFunc().Unix()
	switch {
	case now >= id.Exp-int64(expiringLead.Seconds()):
		return StateExpiring, nil
	case now >= id.Exp-int64(expiredLead.Seconds()):
		return StateExpired, nil
	default:
		return StateValid, nil
	}
}

// ValidateTokenOnInit checks the restored session's expiry and refreshes or
// logs out as needed. It runs detached so application startup never blocks
// on it, and it swallows every internal failure by converting it into a
// logout.
func (m *Manager) ValidateTokenOnInit(ctx context.Context) {
	go m.validateToken(ctx)
}

func (m *Manager) validateToken(ctx context.Context) {
	state, err := m.CheckExpiry(ctx)
	if err != nil {
		m.Logout(ctx, ReasonTokenExpired)
		return
	}
	if state == StateExpiring || state == StateExpired {
		m.refreshToken(ctx)
	}
}

// refreshToken wraps Refresh and escalates its failure to a logout.
func (m *Manager) refreshToken(ctx context.Context) {
	if err := m.Refresh(ctx); err != nil {
		m.log.Warn().Err(err).Msg("[Manager.refreshToken] refresh failed, logging out")
		m.Logout(ctx, ReasonTokenExpired)
	}
}

// StartSessionCheck starts the two expiry polls: a warning poll against the
// persisted warning threshold and a session poll against the persisted
// hard-timeout threshold. Each poll compares the wall clock to its threshold
// every tick, so a host suspended across its deadline fires on the next tick
// rather than relying on a long timer that slept through it. Each poll
// self-cancels after firing once.
func (m *Manager) StartSessionCheck(ctx context.Context) {
	m.StopSessionCheck()

	m.lock.Lock()
	defer m.lock.Unlock()

	m.warnStop = make(chan struct{})
	m.timeoutStop = make(chan struct{})

	go m.poll(ctx, storage.KeyWarningAt, m.warnStop, m.handleWarningTimeout)
	go m.poll(ctx, storage.KeyTimeoutAt, m.timeoutStop, m.handleSessionTimeout)
}

// StopSessionCheck cancels both polls. Idempotent, safe with no poll active.
func (m *Manager) StopSessionCheck() {
	m.lock.Lock()
	defer m.lock.Unlock()

	if m.warnStop != nil {
		close(m.warnStop)
		m.warnStop = nil
	}
	if m.timeoutStop != nil {
		close(m.timeoutStop)
		m.timeoutStop = nil
	}
}

func (m *Manager) poll(ctx context.Context, thresholdKey string, stop chan struct{}, fire func(context.Context)) {
	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			raw, err := m.store.Get(ctx, thresholdKey)
			if err != nil {
				continue
			}
			threshold, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				continue
			}
			if m.nowFunc().Unix() >= threshold {
				fire(ctx)
				return
			}
		}
	}
}

// handleWarningTimeout surfaces the stay-logged-in prompt. It mutates no
// state itself; the user's choice drives ResetSession or Logout.
func (m *Manager) handleWarningTimeout(ctx context.Context) {
	action, err := m.prompter.Prompt(ctx, ModeRefresh, warningPromptText)
	if err != nil {
		m.log.Warn().Err(err).Msg("[Manager.handleWarningTimeout] prompt failed")
		return
	}

	switch action {
	case ActionRefresh:
		if err := m.ResetSession(ctx); err != nil {
			m.log.Warn().Err(err).Msg("[Manager.handleWarningTimeout] session reset failed, logging out")
			m.Logout(ctx, ReasonTokenExpired)
		}
	case ActionLogout:
		m.Logout(ctx, ReasonManual)
	}
}

// handleSessionTimeout dismisses any open prompt and force-logs-out.
func (m *Manager) handleSessionTimeout(ctx context.Context) {
	m.prompter.Dismiss()
	m.Logout(ctx, ReasonTimeout)
}

// ResetSession stops polling, refreshes the credential, and restarts polling
// against the thresholds persisted by the new credential's commit. If the
// refresh fails, polling stays stopped and the failure propagates; the
// caller decides whether to log out.
func (m *Manager) ResetSession(ctx context.Context) error {
	m.StopSessionCheck()

	if err := m.Refresh(ctx); err != nil {
		return err
	}

	m.StartSessionCheck(ctx)
	return nil
}

// IsSessionActive reports whether an identity is present and unexpired.
// Side-effect free.
func (m *Manager) IsSessionActive() bool {
	id := m.creds.Identity()
	if id == nil {
		return false
	}
	return m.nowFunc().Unix() < id.Exp
}

// CanRefresh reports whether the refresh expiry has already passed. Note the
// truth table is the inverse of the name's natural reading; the transport
// guard's recovery branch depends on exactly this table, so it must not be
// "fixed" without auditing every call site.
func (m *Manager) CanRefresh() bool {
	id := m.creds.Identity()
	if id == nil {
		return false
	}
	return m.nowFunc().Unix() >= id.RefExp
}
