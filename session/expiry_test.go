package session_test

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cpope-co/portal-session/session"
	"github.com/cpope-co/portal-session/storage"
)

func TestCheckExpiry_Valid(t *testing.T) {
	f := setupTestFixture(t)
	// exp - 580s is still one second away.
	f.login(t, 581*time.Second, time.Hour)

	state, err := f.manager.CheckExpiry(context.Background())
	require.NoError(t, err)
	require.Equal(t, session.StateValid, state)
}

func TestCheckExpiry_ExpiringAtThreshold(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t, 580*time.Second, time.Hour)

	state, err := f.manager.CheckExpiry(context.Background())
	require.NoError(t, err)
	require.Equal(t, session.StateExpiring, state)
}

func TestCheckExpiry_ExpiringShadowsExpired(t *testing.T) {
	f := setupTestFixture(t)
	// Well inside the exp - 540s window, but the wider expiring window is
	// checked first and always wins. Call sites rely on this ordering.
	f.login(t, 100*time.Second, time.Hour)

	state, err := f.manager.CheckExpiry(context.Background())
	require.NoError(t, err)
	require.Equal(t, session.StateExpiring, state)
}

func TestCheckExpiry_NoSession(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.manager.CheckExpiry(context.Background())
	require.ErrorIs(t, err, session.NoSessionErr)
}

func TestRestore_ValidTokenKeepsSession(t *testing.T) {
	f := setupTestFixture(t)
	token := f.login(t, time.Hour, 2*time.Hour)

	f.manager.Restore(context.Background())

	// Startup validation runs detached and must leave a healthy session be.
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, token, f.creds.Credential())
	require.Zero(t, f.manager.LogoutCount())
	require.Zero(t, f.api.RefreshCalls())
}

func TestRestore_ExpiringTokenRefreshes(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t, 300*time.Second, time.Hour)

	now := f.clock.Now().Unix()
	refreshed := forgeCredential(t, now, now+3600, now+7200)
	f.api.Token = refreshed

	f.manager.Restore(context.Background())

	require.Eventually(t, func() bool {
		return f.creds.Credential() == refreshed
	}, time.Second, 5*time.Millisecond)
	require.Zero(t, f.manager.LogoutCount())
}

func TestRestore_RefreshFailureLogsOut(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t, 300*time.Second, time.Hour)

	f.api.RefreshFunc = func(context.Context, string) (string, error) {
		return "", session.NoTokenErr
	}

	f.manager.Restore(context.Background())

	require.Eventually(t, func() bool {
		return f.manager.LogoutCount() == 1
	}, time.Second, 5*time.Millisecond)
	require.Nil(t, f.creds.Identity())
	require.Equal(t, session.SeverityError, f.navigator.LastMessage().Severity)
}

func TestStartSessionCheck_WarningFiresOnce(t *testing.T) {
	f := setupTestFixture(t)
	// Past the warning threshold (exp - 120s) but well short of the
	// hard timeout.
	f.login(t, 60*time.Second, time.Hour)

	f.manager.StartSessionCheck(context.Background())

	require.Eventually(t, func() bool {
		return f.prompter.PromptCalls() == 1
	}, time.Second, 5*time.Millisecond)

	// The warning poll self-cancels after firing.
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, 1, f.prompter.PromptCalls())
	require.Zero(t, f.prompter.DismissCalls())
	require.Zero(t, f.manager.LogoutCount())
}

func TestStartSessionCheck_HardTimeoutLogsOut(t *testing.T) {
	f := setupTestFixture(t)

	// Only the hard-timeout threshold is persisted, and it has passed.
	now := f.clock.Now().Unix()
	require.NoError(t, f.store.Set(context.Background(), storage.KeyTimeoutAt, strconv.FormatInt(now-1, 10)))

	f.manager.StartSessionCheck(context.Background())

	require.Eventually(t, func() bool {
		return f.manager.LogoutCount() == 1
	}, time.Second, 5*time.Millisecond)
	require.Equal(t, 1, f.prompter.DismissCalls())
	require.Equal(t, session.SeverityWarning, f.navigator.LastMessage().Severity)
}

func TestStartSessionCheck_WarningExtendsSession(t *testing.T) {
	f := setupTestFixture(t)
	f.prompter.Action = session.ActionRefresh
	f.login(t, 60*time.Second, time.Hour)

	now := f.clock.Now().Unix()
	extended := forgeCredential(t, now, now+3600, now+7200)
	f.api.Token = extended

	f.manager.StartSessionCheck(context.Background())

	require.Eventually(t, func() bool {
		return f.creds.Credential() == extended
	}, time.Second, 5*time.Millisecond)
	require.Zero(t, f.manager.LogoutCount())
}

func TestStartSessionCheck_WarningChoosesLogout(t *testing.T) {
	f := setupTestFixture(t)
	f.prompter.Action = session.ActionLogout
	f.login(t, 60*time.Second, time.Hour)

	f.manager.StartSessionCheck(context.Background())

	require.Eventually(t, func() bool {
		return f.manager.LogoutCount() == 1
	}, time.Second, 5*time.Millisecond)
	require.Equal(t, session.SeverityInfo, f.navigator.LastMessage().Severity)
}

func TestStopSessionCheck_Idempotent(t *testing.T) {
	f := setupTestFixture(t)

	f.manager.StopSessionCheck()
	f.manager.StartSessionCheck(context.Background())
	f.manager.StopSessionCheck()
	f.manager.StopSessionCheck()
}

func TestResetSession_FailureLeavesPollingStopped(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t, time.Hour, 2*time.Hour)

	f.api.RefreshFunc = func(context.Context, string) (string, error) {
		return "", session.NoTokenErr
	}

	err := f.manager.ResetSession(context.Background())
	require.ErrorIs(t, err, session.NoTokenErr)

	// Polling must not have been restarted: a passed threshold goes
	// unobserved.
	now := f.clock.Now().Unix()
	require.NoError(t, f.store.Set(context.Background(), storage.KeyTimeoutAt, strconv.FormatInt(now-1, 10)))
	time.Sleep(50 * time.Millisecond)
	require.Zero(t, f.manager.LogoutCount())
}

func TestResetSession_RestartsPolling(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t, time.Hour, 2*time.Hour)

	now := f.clock.Now().Unix()
	f.api.Token = forgeCredential(t, now, now+3600, now+7200)

	require.NoError(t, f.manager.ResetSession(context.Background()))

	// Polls are live again against the new thresholds; push the warning
	// threshold into the past and the prompt fires.
	require.NoError(t, f.store.Set(context.Background(), storage.KeyWarningAt, strconv.FormatInt(now-1, 10)))
	require.Eventually(t, func() bool {
		return f.prompter.PromptCalls() == 1
	}, time.Second, 5*time.Millisecond)
}

func TestIsSessionActive_TruthTable(t *testing.T) {
	f := setupTestFixture(t)
	require.False(t, f.manager.IsSessionActive())

	f.login(t, 10*time.Minute, time.Hour)
	require.True(t, f.manager.IsSessionActive())

	f.clock.Advance(10 * time.Minute)
	require.False(t, f.manager.IsSessionActive())
}

func TestCanRefresh_InvertedTruthTable(t *testing.T) {
	f := setupTestFixture(t)
	require.False(t, f.manager.CanRefresh())

	f.login(t, 10*time.Minute, time.Hour)
	// Refresh expiry still ahead: reports false.
	require.False(t, f.manager.CanRefresh())

	// Refresh expiry passed: reports true. The inversion is load-bearing
	// for the transport guard.
	f.clock.Advance(2 * time.Hour)
	require.True(t, f.manager.CanRefresh())
}
