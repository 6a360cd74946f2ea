package apifakes

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/cpope-co/portal-session/session"
)

var _ session.API = (*FakeAPI)(nil)

// FakeAPI is an in-memory stand-in for the auth endpoints. Each call either
// runs its configured func or returns the canned token, and every call is
// counted so tests can assert exactly how often an endpoint was hit.
type FakeAPI struct {
	LoginFunc   func(ctx context.Context, identifier, secret string) (string, error)
	RefreshFunc func(ctx context.Context, credential string) (string, error)
	VerifyFunc  func(ctx context.Context, oneTimeToken string) (string, error)
	LogoutFunc  func(ctx context.Context, credential string) error

	Token string // returned when no func is configured

	lock         sync.Mutex
	loginCalls   int
	refreshCalls int
	verifyCalls  int
	logoutCalls  int
}

func NewFakeAPI() *FakeAPI {
	return &FakeAPI{}
}

func (f *FakeAPI) Login(ctx context.Context, identifier, secret string) (string, error) {
	f.count(&f.loginCalls)
	if f.LoginFunc != nil {
		return f.LoginFunc(ctx, identifier, secret)
	}
	return f.canned()
}

func (f *FakeAPI) Refresh(ctx context.Context, credential string) (string, error) {
	f.count(&f.refreshCalls)
	if f.RefreshFunc != nil {
		return f.RefreshFunc(ctx, credential)
	}
	return f.canned()
}

func (f *FakeAPI) Verify(ctx context.Context, oneTimeToken string) (string, error) {
	f.count(&f.verifyCalls)
	if f.VerifyFunc != nil {
		return f.VerifyFunc(ctx, oneTimeToken)
	}
	return f.canned()
}

func (f *FakeAPI) Logout(ctx context.Context, credential string) error {
	f.count(&f.logoutCalls)
	if f.LogoutFunc != nil {
		return f.LogoutFunc(ctx, credential)
	}
	return nil
}

func (f *FakeAPI) canned() (string, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.Token == "" {
		return "", errors.New("fake api: no token configured")
	}
	return f.Token, nil
}

func (f *FakeAPI) count(counter *int) {
	f.lock.Lock()
	defer f.lock.Unlock()
	*counter++
}

func (f *FakeAPI) LoginCalls() int   { f.lock.Lock(); defer f.lock.Unlock(); return f.loginCalls }
func (f *FakeAPI) RefreshCalls() int { f.lock.Lock(); defer f.lock.Unlock(); return f.refreshCalls }
func (f *FakeAPI) VerifyCalls() int  { f.lock.Lock(); defer f.lock.Unlock(); return f.verifyCalls }
func (f *FakeAPI) LogoutCalls() int  { f.lock.Lock(); defer f.lock.Unlock(); return f.logoutCalls }
