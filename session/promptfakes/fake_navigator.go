package promptfakes

import (
	"sync"

	"github.com/cpope-co/portal-session/session"
)

var _ session.Navigator = (*FakeNavigator)(nil)

// FakeNavigator records every login-screen navigation and its message.
type FakeNavigator struct {
	lock     sync.Mutex
	messages []session.Message
}

func NewFakeNavigator() *FakeNavigator {
	return &FakeNavigator{}
}

func (f *FakeNavigator) ToLogin(message session.Message) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.messages = append(f.messages, message)
}

func (f *FakeNavigator) Calls() int {
	f.lock.Lock()
	defer f.lock.Unlock()
	return len(f.messages)
}

func (f *FakeNavigator) LastMessage() session.Message {
	f.lock.Lock()
	defer f.lock.Unlock()
	if len(f.messages) == 0 {
		return session.Message{}
	}
	return f.messages[len(f.messages)-1]
}
