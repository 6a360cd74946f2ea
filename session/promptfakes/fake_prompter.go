package promptfakes

import (
	"context"
	"sync"

	"github.com/cpope-co/portal-session/session"
)

var _ session.Prompter = (*FakePrompter)(nil)

// FakePrompter resolves every prompt with the configured action and records
// what it was asked.
type FakePrompter struct {
	Action session.PromptAction
	Err    error

	lock     sync.Mutex
	prompts  []session.PromptMode
	dismissals int
}

func NewFakePrompter(action session.PromptAction) *FakePrompter {
	return &FakePrompter{Action: action}
}

func (f *FakePrompter) Prompt(_ context.Context, mode session.PromptMode, _ string) (session.PromptAction, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.prompts = append(f.prompts, mode)
	return f.Action, f.Err
}

func (f *FakePrompter) Dismiss() {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.dismissals++
}

func (f *FakePrompter) PromptCalls() int {
	f.lock.Lock()
	defer f.lock.Unlock()
	return len(f.prompts)
}

func (f *FakePrompter) DismissCalls() int {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.dismissals
}
