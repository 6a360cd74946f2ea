package session

import "context"

// API is the contract for the server's auth endpoints. Every call returns
// the newly issued credential; transport, header conventions and retries are
// the implementation's concern, not the manager's.
type API interface {
	// Login exchanges an identifier/secret pair for a credential.
	Login(ctx context.Context, identifier, secret string) (string, error)
	// Refresh exchanges a still-refreshable credential for a new one.
	Refresh(ctx context.Context, credential string) (string, error)
	// Verify exchanges an email-link one-time token for a credential.
	Verify(ctx context.Context, oneTimeToken string) (string, error)
	// Logout invalidates the credential server-side.
	Logout(ctx context.Context, credential string) error
}

type PromptMode string

const (
	ModeRefresh PromptMode = "refresh"
	ModeInfo    PromptMode = "info"
)

type PromptAction string

const (
	ActionNone    PromptAction = ""
	ActionRefresh PromptAction = "refresh"
	ActionLogout  PromptAction = "logout"
)

// Prompter displays a modal and resolves with the action the user picked.
// The manager reacts to the resolution only for ModeRefresh prompts.
type Prompter interface {
	Prompt(ctx context.Context, mode PromptMode, message string) (PromptAction, error)
	Dismiss()
}

type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Message is the user-facing notification attached to a navigation.
type Message struct {
	Text     string
	Severity Severity
}

// Navigator sends the user to the login screen with a notification.
type Navigator interface {
	ToLogin(message Message)
}

// LogoutReason selects the message shown after logout.
type LogoutReason string

const (
	ReasonManual       LogoutReason = "manual"
	ReasonTimeout      LogoutReason = "timeout"
	ReasonTokenExpired LogoutReason = "token-expired"
)

func messageForReason(reason LogoutReason) Message {
	switch reason {
	case ReasonTimeout:
		return Message{Text: "Your session timed out. Please log in again.", Severity: SeverityWarning}
	case ReasonTokenExpired:
		return Message{Text: "Your session is no longer valid. Please log in again.", Severity: SeverityError}
	default:
		return Message{Text: "You have been logged out.", Severity: SeverityInfo}
	}
}

// ExpiryState classifies the current time against the credential's expiry.
type ExpiryState string

const (
	StateValid    ExpiryState = "valid"
	StateExpiring ExpiryState = "expiring"
	StateExpired  ExpiryState = "expired"
)
