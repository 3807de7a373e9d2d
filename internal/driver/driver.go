// Package driver abstracts the automated browser session that holds the
// DeepSeek chat page. The relay never touches the page directly; it issues
// driver calls and reads rendered HTML snapshots back.
package driver

import (
	"context"
	"errors"
)

// ErrUnavailable reports that no usable browser session exists. Callers
// translate it into a service-unavailable response, not a retry loop.
var ErrUnavailable = errors.New("browser session unavailable")

// ChatSettings selects the page toggles applied before a prompt is sent.
type ChatSettings struct {
	Deepthink bool `json:"deepthink"`
	Search    bool `json:"search"`
}

// Driver is one live browser session on the chat page.
type Driver interface {
	// IsOnPage reports whether the session is on the chat site at all.
	IsOnPage(ctx context.Context) (bool, error)

	// IsLoggedIn reports whether the session has an authenticated account.
	IsLoggedIn(ctx context.Context) (bool, error)

	// ConfigureChat applies the deepthink/search toggles for the next prompt.
	ConfigureChat(ctx context.Context, settings ChatSettings) error

	// SubmitPrompt pastes the prompt and sends it. With asFile set the
	// prompt is attached as a text file instead of typed into the box.
	SubmitPrompt(ctx context.Context, text string, asFile bool) error

	// GenerationInProgress reports whether the page is still streaming.
	GenerationInProgress(ctx context.Context) (bool, error)

	// CurrentSnapshot returns the rendered HTML of the in-progress reply.
	CurrentSnapshot(ctx context.Context) (string, error)

	// FinalSnapshot returns the rendered HTML of the completed reply.
	FinalSnapshot(ctx context.Context) (string, error)

	// ResetSession returns the page to a fresh chat.
	ResetSession(ctx context.Context) error
}
