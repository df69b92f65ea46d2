package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/desertthunder/discx/internal/discogs"
	"github.com/desertthunder/discx/internal/shared"
)

// VerifierSource delivers the callback half of the handshake to
// [SessionManager.ConsoleFlow].
type VerifierSource interface {
	// CallbackURL is sent with the request token.
	CallbackURL() string
	// Await blocks until the user has authorized and returns the token and
	// verifier the provider handed back.
	Await(ctx context.Context, requestToken string) (token, verifier string, err error)
}

// Prompter reads one line of input after showing a label.
type Prompter interface {
	Prompt(label string) (string, error)
}

// PromptVerifier is the out-of-band [VerifierSource]: Discogs shows the
// verifier on its page and the user types it in.
type PromptVerifier struct {
	Prompter Prompter
}

func (p PromptVerifier) CallbackURL() string { return discogs.OutOfBand }

func (p PromptVerifier) Await(_ context.Context, requestToken string) (string, string, error) {
	verifier, err := p.Prompter.Prompt("Verification code: ")
	if err != nil {
		return "", "", fmt.Errorf("reading verification code: %w", err)
	}
	verifier = strings.TrimSpace(verifier)
	if verifier == "" {
		return "", "", fmt.Errorf("%w: no verification code entered", shared.ErrAuthState)
	}
	return requestToken, verifier, nil
}

// ConsoleFlow authenticates from a terminal. A stored token is used when
// present; otherwise the authorization URL is printed (and handed to
// openURL when set) and src supplies the verifier.
func (m *SessionManager) ConsoleFlow(ctx context.Context, out io.Writer, src VerifierSource, openURL func(string) error) (*AuthenticatedHandle, error) {
	handle, err := m.Authenticate(ctx)
	if err == nil {
		return handle, nil
	}
	if !errors.Is(err, shared.ErrAuthorizationRequired) {
		return nil, err
	}

	pending, authURL, err := m.Begin(ctx, src.CallbackURL())
	if err != nil {
		return nil, err
	}

	fmt.Fprintf(out, "Please browse to the following URL to authorize discx:\n\n  %s\n\n", authURL)
	if openURL != nil {
		if err := openURL(authURL); err != nil {
			m.logger.Debug("could not open browser", "error", err)
		}
	}

	token, verifier, err := src.Await(ctx, pending.RequestToken)
	if err != nil {
		m.state = StateUnauthenticated
		return nil, err
	}

	return m.Complete(ctx, pending, token, verifier)
}
