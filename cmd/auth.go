package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/discx/internal/models"
	"github.com/desertthunder/discx/internal/server"
	"github.com/desertthunder/discx/internal/services"
	"github.com/desertthunder/discx/internal/shared"
	"github.com/urfave/cli/v3"
)

const (
	defaultLoginTimeout = 5 * time.Minute
	// loopbackCallback is used when no callback_url is configured; the port is picked on start.
	loopbackCallback = "http://127.0.0.1:0/callback"
)

// tokenless hides the stored token pair so login always runs the handshake.
type tokenless struct {
	services.CredentialStore
}

func (s tokenless) Load() (models.Credentials, error) {
	creds, err := s.CredentialStore.Load()
	return creds.WithoutToken(), err
}

// AuthLogin runs the OAuth handshake from the terminal.
//
// By default a loopback server receives the Discogs redirect. With --manual
// Discogs shows a verification code that is typed back in.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	prompter := newPrompter(r.input, r.output)

	creds, err := r.store.Load()
	if err != nil {
		return err
	}
	creds = creds.WithoutToken()

	if !creds.HasConsumer() {
		r.writePlain("No consumer credentials found in %s.\n", r.store.Path())
		r.writePlain("Create an application at https://www.discogs.com/settings/developers\n\n")
		if creds.ConsumerKey, err = prompter.Prompt("Consumer key: "); err != nil {
			return fmt.Errorf("reading consumer key: %w", err)
		}
		if creds.ConsumerSecret, err = prompter.Secret("Consumer secret: "); err != nil {
			return fmt.Errorf("reading consumer secret: %w", err)
		}
	}

	mgr, err := r.newSessionManager(creds, tokenless{r.store})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, cmd.Duration("timeout"))
	defer cancel()

	var src services.VerifierSource
	if cmd.Bool("manual") {
		src = services.PromptVerifier{Prompter: prompter}
	} else {
		callbackURL := r.config.Discogs.CallbackURL
		if callbackURL == "" {
			callbackURL = loopbackCallback
		}
		srv, err := server.NewCallbackServer(callbackURL, r.logger)
		if err != nil {
			return err
		}
		if err := srv.Start(); err != nil {
			return fmt.Errorf("%w (use --manual to type the code instead)", err)
		}
		defer srv.Shutdown(context.Background())
		src = srv
	}

	openURL := r.openURL
	if cmd.Bool("no-browser") {
		openURL = nil
	}

	handle, err := mgr.ConsoleFlow(ctx, r.output, src, openURL)
	if err != nil {
		return err
	}

	r.writePlain("✓ Authenticated as %s\n", handle.Identity().Username)
	if r.persist && !r.store.IsReadOnly() {
		r.writePlain("✓ Tokens saved to %s\n", r.store.Path())
	} else {
		r.writePlain("Tokens were not saved (read-only credentials)\n")
	}
	return nil
}

// AuthStatus reports what is stored and whether the token still works.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	creds, err := r.store.Load()
	if err != nil {
		return err
	}

	r.writePlainHeader("Discogs Authorization")
	r.writePlain("Credentials file: %s\n", r.store.Path())
	if !creds.HasConsumer() {
		r.writePlain("Consumer key: ✗ not set\n")
		return nil
	}
	r.writePlain("Consumer key: %s\n", shared.Redact(creds.ConsumerKey))

	if !creds.HasToken() {
		r.writePlain("Token: ✗ not authorized\n")
		return nil
	}
	r.writePlain("Token: %s\n", shared.Redact(creds.OAuthToken))

	accessor, err := r.collection(ctx)
	if err != nil {
		r.logger.Debug("token check failed", "error", err)
		r.writePlain("Status: ✗ %v\n", err)
		return nil
	}
	return r.writePlain("Status: ✓ Authenticated as %s\n", accessor.Username())
}

// AuthLogout clears the stored token pair, keeping the consumer pair.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	if r.store.IsReadOnly() {
		return fmt.Errorf("%w: credentials file is read-only", shared.ErrCredentialsUnavailable)
	}
	if err := r.store.Clear(); err != nil {
		return err
	}
	return r.writePlain("✓ Token removed from %s\n", r.store.Path())
}
