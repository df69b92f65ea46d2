package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/desertthunder/discx/internal/repositories"
	"github.com/desertthunder/discx/internal/web"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

const (
	sessionSweepInterval = 10 * time.Minute
	shutdownTimeout      = 10 * time.Second
)

// Serve runs the web interface until interrupted. The label template is
// reloaded when its file changes and expired browser sessions are swept
// periodically.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	cfg := *r.config
	if host := cmd.String("host"); host != "" {
		cfg.Server.Host = host
	}
	if port := cmd.Int("port"); port > 0 {
		cfg.Server.Port = port
	}

	db, err := r.openDatabase(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := shutdownContext(ctx, r.logger)
	defer cancel()

	sessions := repositories.NewSessionRepository(db)
	templates := r.templates("")

	app, err := web.New(web.Options{
		Config:      &cfg,
		Sessions:    sessions,
		History:     repositories.NewExportRepository(db),
		Upstream:    r.upstream,
		Credentials: r.store,
		Persist:     r.persist,
		Templates:   templates,
		Archiver:    r.archiver(ctx),
		Logger:      r.logger,
	})
	if err != nil {
		return err
	}

	srv := app.Server()
	listener, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", srv.Addr, err)
	}

	addr := "http://" + listener.Addr().String()
	r.logger.Info("serving web interface", "addr", addr)
	r.writePlain("discx is running at %s (Ctrl+C to stop)\n", addr)
	if cmd.Bool("open") {
		if err := r.openURL(addr); err != nil {
			r.logger.Warn("could not open browser", "error", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("web server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := templates.Watch(gctx); err != nil {
			r.logger.Warn("template reload disabled", "error", err)
		}
		return nil
	})
	g.Go(func() error {
		r.sweepSessions(gctx, sessions)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down web server: %w", err)
		}
		r.logger.Info("web server stopped")
		return nil
	})

	return g.Wait()
}

func (r *Runner) sweepSessions(ctx context.Context, sessions *repositories.SessionRepository) {
	ticker := time.NewTicker(sessionSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := sessions.DeleteExpired(ctx, now)
			if err != nil {
				r.logger.Warn("session sweep failed", "error", err)
				continue
			}
			if n > 0 {
				r.logger.Debug("expired sessions removed", "count", n)
			}
		}
	}
}
