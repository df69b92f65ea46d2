package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/desertthunder/discx/internal/models"
	"github.com/desertthunder/discx/internal/shared"
	"github.com/golang-jwt/jwt/v5"
)

const (
	sessionCookie = "discx_session"
	tokenIssuer   = "discx"
)

// ErrInvalidSessionToken is returned for cookies that fail verification.
var ErrInvalidSessionToken = errors.New("invalid session token")

// SessionStore persists browser sessions. repositories.SessionRepository
// satisfies it.
type SessionStore interface {
	Create(ctx context.Context, s *models.WebSession) error
	Get(ctx context.Context, id string) (*models.WebSession, error)
	Save(ctx context.Context, s *models.WebSession) error
	Delete(ctx context.Context, id string) error
}

type sessionKey struct{}

// sessionClaims carries the session id in the signed cookie.
type sessionClaims struct {
	jwt.RegisteredClaims
}

// signSessionToken returns an HS256 token naming sessionID that expires at
// expires.
func signSessionToken(sessionID string, secret []byte, issued, expires time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sessionID,
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	})
	return token.SignedString(secret)
}

// parseSessionToken verifies tokenString and returns the session id.
func parseSessionToken(tokenString string, secret []byte, now func() time.Time) (string, error) {
	claims := &sessionClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidSessionToken, err)
	}
	if !token.Valid || claims.ID == "" {
		return "", ErrInvalidSessionToken
	}
	return claims.ID, nil
}

// withSession loads the session named by the cookie, or starts a fresh
// one when the cookie is missing, forged, expired or unknown.
func (a *App) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := a.loadSession(r)
		if err != nil {
			if !errors.Is(err, http.ErrNoCookie) {
				a.logger.Debug("starting new session", "reason", err)
			}
			sess, err = a.startSession(r.Context(), w)
			if err != nil {
				a.logger.Error("failed to create session", "error", err)
				http.Error(w, "Internal server error", http.StatusInternalServerError)
				return
			}
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, sess)))
	})
}

func (a *App) loadSession(r *http.Request) (*models.WebSession, error) {
	cookie, err := r.Cookie(sessionCookie)
	if err != nil {
		return nil, err
	}

	id, err := parseSessionToken(cookie.Value, a.secret, a.now)
	if err != nil {
		return nil, err
	}

	sess, err := a.sessions.Get(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if sess.Expired(a.now()) {
		if err := a.sessions.Delete(r.Context(), sess.ID); err != nil && !errors.Is(err, shared.ErrNotFound) {
			a.logger.Warn("failed to delete expired session", "error", err)
		}
		return nil, fmt.Errorf("%w: session expired", shared.ErrNotFound)
	}
	return sess, nil
}

func (a *App) startSession(ctx context.Context, w http.ResponseWriter) (*models.WebSession, error) {
	now := a.now()
	sess := &models.WebSession{
		ID:        shared.GenerateID(),
		CreatedAt: now.UTC(),
		ExpiresAt: now.Add(a.ttl).UTC(),
	}
	if err := a.sessions.Create(ctx, sess); err != nil {
		return nil, err
	}

	token, err := signSessionToken(sess.ID, a.secret, now, sess.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("signing session token: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return sess, nil
}

// session returns the request's session. withSession guarantees one.
func session(r *http.Request) *models.WebSession {
	return r.Context().Value(sessionKey{}).(*models.WebSession)
}

// save writes the session back; failures are logged since the response is
// already decided.
func (a *App) save(r *http.Request, sess *models.WebSession) {
	if err := a.sessions.Save(r.Context(), sess); err != nil {
		a.logger.Error("failed to save session", "error", err)
	}
}
