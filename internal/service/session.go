package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/templui/fitsync/internal/model"
	"github.com/templui/fitsync/internal/repository"
	"github.com/templui/fitsync/internal/syncer"
)

// Syncer is the part of the sync engine the session lifecycle drives.
type Syncer interface {
	Push(ctx context.Context, s *model.Session, force bool) (syncer.PushResult, error)
	Pull(ctx context.Context, s *model.Session) error
}

// Views is refreshed after sign-in and reset on sign-out.
type Views interface {
	Refresh(ctx context.Context, s *model.Session) (*model.Snapshot, error)
	Reset()
}

// SessionService owns sign-in and sign-out. A session only exists once the
// owner's data has been pulled.
type SessionService struct {
	tokens    repository.TokenRepository
	sync      Syncer
	views     Views
	jwtSecret string
	location  *time.Location
	now       func() time.Time
}

func NewSessionService(
	tokens repository.TokenRepository,
	sync Syncer,
	views Views,
	jwtSecret string,
	location *time.Location,
) *SessionService {
	return &SessionService{
		tokens:    tokens,
		sync:      sync,
		views:     views,
		jwtSecret: jwtSecret,
		location:  location,
		now:       time.Now,
	}
}

// SignIn accepts the access token issued by the identity provider, pulls
// the owner's data and only then stores the token. A failed pull returns
// ErrLoginFailed and leaves the stored token, and with it any previous
// session, untouched.
func (s *SessionService) SignIn(ctx context.Context, rawToken string) (*model.Session, error) {
	claims, err := s.parseToken(rawToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoginFailed, err)
	}

	token := &model.AccessToken{
		UserID: claims.userID,
		Token:  strings.TrimSpace(rawToken),
	}
	if !claims.expiresAt.IsZero() {
		exp := claims.expiresAt.UTC()
		token.ExpiresAt = &exp
	}

	session := s.sessionFor(token)
	if err := s.sync.Pull(ctx, session); err != nil {
		slog.Warn("sign-in pull failed", "user_id", token.UserID, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrLoginFailed, err)
	}

	if err := s.tokens.Save(ctx, token); err != nil {
		return nil, fmt.Errorf("%w: save token: %w", ErrLoginFailed, err)
	}

	if s.views != nil {
		if _, err := s.views.Refresh(ctx, session); err != nil {
			slog.Warn("failed to build initial view", "user_id", token.UserID, "error", err)
		}
	}

	slog.Info("signed in", "user_id", token.UserID)
	return session, nil
}

// SignOut pushes pending changes on a best-effort basis, then forgets the
// token. A failed push never blocks sign-out; unpushed changes stay in the
// local change log.
func (s *SessionService) SignOut(ctx context.Context, session *model.Session) error {
	if err := requireSession(session); err != nil {
		return err
	}

	result, err := s.sync.Push(ctx, session, true)
	switch {
	case err != nil:
		slog.Warn("push before sign-out failed", "user_id", session.UserID, "error", err)
	case result.Skipped:
		slog.Info("push before sign-out skipped", "user_id", session.UserID, "reason", result.Reason)
	}

	if err := s.tokens.Revoke(ctx, session.UserID); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	if s.views != nil {
		s.views.Reset()
	}

	slog.Info("signed out", "user_id", session.UserID)
	return nil
}

// Restore rebuilds the session from the stored token, for process restarts.
func (s *SessionService) Restore(ctx context.Context) (*model.Session, error) {
	token, err := s.tokens.Active(ctx)
	if errors.Is(err, repository.ErrTokenNotFound) {
		return nil, ErrUnauthenticated
	}
	if err != nil {
		return nil, err
	}

	if token.ExpiresAt != nil && s.now().After(*token.ExpiresAt) {
		if err := s.tokens.Revoke(ctx, token.UserID); err != nil {
			slog.Warn("failed to revoke expired token", "user_id", token.UserID, "error", err)
		}
		return nil, ErrUnauthenticated
	}

	return s.sessionFor(token), nil
}

func (s *SessionService) sessionFor(token *model.AccessToken) *model.Session {
	return &model.Session{
		UserID:    token.UserID,
		Token:     token.Token,
		ExpiresAt: token.ExpiresAt,
		Location:  s.location,
	}
}

type tokenClaims struct {
	userID    string
	expiresAt time.Time
}

// parseToken reads the owner from the token. The signature is verified
// when a secret is configured; otherwise the remote is trusted to reject
// forged tokens.
func (s *SessionService) parseToken(raw string) (*tokenClaims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrInvalidToken
	}

	claims := jwt.MapClaims{}
	if s.jwtSecret != "" {
		_, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(s.jwtSecret), nil
		}, jwt.WithTimeFunc(s.now))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
		}
	} else {
		if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
		}
	}

	out := &tokenClaims{}
	out.userID, _ = claims["user_id"].(string)
	if out.userID == "" {
		out.userID, _ = claims.GetSubject()
	}
	if out.userID == "" {
		return nil, fmt.Errorf("%w: no user in token", ErrInvalidToken)
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if exp != nil {
		out.expiresAt = exp.Time
		if s.now().After(exp.Time) {
			return nil, fmt.Errorf("%w: expired", ErrInvalidToken)
		}
	}
	return out, nil
}
