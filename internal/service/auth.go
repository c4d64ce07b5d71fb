package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/jask/scandraw/internal/secrets"
)

// AuthClient is the part of the API client that deals with accounts.
type AuthClient interface {
	Login(ctx context.Context, username, password string) (string, error)
	Register(ctx context.Context, email, password string) error
	SetToken(token string)
}

// TokenStore persists the access token across runs.
type TokenStore interface {
	SaveToken(email, token string) error
	LoadToken() (secrets.Token, error)
	DeleteToken() error
}

// AuthService owns the login state. A stored token is the only thing that
// lets the workspace open.
type AuthService struct {
	Client AuthClient
	Tokens TokenStore
	Logger *slog.Logger

	mu    sync.Mutex
	email string
	token string
}

func (s *AuthService) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// Restore applies a previously stored token to the client.
func (s *AuthService) Restore() (email string, ok bool) {
	tok, err := s.Tokens.LoadToken()
	if err != nil {
		if !errors.Is(err, secrets.ErrNoToken) {
			s.logger().Warn("auth: stored token unreadable", "error", err)
		}
		return "", false
	}
	s.set(tok.Email, tok.Value)
	return tok.Email, true
}

// Login exchanges credentials for a token and stores it. The returned error
// is one of the api auth sentinels; api.ErrorMessage turns it into copy.
func (s *AuthService) Login(ctx context.Context, email, password string) error {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return fmt.Errorf("auth: email and password required")
	}
	token, err := s.Client.Login(ctx, email, password)
	if err != nil {
		return err
	}
	if err := s.Tokens.SaveToken(email, token); err != nil {
		// still logged in for this run
		s.logger().Error("auth: persist token", "error", err)
	}
	s.set(email, token)
	s.logger().Info("auth: logged in", "email", email)
	return nil
}

// Register creates an account. New accounts wait for approval, so this does
// not log in.
func (s *AuthService) Register(ctx context.Context, email, password string) error {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return fmt.Errorf("auth: email and password required")
	}
	return s.Client.Register(ctx, email, password)
}

// Logout removes the stored token, then forgets it in memory. If the stored
// token cannot be removed the session stays signed in.
func (s *AuthService) Logout() error {
	if err := s.Tokens.DeleteToken(); err != nil {
		return fmt.Errorf("auth: delete token: %w", err)
	}
	s.set("", "")
	return nil
}

func (s *AuthService) LoggedIn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token != ""
}

func (s *AuthService) Email() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.email
}

func (s *AuthService) set(email, token string) {
	s.mu.Lock()
	s.email, s.token = email, token
	s.mu.Unlock()
	s.Client.SetToken(token)
}
