package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"masterannonce/internal/models"
	"masterannonce/internal/session"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUsernameTaken      = errors.New("username is already taken")
	ErrEmailTaken         = errors.New("email is already in use")
)

// Users is the account storage the service needs.
type Users interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, username, email, password string, role models.Role) (*models.User, error)
	CheckPassword(user *models.User, password string) bool
}

// LoginObserver counts login outcomes.
type LoginObserver interface {
	ObserveLogin(outcome string)
}

type nopObserver struct{}

func (nopObserver) ObserveLogin(string) {}

// Service implements the account endpoints.
type Service struct {
	users    Users
	tokens   *Tokens
	observer LoginObserver
}

// NewService creates an auth service.
func NewService(users Users, tokens *Tokens) *Service {
	return &Service{users: users, tokens: tokens, observer: nopObserver{}}
}

// SetObserver installs a login outcome counter.
func (s *Service) SetObserver(o LoginObserver) {
	if o != nil {
		s.observer = o
	}
}

// Tokens exposes the token service for the authentication middleware.
func (s *Service) Tokens() *Tokens {
	return s.tokens
}

// Register creates a ROLE_USER account. Input is assumed validated.
func (s *Service) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	taken, err := s.users.ExistsByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrUsernameTaken
	}
	taken, err = s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrEmailTaken
	}

	u, err := s.users.Create(ctx, username, email, password, models.RoleUser)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	slog.Info("user registered", "user_id", u.ID, "username", u.Username)
	return u, nil
}

// Login checks credentials and issues a token pair.
func (s *Service) Login(ctx context.Context, username, password string) (*TokenPair, error) {
	u, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		s.observer.ObserveLogin("error")
		return nil, err
	}
	if u == nil || !s.users.CheckPassword(u, password) {
		s.observer.ObserveLogin("rejected")
		slog.Warn("login rejected", "username", username)
		return nil, ErrInvalidCredentials
	}

	pair, err := s.tokens.Issue(ctx, u)
	if err != nil {
		s.observer.ObserveLogin("error")
		return nil, err
	}
	s.observer.ObserveLogin("success")
	slog.Info("user logged in", "user_id", u.ID)
	return pair, nil
}

// Refresh exchanges a live refresh token for a new pair. The presented
// refresh credential is consumed; replaying it fails with ErrInvalidToken.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	p, err := s.tokens.Consume(ctx, refreshToken, session.KindRefresh)
	if err != nil {
		return nil, err
	}

	// Reload so role changes and deleted accounts take effect.
	u, err := s.users.FindByUsername(ctx, p.Username)
	if err != nil {
		return nil, err
	}
	if u == nil || u.ID != p.UserID {
		return nil, fmt.Errorf("%w: account no longer exists", ErrInvalidToken)
	}
	return s.tokens.Issue(ctx, u)
}

// Logout revokes the caller's access credential and, when given, a refresh
// token belonging to the same user.
func (s *Service) Logout(ctx context.Context, p *Principal, refreshToken string) error {
	if err := s.tokens.Revoke(ctx, p.TokenID); err != nil {
		return err
	}
	if refreshToken == "" {
		return nil
	}
	claims, err := s.tokens.Parse(refreshToken, session.KindRefresh)
	if err != nil {
		// An unusable refresh token has nothing left to revoke.
		return nil
	}
	if claims.UserID != p.UserID.String() {
		return nil
	}
	return s.tokens.Revoke(ctx, claims.ID)
}
