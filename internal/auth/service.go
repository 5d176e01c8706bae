package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goliatone/cinebase/internal/catalog"
	"github.com/goliatone/cinebase/pkg/logging"
	"go.uber.org/zap"
)

// ErrInvalidCredentials is returned by Login for an unknown email or a wrong
// password alike.
var ErrInvalidCredentials = errors.New("invalid email or password")

// UserStore is the account persistence used by the service. Create goes
// through the cached users repository so that user lists are invalidated.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (catalog.User, error)
	Create(ctx context.Context, user catalog.User) (catalog.User, error)
}

// Session is the result of a successful login.
type Session struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresAt   time.Time    `json:"expires_at"`
	User        catalog.User `json:"user"`
}

// Service registers and logs in users.
type Service struct {
	users  UserStore
	hasher Hasher
	tokens *TokenIssuer
	admins map[string]struct{}
}

// NewService creates the service. Users registering with an email in
// adminEmails are given the admin role.
func NewService(users UserStore, hasher Hasher, tokens *TokenIssuer, adminEmails []string) *Service {
	admins := make(map[string]struct{}, len(adminEmails))
	for _, email := range adminEmails {
		if email = catalog.NormalizeEmail(email); email != "" {
			admins[email] = struct{}{}
		}
	}
	return &Service{users: users, hasher: hasher, tokens: tokens, admins: admins}
}

// Tokens returns the issuer used to verify access tokens.
func (s *Service) Tokens() *TokenIssuer {
	return s.tokens
}

// Register creates an account. A duplicate email yields catalog.ErrConflict.
func (s *Service) Register(ctx context.Context, email, password string) (catalog.User, error) {
	if err := ValidatePassword(password); err != nil {
		return catalog.User{}, catalog.NewValidationError(validationField("password", err))
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return catalog.User{}, err
	}

	email = catalog.NormalizeEmail(email)
	role := catalog.RoleUser
	if _, ok := s.admins[email]; ok {
		role = catalog.RoleAdmin
	}

	user, err := s.users.Create(ctx, catalog.User{Email: email, PasswordHash: hash, Role: role})
	if err != nil {
		return catalog.User{}, err
	}

	logging.L(ctx).Info("user registered",
		zap.String("user_id", user.ID),
		zap.String("role", string(user.Role)),
	)
	return user, nil
}

// Login checks the credentials and issues an access token.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			s.hasher.burn(password)
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, fmt.Errorf("login: %w", err)
	}

	if !s.hasher.Check(user.PasswordHash, password) {
		logging.L(ctx).Info("login rejected", zap.String("user_id", user.ID))
		return Session{}, ErrInvalidCredentials
	}

	token, expires, err := s.tokens.Issue(user)
	if err != nil {
		return Session{}, err
	}

	user.PasswordHash = ""
	return Session{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresAt:   expires,
		User:        user,
	}, nil
}
