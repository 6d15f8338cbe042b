package service

import (
	"context"
	"errors"
	"strings"

	"github.com/spec-kit/staff-service/internal/auth"
	"github.com/spec-kit/staff-service/internal/domain"
	"github.com/spec-kit/staff-service/internal/repository"
	apperrors "github.com/spec-kit/staff-service/pkg/util/errorutil"
)

// AuthService coordinates the Discord OAuth login and sessions.
type AuthService struct {
	accounts   repository.AccountRepository
	sessions   auth.SessionStore
	identity   IdentityProvider
	classifier *auth.Classifier
	states     *auth.StateManager
}

// LoginResult is returned by Callback.
type LoginResult struct {
	Account  *domain.Account
	Token    string
	Redirect string
}

// NewAuthService builds the service.
func NewAuthService(accounts repository.AccountRepository, sessions auth.SessionStore, identity IdentityProvider, classifier *auth.Classifier, states *auth.StateManager) *AuthService {
	return &AuthService{
		accounts:   accounts,
		sessions:   sessions,
		identity:   identity,
		classifier: classifier,
		states:     states,
	}
}

// LoginURL returns the provider consent URL with a signed state carrying redirect.
func (s *AuthService) LoginURL(redirect string) (string, error) {
	state, err := s.states.Issue(redirect)
	if err != nil {
		return "", apperrors.NewInternalError(err)
	}
	return s.identity.AuthURL(state), nil
}

// Callback exchanges the code, refreshes the account's authority from its current roles
// and opens a session.
func (s *AuthService) Callback(ctx context.Context, code, state string) (*LoginResult, error) {
	if strings.TrimSpace(code) == "" {
		return nil, apperrors.NewValidationError("code is required", nil)
	}
	claims, err := s.states.Verify(state)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid oauth state", nil)
	}

	identity, err := s.identity.ExchangeCode(ctx, code)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidGrant) {
			return nil, apperrors.NewValidationError("invalid authorization code", nil)
		}
		return nil, apperrors.NewExternalServiceError("discord", err)
	}

	authority := s.classifier.Classify(identity.Roles)
	account, err := s.accounts.UpsertLogin(ctx, *identity, authority)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	token, err := s.sessions.Create(ctx, account.DiscordID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return &LoginResult{Account: account, Token: token, Redirect: claims.Redirect}, nil
}

// Me returns the caller's account.
func (s *AuthService) Me(ctx context.Context, accountID string) (*domain.Account, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, mapRepoErr(err, "account")
	}
	return account, nil
}

// Logout deletes the session. Unknown tokens are ignored.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.sessions.Delete(ctx, token); err != nil && !errors.Is(err, auth.ErrSessionNotFound) {
		return apperrors.MapError(err)
	}
	return nil
}
