package auth

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/staff-service/internal/domain"
	"github.com/spec-kit/staff-service/internal/repository"
	apperrors "github.com/spec-kit/staff-service/pkg/util/errorutil"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller.
type Principal struct {
	Account *domain.Account
	Token   string
	// LedTeam is set by RequireHeadAdmin when the caller leads a team.
	LedTeam *domain.Team
}

// ID returns the caller's Discord id.
func (p *Principal) ID() string {
	return p.Account.DiscordID
}

// Authority returns the caller's stored authority.
func (p *Principal) Authority() domain.Authority {
	return p.Account.Authority
}

// AuthMiddleware resolves the session cookie into a Principal.
type AuthMiddleware struct {
	cookieName string
	sessions   SessionStore
	accounts   repository.AccountRepository
	teams      repository.TeamRepository
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(cookieName string, sessions SessionStore, accounts repository.AccountRepository, teams repository.TeamRepository) *AuthMiddleware {
	return &AuthMiddleware{cookieName: cookieName, sessions: sessions, accounts: accounts, teams: teams}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	principal, err := m.resolve(c)
	if err != nil {
		return err
	}
	c.Locals(principalKey, principal)
	return c.Next()
}

// Optional attaches a principal when the request carries a valid session and lets
// anonymous requests through.
func (m *AuthMiddleware) Optional(c *fiber.Ctx) error {
	if principal, err := m.resolve(c); err == nil {
		c.Locals(principalKey, principal)
	}
	return c.Next()
}

func (m *AuthMiddleware) resolve(c *fiber.Ctx) (*Principal, error) {
	token := c.Cookies(m.cookieName)
	if token == "" {
		return nil, apperrors.NewUnauthorized("not authenticated")
	}

	accountID, err := m.sessions.Get(c.UserContext(), token)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, apperrors.NewUnauthorized("invalid session")
		}
		return nil, apperrors.MapError(err)
	}

	account, err := m.accounts.GetByID(c.UserContext(), accountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewUnauthorized("account not found")
		}
		return nil, apperrors.MapError(err)
	}
	return &Principal{Account: account, Token: token}, nil
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}

// MustPrincipal returns the principal or an authentication error.
func MustPrincipal(c *fiber.Ctx) (*Principal, error) {
	principal, ok := PrincipalFromContext(c)
	if !ok || principal.Account == nil {
		return nil, apperrors.NewUnauthorized("not authenticated")
	}
	return principal, nil
}
