package auth

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/staff-service/internal/domain"
	"github.com/spec-kit/staff-service/internal/repository"
	apperrors "github.com/spec-kit/staff-service/pkg/util/errorutil"
)

// RequireAuthenticated ensures a principal is present.
func RequireAuthenticated() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, err := MustPrincipal(c); err != nil {
			return err
		}
		return c.Next()
	}
}

// RequireAuthority ensures the caller's authority is at least min.
func RequireAuthority(min domain.Authority) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, err := MustPrincipal(c)
		if err != nil {
			return err
		}
		if !principal.Authority().AtLeast(min) {
			return apperrors.NewForbidden("insufficient authority")
		}
		return c.Next()
	}
}

// RequireSuperAdmin ensures the caller is exactly super_admin.
func RequireSuperAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, err := MustPrincipal(c)
		if err != nil {
			return err
		}
		if principal.Authority() != domain.AuthoritySuperAdmin {
			return apperrors.NewForbidden("super admin required")
		}
		return c.Next()
	}
}

// RequireHeadAdmin admits callers who lead a team, and super admins.
func (m *AuthMiddleware) RequireHeadAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, err := MustPrincipal(c)
		if err != nil {
			return err
		}
		team, err := m.teams.GetByHeadAdmin(c.UserContext(), principal.ID())
		switch {
		case err == nil:
			principal.LedTeam = team
		case errors.Is(err, repository.ErrNotFound):
			if principal.Authority() != domain.AuthoritySuperAdmin {
				return apperrors.NewForbidden("head admin required")
			}
		default:
			return apperrors.MapError(err)
		}
		return c.Next()
	}
}
