package handlers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/staff-service/internal/api/dto"
	"github.com/spec-kit/staff-service/internal/auth"
	"github.com/spec-kit/staff-service/internal/service"
)

// CookieConfig controls the session cookie.
type CookieConfig struct {
	Name        string
	Secure      bool
	TTL         time.Duration
	FrontendURL string
}

// AuthHandler serves the Discord login flow.
type AuthHandler struct {
	service *service.AuthService
	cookie  CookieConfig
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService, cookie CookieConfig) *AuthHandler {
	return &AuthHandler{service: authService, cookie: cookie}
}

// Login GET /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	url, err := h.service.LoginURL(safeRedirect(c.Query("redirect")))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.LoginURLResponse{URL: url}})
}

// Callback GET /auth/callback.
func (h *AuthHandler) Callback(c *fiber.Ctx) error {
	result, err := h.service.Callback(c.UserContext(), c.Query("code"), c.Query("state"))
	if err != nil {
		return err
	}
	c.Cookie(&fiber.Cookie{
		Name:     h.cookie.Name,
		Value:    result.Token,
		Path:     "/",
		Expires:  time.Now().Add(h.cookie.TTL),
		Secure:   h.cookie.Secure,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return c.Redirect(strings.TrimRight(h.cookie.FrontendURL, "/")+safeRedirect(result.Redirect), fiber.StatusFound)
}

// Me GET /auth/me.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	principal, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	account, err := h.service.Me(c.UserContext(), principal.ID())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": accountResponse(account)})
}

// Logout POST /auth/logout.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if err := h.service.Logout(c.UserContext(), c.Cookies(h.cookie.Name)); err != nil {
		return err
	}
	c.ClearCookie(h.cookie.Name)
	return c.SendStatus(fiber.StatusNoContent)
}

// safeRedirect keeps post-login redirects on the frontend origin.
func safeRedirect(path string) string {
	if !strings.HasPrefix(path, "/") || strings.HasPrefix(path, "//") || strings.Contains(path, `\`) {
		return "/"
	}
	return path
}
