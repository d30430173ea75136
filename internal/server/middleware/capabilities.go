package middleware

import (
	"net/http"
	"slices"

	"github.com/labstack/echo/v4"
)

func HasCapability(user *AppUser, capability string) bool {
	if user == nil {
		return false
	}
	return slices.Contains(user.Capabilities, capability)
}

func HasAnyCapability(user *AppUser, capabilities ...string) bool {
	if user == nil {
		return false
	}
	for _, capability := range capabilities {
		if HasCapability(user, capability) {
			return true
		}
	}
	return false
}

func IsAdmin(user *AppUser) bool {
	if user == nil {
		return false
	}
	return user.Role == "admin"
}

func RequireCapability(capability string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user := c.(*AppContext).User
			if user == nil {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
			}

			if !HasCapability(user, capability) {
				return c.JSON(http.StatusForbidden, map[string]string{"error": "Forbidden: missing capability " + capability})
			}

			return next(c)
		}
	}
}

func RequireAnyCapability(capabilities ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user := c.(*AppContext).User
			if user == nil {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
			}

			if !HasAnyCapability(user, capabilities...) {
				return c.JSON(http.StatusForbidden, map[string]string{"error": "Forbidden: missing required capability"})
			}

			return next(c)
		}
	}
}
