package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

var allCapabilities = []string{
	"structure.create",
	"structure.update",
	"structure.move",
	"structure.delete",
	"structure.view:all",
	"structure.export",
	"user.create",
	"user.update",
	"user.view:all",
	"grant.view",
	"grant.create",
	"grant.delete",
}

func AuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		}

		token := strings.Split(authHeader, " ")[1]
		app := c.(*AppContext).App

		// Master API Key bypass
		if app.MasterAPIKey != "" && app.MasterUserID != 0 && app.MasterUserRole != "" && token == app.MasterAPIKey {
			c.(*AppContext).User = &AppUser{
				UserID:       app.MasterUserID,
				Role:         app.MasterUserRole,
				Capabilities: allCapabilities,
			}
			return next(c)
		}

		// Parse JWT token
		k := *c.(*AppContext).App.Key
		parsed, err := jwt.Parse(token, k.Keyfunc)
		if err != nil || !parsed.Valid {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		}

		claims, ok := parsed.Claims.(jwt.MapClaims)
		if !ok {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		}

		var userID int64
		if idClaim, ok := claims["id"].(string); ok {
			userID, err = strconv.ParseInt(idClaim, 10, 64)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid user ID"})
			}
		} else if idFloat, ok := claims["id"].(float64); ok {
			userID = int64(idFloat)
		} else {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid user ID"})
		}

		role := "user"
		if roleClaim, ok := claims["role"].(string); ok {
			role = roleClaim
		}

		var capabilities []string
		if capsClaim, ok := claims["capabilities"].([]any); ok {
			for _, capability := range capsClaim {
				if capStr, ok := capability.(string); ok {
					capabilities = append(capabilities, capStr)
				}
			}
		}

		// The admin role implies the full capability set. This bypass lives
		// here, in front of the handlers; the hierarchy engine itself stays
		// role-blind.
		if role == "admin" && len(capabilities) == 0 {
			capabilities = allCapabilities
		}

		c.(*AppContext).User = &AppUser{
			UserID:       userID,
			Role:         role,
			Capabilities: capabilities,
		}

		return next(c)
	}
}
