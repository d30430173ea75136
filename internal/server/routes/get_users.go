package routes

import (
	"net/http"

	"github.com/lattice-hq/orgtree/backend/internal/db"
	"github.com/lattice-hq/orgtree/backend/internal/server/middleware"
	"github.com/lattice-hq/orgtree/backend/pkg/hierarchy"

	_ "github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
)

// GetUsersHandler lists users. Without user.view:all the listing is scoped to
// users homed in a structure the caller can access, plus the caller.
func GetUsersHandler(c echo.Context) error {
	user := c.(*middleware.AppContext).User
	if user == nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	app := c.(*middleware.AppContext).App
	ctx := c.Request().Context()
	q := db.New(app.DBConn)

	all, err := q.ListUsers(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}

	if middleware.HasCapability(user, "user.view:all") {
		return c.JSON(http.StatusOK, all)
	}

	accessible, err := app.Access.AccessibleStructures(ctx, user.UserID)
	if err != nil {
		return c.JSON(domainError(err))
	}

	scoped := make([]hierarchy.User, 0, len(all))
	for _, candidate := range all {
		if candidate.ID == user.UserID {
			scoped = append(scoped, candidate)
			continue
		}
		if candidate.StructureID != nil && hierarchy.ContainsStructure(accessible, *candidate.StructureID) {
			scoped = append(scoped, candidate)
		}
	}
	return c.JSON(http.StatusOK, scoped)
}

// GetUserHandler returns a single user, authorized through CanAccess.
func GetUserHandler(c echo.Context) error {
	type getUserParams struct {
		ID int64 `param:"id" validate:"required,numeric"`
	}

	params := new(getUserParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}

	user := c.(*middleware.AppContext).User
	if user == nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	app := c.(*middleware.AppContext).App
	ctx := c.Request().Context()

	if !middleware.HasCapability(user, "user.view:all") {
		allowed, err := app.Access.CanAccess(ctx, user.UserID, params.ID)
		if err != nil {
			return c.JSON(domainError(err))
		}
		if !allowed {
			return c.JSON(http.StatusForbidden, map[string]string{"error": "Forbidden: user not accessible"})
		}
	}

	q := db.New(app.DBConn)
	target, err := q.GetUser(ctx, params.ID)
	if err != nil {
		return c.JSON(domainError(err))
	}

	return c.JSON(http.StatusOK, target)
}
