package routes

import (
	"net/http"

	"github.com/lattice-hq/orgtree/backend/internal/db"
	"github.com/lattice-hq/orgtree/backend/internal/server/middleware"
	"github.com/lattice-hq/orgtree/backend/pkg/hierarchy"

	_ "github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
)

func GetStructuresHandler(c echo.Context) error {
	user := c.(*middleware.AppContext).User
	if user == nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	app := c.(*middleware.AppContext).App
	ctx := c.Request().Context()
	q := db.New(app.DBConn)

	all, err := q.ListStructures(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}

	if middleware.HasCapability(user, "structure.view:all") {
		return c.JSON(http.StatusOK, all)
	}

	accessible, err := app.Access.AccessibleStructures(ctx, user.UserID)
	if err != nil {
		return c.JSON(domainError(err))
	}

	scoped := make([]hierarchy.Structure, 0, len(accessible))
	for _, node := range all {
		if hierarchy.ContainsStructure(accessible, node.ID) {
			scoped = append(scoped, node)
		}
	}
	return c.JSON(http.StatusOK, scoped)
}

func GetStructureDescendantsHandler(c echo.Context) error {
	type descendantsParams struct {
		ID int64 `param:"id" validate:"required,numeric"`
	}

	params := new(descendantsParams)
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

	allowed, err := hasStructureAccess(c, params.ID)
	if err != nil {
		return c.JSON(domainError(err))
	}
	if !allowed {
		return c.JSON(http.StatusForbidden, map[string]string{"error": "Forbidden: structure not accessible"})
	}

	ids, err := app.Access.Descendants(ctx, params.ID)
	if err != nil {
		return c.JSON(domainError(err))
	}

	return c.JSON(http.StatusOK, map[string][]int64{"structure_ids": ids})
}

func GetStructureAncestorsHandler(c echo.Context) error {
	type ancestorsParams struct {
		ID int64 `param:"id" validate:"required,numeric"`
	}

	params := new(ancestorsParams)
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

	allowed, err := hasStructureAccess(c, params.ID)
	if err != nil {
		return c.JSON(domainError(err))
	}
	if !allowed {
		return c.JSON(http.StatusForbidden, map[string]string{"error": "Forbidden: structure not accessible"})
	}

	ids, err := app.Access.Ancestors(ctx, params.ID)
	if err != nil {
		return c.JSON(domainError(err))
	}

	return c.JSON(http.StatusOK, map[string][]int64{"structure_ids": ids})
}

// hasStructureAccess reports whether the caller can view the structure,
// either through the view-all capability or through their accessible set. It
// writes no response; callers must stop on false.
func hasStructureAccess(c echo.Context, structureID int64) (bool, error) {
	user := c.(*middleware.AppContext).User
	if middleware.HasCapability(user, "structure.view:all") {
		return true, nil
	}

	app := c.(*middleware.AppContext).App
	accessible, err := app.Access.AccessibleStructures(c.Request().Context(), user.UserID)
	if err != nil {
		return false, err
	}
	return hierarchy.ContainsStructure(accessible, structureID), nil
}
