package routes

import (
	"net/http"

	"github.com/lattice-hq/orgtree/backend/internal/db"
	"github.com/lattice-hq/orgtree/backend/internal/server/middleware"
	"github.com/lattice-hq/orgtree/backend/pkg/hierarchy"

	_ "github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
)

func GetGrantsHandler(c echo.Context) error {
	type getGrantsParams struct {
		UserID int64 `query:"user_id" validate:"required,numeric"`
	}

	params := new(getGrantsParams)
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
	q := db.New(app.DBConn)

	grants, err := q.ListGrantsForUser(ctx, params.UserID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}

	return c.JSON(http.StatusOK, grants)
}

// CreateGrantHandler records an explicit cross-branch grant. Duplicate grants
// for the same (user, structure) pair are accepted; resolution treats the
// result as a set.
func CreateGrantHandler(c echo.Context) error {
	type createGrantBody struct {
		UserID      int64             `json:"user_id" validate:"required,numeric"`
		StructureID int64             `json:"structure_id" validate:"required,numeric"`
		Metadata    map[string]string `json:"metadata"`
	}

	type createGrantResponse struct {
		Message string           `json:"message"`
		Grant   *hierarchy.Grant `json:"grant,omitempty"`
	}

	data := new(createGrantBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, createGrantResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, createGrantResponse{
			Message: "Invalid request body",
		})
	}

	user := c.(*middleware.AppContext).User
	if user == nil {
		return c.JSON(http.StatusUnauthorized, createGrantResponse{
			Message: "Unauthorized",
		})
	}

	app := c.(*middleware.AppContext).App
	ctx := c.Request().Context()

	grant, err := app.Mutations.GrantAccess(ctx, data.UserID, data.StructureID, data.Metadata)
	if err != nil {
		return c.JSON(domainError(err))
	}

	return c.JSON(http.StatusOK, createGrantResponse{
		Message: "Grant created",
		Grant:   &grant,
	})
}

func DeleteGrantHandler(c echo.Context) error {
	type deleteGrantParams struct {
		ID int64 `param:"id" validate:"required,numeric"`
	}

	type deleteGrantResponse struct {
		Message string `json:"message"`
	}

	params := new(deleteGrantParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, deleteGrantResponse{
			Message: "Invalid request params",
		})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, deleteGrantResponse{
			Message: "Invalid request params",
		})
	}

	user := c.(*middleware.AppContext).User
	if user == nil {
		return c.JSON(http.StatusUnauthorized, deleteGrantResponse{
			Message: "Unauthorized",
		})
	}

	app := c.(*middleware.AppContext).App
	ctx := c.Request().Context()

	if err := app.Mutations.RevokeAccess(ctx, params.ID); err != nil {
		return c.JSON(domainError(err))
	}

	return c.JSON(http.StatusOK, deleteGrantResponse{
		Message: "Grant revoked",
	})
}
