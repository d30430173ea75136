package routes

import (
	"net/http"

	"github.com/lattice-hq/orgtree/backend/internal/server/middleware"

	_ "github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
)

// DeleteStructureHandler removes a leaf structure. Deletion does not cascade:
// a structure with children is rejected with 409 and the caller re-parents or
// deletes the children first.
func DeleteStructureHandler(c echo.Context) error {
	type deleteStructureParams struct {
		ID int64 `param:"id" validate:"required,numeric"`
	}

	type deleteStructureResponse struct {
		Message string `json:"message"`
	}

	params := new(deleteStructureParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, deleteStructureResponse{
			Message: "Invalid request params",
		})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, deleteStructureResponse{
			Message: "Invalid request params",
		})
	}

	user := c.(*middleware.AppContext).User
	if user == nil {
		return c.JSON(http.StatusUnauthorized, deleteStructureResponse{
			Message: "Unauthorized",
		})
	}

	app := c.(*middleware.AppContext).App
	ctx := c.Request().Context()

	if err := app.Mutations.DeleteStructure(ctx, params.ID); err != nil {
		return c.JSON(domainError(err))
	}

	return c.JSON(http.StatusOK, deleteStructureResponse{
		Message: "Structure deleted",
	})
}
