package routes

import (
	"net/http"

	"github.com/lattice-hq/orgtree/backend/internal/server/middleware"
	"github.com/lattice-hq/orgtree/backend/pkg/hierarchy"

	_ "github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
)

// CreateStructureHandler creates a structure, optionally under a parent.
func CreateStructureHandler(c echo.Context) error {
	type createStructureBody struct {
		Name     string            `json:"name" validate:"required"`
		ParentID *int64            `json:"parent_id"`
		Metadata map[string]string `json:"metadata"`
	}

	type createStructureResponse struct {
		Message   string               `json:"message"`
		Structure *hierarchy.Structure `json:"structure,omitempty"`
	}

	data := new(createStructureBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, createStructureResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, createStructureResponse{
			Message: "Invalid request body",
		})
	}

	user := c.(*middleware.AppContext).User
	if user == nil {
		return c.JSON(http.StatusUnauthorized, createStructureResponse{
			Message: "Unauthorized",
		})
	}

	app := c.(*middleware.AppContext).App
	ctx := c.Request().Context()

	node, err := app.Mutations.CreateStructure(ctx, data.Name, data.ParentID, data.Metadata)
	if err != nil {
		return c.JSON(domainError(err))
	}

	return c.JSON(http.StatusOK, createStructureResponse{
		Message:   "Structure created successfully",
		Structure: &node,
	})
}
