package routes

import (
	"net/http"

	"github.com/lattice-hq/orgtree/backend/internal/db"
	"github.com/lattice-hq/orgtree/backend/internal/server/middleware"
	"github.com/lattice-hq/orgtree/backend/pkg/hierarchy"

	_ "github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
)

// EditStructureHandler renames a structure and/or moves it. A move needs the
// structure.move capability on top of structure.update; setting make_root
// detaches the node into a new root.
func EditStructureHandler(c echo.Context) error {
	type editStructureParams struct {
		ID int64 `param:"id" validate:"required,numeric"`
	}

	type editStructureBody struct {
		Name     *string           `json:"name"`
		Metadata map[string]string `json:"metadata"`
		ParentID *int64            `json:"parent_id"`
		MakeRoot bool              `json:"make_root"`
	}

	type editStructureResponse struct {
		Message   string               `json:"message"`
		Structure *hierarchy.Structure `json:"structure,omitempty"`
	}

	params := new(editStructureParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, editStructureResponse{
			Message: "Invalid request params",
		})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, editStructureResponse{
			Message: "Invalid request params",
		})
	}

	data := new(editStructureBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, editStructureResponse{
			Message: "Invalid request body",
		})
	}

	user := c.(*middleware.AppContext).User
	if user == nil {
		return c.JSON(http.StatusUnauthorized, editStructureResponse{
			Message: "Unauthorized",
		})
	}

	app := c.(*middleware.AppContext).App
	ctx := c.Request().Context()
	q := db.New(app.DBConn)

	move := data.ParentID != nil || data.MakeRoot
	if move && !middleware.HasCapability(user, "structure.move") {
		return c.JSON(http.StatusForbidden, editStructureResponse{
			Message: "Forbidden: missing capability structure.move",
		})
	}

	current, err := q.GetStructure(ctx, params.ID)
	if err != nil {
		return c.JSON(domainError(err))
	}

	if data.Name != nil || data.Metadata != nil {
		name := current.Name
		if data.Name != nil {
			name = *data.Name
		}
		metadata := current.Metadata
		if data.Metadata != nil {
			metadata = data.Metadata
		}
		if _, err := app.Mutations.UpdateStructure(ctx, params.ID, name, metadata); err != nil {
			return c.JSON(domainError(err))
		}
	}

	if move {
		newParent := data.ParentID
		if data.MakeRoot {
			newParent = nil
		}
		if err := app.Mutations.MoveStructure(ctx, params.ID, newParent); err != nil {
			return c.JSON(domainError(err))
		}
	}

	node, err := q.GetStructure(ctx, params.ID)
	if err != nil {
		return c.JSON(domainError(err))
	}

	return c.JSON(http.StatusOK, editStructureResponse{
		Message:   "Structure updated",
		Structure: &node,
	})
}
