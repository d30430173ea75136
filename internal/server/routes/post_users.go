package routes

import (
	"net/http"

	"github.com/lattice-hq/orgtree/backend/internal/db"
	"github.com/lattice-hq/orgtree/backend/internal/server/middleware"
	"github.com/lattice-hq/orgtree/backend/pkg/hierarchy"

	_ "github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
)

// CreateUserHandler registers a user id from the identity provider with an
// optional home structure. The engine never creates identities itself.
func CreateUserHandler(c echo.Context) error {
	type createUserBody struct {
		UserID      int64  `json:"user_id" validate:"required,numeric"`
		StructureID *int64 `json:"structure_id"`
	}

	type createUserResponse struct {
		Message string          `json:"message"`
		User    *hierarchy.User `json:"user,omitempty"`
	}

	data := new(createUserBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, createUserResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, createUserResponse{
			Message: "Invalid request body",
		})
	}

	user := c.(*middleware.AppContext).User
	if user == nil {
		return c.JSON(http.StatusUnauthorized, createUserResponse{
			Message: "Unauthorized",
		})
	}

	app := c.(*middleware.AppContext).App
	ctx := c.Request().Context()
	q := db.New(app.DBConn)

	if data.StructureID != nil {
		if _, err := q.GetStructure(ctx, *data.StructureID); err != nil {
			return c.JSON(domainError(err))
		}
	}

	created, err := q.CreateUser(ctx, data.UserID, data.StructureID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, createUserResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, createUserResponse{
		Message: "User registered",
		User:    &created,
	})
}

// EditUserHandler changes a user's home structure through the coordinator so
// the accessible-set cache entry is dropped. A null structure_id clears the
// home, leaving the user with grant-derived access only.
func EditUserHandler(c echo.Context) error {
	type editUserParams struct {
		ID int64 `param:"id" validate:"required,numeric"`
	}

	type editUserBody struct {
		StructureID *int64 `json:"structure_id"`
	}

	type editUserResponse struct {
		Message string          `json:"message"`
		User    *hierarchy.User `json:"user,omitempty"`
	}

	params := new(editUserParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, editUserResponse{
			Message: "Invalid request params",
		})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, editUserResponse{
			Message: "Invalid request params",
		})
	}

	data := new(editUserBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, editUserResponse{
			Message: "Invalid request body",
		})
	}

	user := c.(*middleware.AppContext).User
	if user == nil {
		return c.JSON(http.StatusUnauthorized, editUserResponse{
			Message: "Unauthorized",
		})
	}

	app := c.(*middleware.AppContext).App
	ctx := c.Request().Context()

	if err := app.Mutations.SetUserStructure(ctx, params.ID, data.StructureID); err != nil {
		return c.JSON(domainError(err))
	}

	q := db.New(app.DBConn)
	updated, err := q.GetUser(ctx, params.ID)
	if err != nil {
		return c.JSON(domainError(err))
	}

	return c.JSON(http.StatusOK, editUserResponse{
		Message: "User updated",
		User:    &updated,
	})
}
