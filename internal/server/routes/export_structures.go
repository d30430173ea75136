package routes

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/lattice-hq/orgtree/backend/internal/db"
	"github.com/lattice-hq/orgtree/backend/internal/server/middleware"
	"github.com/lattice-hq/orgtree/backend/internal/storage"
	"github.com/lattice-hq/orgtree/backend/pkg/hierarchy"

	"github.com/labstack/echo/v4"
	"golang.org/x/sync/errgroup"
)

// ExportStructuresHandler writes a JSON snapshot of the whole forest, its
// users, and its grants to S3 and returns the object key.
func ExportStructuresHandler(c echo.Context) error {
	type exportResponse struct {
		Message string `json:"message"`
		Key     string `json:"key,omitempty"`
	}

	user := c.(*middleware.AppContext).User
	if user == nil {
		return c.JSON(http.StatusUnauthorized, exportResponse{
			Message: "Unauthorized",
		})
	}

	app := c.(*middleware.AppContext).App
	ctx := c.Request().Context()
	q := db.New(app.DBConn)

	type snapshot struct {
		ExportedAt time.Time             `json:"exported_at"`
		Structures []hierarchy.Structure `json:"structures"`
		Users      []hierarchy.User      `json:"users"`
		Grants     []hierarchy.Grant     `json:"grants"`
	}

	snap := snapshot{ExportedAt: time.Now().UTC()}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		snap.Structures, err = q.ListStructures(gctx)
		return err
	})
	g.Go(func() error {
		users, err := q.ListUsers(gctx)
		if err != nil {
			return err
		}
		snap.Users = users
		for _, u := range users {
			grants, err := q.ListGrantsForUser(gctx, u.ID)
			if err != nil {
				return err
			}
			snap.Grants = append(snap.Grants, grants...)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return c.JSON(domainError(err))
	}

	body, err := json.Marshal(snap)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, exportResponse{
			Message: "Internal server error",
		})
	}

	key := fmt.Sprintf("snapshots/orgtree-%s.json", snap.ExportedAt.Format("20060102T150405Z"))
	if err := storage.PutSnapshot(ctx, app.S3, key, body); err != nil {
		return c.JSON(http.StatusInternalServerError, exportResponse{
			Message: "Failed to store snapshot",
		})
	}

	return c.JSON(http.StatusOK, exportResponse{
		Message: "Snapshot exported",
		Key:     key,
	})
}
