package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lattice-hq/orgtree/backend/internal/server/middleware"
	"github.com/lattice-hq/orgtree/backend/pkg/cache"
	"github.com/lattice-hq/orgtree/backend/pkg/hierarchy"

	"github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
)

type structValidator struct {
	validate *validator.Validate
}

func (v *structValidator) Validate(i any) error {
	return v.validate.Struct(i)
}

// structureFixture builds root → child with user 10 homed at the root and
// user 42 homeless and grantless.
func structureFixture(t *testing.T) (app *middleware.App, rootID, childID int64) {
	t.Helper()
	ctx := context.Background()

	store := hierarchy.NewMemoryStore()
	root, err := store.CreateStructure(ctx, "root", nil, nil)
	if err != nil {
		t.Fatalf("failed to create root: %v", err)
	}
	child, err := store.CreateStructure(ctx, "child", &root.ID, nil)
	if err != nil {
		t.Fatalf("failed to create child: %v", err)
	}
	if _, err := store.CreateUser(ctx, 10, &root.ID); err != nil {
		t.Fatalf("failed to create user 10: %v", err)
	}
	if _, err := store.CreateUser(ctx, 42, nil); err != nil {
		t.Fatalf("failed to create user 42: %v", err)
	}

	cacheClient := cache.NewMemory(cache.MemoryParams{})
	t.Cleanup(cacheClient.Stop)
	resolver := hierarchy.NewResolver(hierarchy.ResolverParams{Structures: store})
	access := hierarchy.NewAccessService(hierarchy.AccessServiceParams{
		Users:    store,
		Grants:   store,
		Resolver: resolver,
		Cache:    cacheClient,
	})

	return &middleware.App{Access: access}, root.ID, child.ID
}

func invokeStructureRead(t *testing.T, app *middleware.App, user *middleware.AppUser, handler echo.HandlerFunc, id string) *httptest.ResponseRecorder {
	t.Helper()

	e := echo.New()
	e.Validator = &structValidator{validate: validator.New()}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(id)

	cc := &middleware.AppContext{Context: c, App: app, User: user}
	if err := handler(cc); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	return rec
}

func TestGetStructureDescendants(t *testing.T) {
	app, rootID, childID := structureFixture(t)

	rec := invokeStructureRead(t, app, &middleware.AppUser{UserID: 10}, GetStructureDescendantsHandler, "1")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for a user homed at the structure, got %d", rec.Code)
	}

	var body struct {
		StructureIDs []int64 `json:"structure_ids"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(body.StructureIDs) != 1 || body.StructureIDs[0] != childID {
		t.Fatalf("expected descendants [%d] of %d, got %v", childID, rootID, body.StructureIDs)
	}
}

func TestGetStructureDescendantsForbidden(t *testing.T) {
	app, _, _ := structureFixture(t)

	// User 42 has no home and no grants; the structure is outside their
	// accessible set.
	rec := invokeStructureRead(t, app, &middleware.AppUser{UserID: 42}, GetStructureDescendantsHandler, "1")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for an inaccessible structure, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "structure_ids") {
		t.Fatalf("forbidden response must not carry structure ids, got %q", rec.Body.String())
	}
}

func TestGetStructureAncestorsForbidden(t *testing.T) {
	app, _, _ := structureFixture(t)

	rec := invokeStructureRead(t, app, &middleware.AppUser{UserID: 42}, GetStructureAncestorsHandler, "2")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for an inaccessible structure, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "structure_ids") {
		t.Fatalf("forbidden response must not carry structure ids, got %q", rec.Body.String())
	}
}

func TestGetStructureDescendantsViewAll(t *testing.T) {
	app, _, childID := structureFixture(t)

	caller := &middleware.AppUser{UserID: 42, Capabilities: []string{"structure.view:all"}}
	rec := invokeStructureRead(t, app, caller, GetStructureDescendantsHandler, "1")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with the view-all capability, got %d", rec.Code)
	}

	var body struct {
		StructureIDs []int64 `json:"structure_ids"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(body.StructureIDs) != 1 || body.StructureIDs[0] != childID {
		t.Fatalf("expected descendants [%d], got %v", childID, body.StructureIDs)
	}
}
