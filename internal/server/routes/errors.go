package routes

import (
	"errors"
	"net/http"

	"github.com/lattice-hq/orgtree/backend/pkg/hierarchy"
)

// domainStatus maps engine errors to response codes. Unrecognized errors are
// internal.
func domainStatus(err error) int {
	switch {
	case errors.Is(err, hierarchy.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, hierarchy.ErrInvalidOperation),
		errors.Is(err, hierarchy.ErrCycleDetected):
		return http.StatusBadRequest
	case errors.Is(err, hierarchy.ErrHasChildren):
		return http.StatusConflict
	case errors.Is(err, hierarchy.ErrTreeTooDeep):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func domainError(err error) (int, map[string]string) {
	status := domainStatus(err)
	message := "Internal server error"
	if status != http.StatusInternalServerError {
		message = err.Error()
	}
	return status, map[string]string{"error": message}
}
