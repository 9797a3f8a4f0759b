package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/usagesentry/usagesentry/internal/pkg/errors"
)

// parseIDParam extracts a numeric URL parameter
func parseIDParam(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, errors.BadRequest("invalid " + name + " parameter")
	}
	return id, nil
}
