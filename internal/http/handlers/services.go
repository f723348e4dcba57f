package handlers

import (
	"net/http"

	"github.com/wolfman30/dentalbook/internal/catalog"
)

// ListServices returns the bookable procedure catalogue.
func ListServices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"services": catalog.All(),
		"default":  catalog.DefaultProcedure,
	})
}
