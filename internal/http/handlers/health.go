package handlers

import "net/http"

// Health reports liveness. It never calls the clinic backend.
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
