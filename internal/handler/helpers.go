package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dukerupert/homequest/internal/sync"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// accepted acknowledges a mutation whose visible effect arrives with the
// next snapshot, not with this response.
func accepted(w http.ResponseWriter) {
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

// opError maps a synchronizer operation failure to a response. The error
// detail has already been routed to the banner; the response stays terse.
func opError(w http.ResponseWriter, err error) {
	if errors.Is(err, sync.ErrNotSignedIn) {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeError(w, http.StatusInternalServerError, "operation failed")
}
