package handler

import (
	"net/http"

	"github.com/dukerupert/homequest/internal/sync"
)

// DataHandler serves the aggregate snapshot and session-level operations.
type DataHandler struct {
	syncer *sync.Synchronizer
}

func NewDataHandler(syncer *sync.Synchronizer) *DataHandler {
	return &DataHandler{syncer: syncer}
}

type dataResponse struct {
	sync.Aggregate
	Loading bool   `json:"loading"`
	Error   string `json:"error,omitempty"`
}

// Get returns the whole aggregate in one response: profile, all four
// collections, the loading flag, and the dismissible error banner.
func (h *DataHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, dataResponse{
		Aggregate: h.syncer.Snapshot(),
		Loading:   h.syncer.Loading(),
		Error:     h.syncer.Error(),
	})
}

// ClearError dismisses the error banner.
func (h *DataHandler) ClearError(w http.ResponseWriter, r *http.Request) {
	h.syncer.ClearError()
	w.WriteHeader(http.StatusNoContent)
}

// Seed populates starter data for a brand-new household.
func (h *DataHandler) Seed(w http.ResponseWriter, r *http.Request) {
	if err := h.syncer.SeedIfEmpty(r.Context()); err != nil {
		opError(w, err)
		return
	}
	accepted(w)
}
