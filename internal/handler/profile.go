package handler

import (
	"encoding/json"
	"net/http"

	"github.com/dukerupert/homequest/internal/sync"
)

type ProfileHandler struct {
	syncer *sync.Synchronizer
}

func NewProfileHandler(syncer *sync.Synchronizer) *ProfileHandler {
	return &ProfileHandler{syncer: syncer}
}

type profileUpdateRequest struct {
	Name      *string `json:"name"`
	Avatar    *string `json:"avatar"`
	Address   *string `json:"address"`
	HomeName  *string `json:"homeName"`
	Roommates *int    `json:"roommates"`
}

type xpRequest struct {
	Amount int `json:"amount"`
}

func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req profileUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	fields := make(map[string]any)
	if req.Name != nil {
		fields["name"] = *req.Name
	}
	if req.Avatar != nil {
		fields["avatar"] = *req.Avatar
	}
	if req.Address != nil {
		fields["address"] = *req.Address
	}
	if req.HomeName != nil {
		fields["homeName"] = *req.HomeName
	}
	if req.Roommates != nil {
		fields["roommates"] = *req.Roommates
	}
	if len(fields) == 0 {
		writeError(w, http.StatusBadRequest, "no fields to update")
		return
	}

	if err := h.syncer.UpdateProfile(r.Context(), fields); err != nil {
		opError(w, err)
		return
	}
	accepted(w)
}

// AwardXP grants XP outside any chore (e.g. manual adjustments).
func (h *ProfileHandler) AwardXP(w http.ResponseWriter, r *http.Request) {
	var req xpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Amount < 0 {
		writeError(w, http.StatusBadRequest, "amount must not be negative")
		return
	}

	if err := h.syncer.AwardXP(r.Context(), req.Amount); err != nil {
		opError(w, err)
		return
	}
	accepted(w)
}
