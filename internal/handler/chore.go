package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/dukerupert/homequest/internal/model"
	"github.com/dukerupert/homequest/internal/sync"
)

type ChoreHandler struct {
	syncer *sync.Synchronizer
}

func NewChoreHandler(syncer *sync.Synchronizer) *ChoreHandler {
	return &ChoreHandler{syncer: syncer}
}

type choreCreateRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	XPReward    int    `json:"xpReward"`
	DueDate     string `json:"dueDate"`
	Category    string `json:"category"`
}

type choreUpdateRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	XPReward    *int    `json:"xpReward"`
	Completed   *bool   `json:"completed"`
	DueDate     *string `json:"dueDate"`
	Category    *string `json:"category"`
}

func (h *ChoreHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req choreCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	if req.XPReward <= 0 {
		writeError(w, http.StatusBadRequest, "xpReward must be positive")
		return
	}

	chore := model.Chore{
		Title:       req.Title,
		Description: req.Description,
		XPReward:    req.XPReward,
		DueDate:     req.DueDate,
		Category:    req.Category,
	}
	if err := h.syncer.AddChore(r.Context(), chore); err != nil {
		opError(w, err)
		return
	}
	accepted(w)
}

func (h *ChoreHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req choreUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	fields := make(map[string]any)
	if req.Title != nil {
		fields["title"] = *req.Title
	}
	if req.Description != nil {
		fields["description"] = *req.Description
	}
	if req.XPReward != nil {
		fields["xpReward"] = *req.XPReward
	}
	if req.Completed != nil {
		fields["completed"] = *req.Completed
	}
	if req.DueDate != nil {
		fields["dueDate"] = *req.DueDate
	}
	if req.Category != nil {
		fields["category"] = *req.Category
	}
	if len(fields) == 0 {
		writeError(w, http.StatusBadRequest, "no fields to update")
		return
	}

	if err := h.syncer.UpdateChore(r.Context(), id, fields); err != nil {
		opError(w, err)
		return
	}
	accepted(w)
}

// Complete marks a chore done and awards its XP. The reward comes from the
// synchronized chore, never from the request body.
func (h *ChoreHandler) Complete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var reward int
	found := false
	for _, c := range h.syncer.Snapshot().Chores {
		if c.ID == id {
			reward = c.XPReward
			found = true
			break
		}
	}
	if !found {
		writeError(w, http.StatusNotFound, "chore not found")
		return
	}

	if err := h.syncer.CompleteChore(r.Context(), id, reward); err != nil {
		opError(w, err)
		return
	}
	accepted(w)
}
