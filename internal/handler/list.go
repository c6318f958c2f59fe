package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/dukerupert/homequest/internal/model"
	"github.com/dukerupert/homequest/internal/sync"
)

type ListHandler struct {
	syncer *sync.Synchronizer
}

func NewListHandler(syncer *sync.Synchronizer) *ListHandler {
	return &ListHandler{syncer: syncer}
}

type listItemRequest struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

type listCreateRequest struct {
	Name  string            `json:"name"`
	Items []listItemRequest `json:"items"`
}

type listUpdateRequest struct {
	Name  *string            `json:"name"`
	Items *[]listItemRequest `json:"items"`
}

func (h *ListHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req listCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	list := model.List{
		Name:  req.Name,
		Items: toItems(req.Items),
	}
	if err := h.syncer.AddList(r.Context(), list); err != nil {
		opError(w, err)
		return
	}
	accepted(w)
}

// Update rewrites list fields. Items are embedded in the list document, so
// any item change arrives as the complete rewritten item collection.
func (h *ListHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req listUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	fields := make(map[string]any)
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			writeError(w, http.StatusBadRequest, "name is required")
			return
		}
		fields["name"] = name
	}
	if req.Items != nil {
		items := make([]any, 0, len(*req.Items))
		for _, item := range toItems(*req.Items) {
			items = append(items, map[string]any{
				"id":        item.ID,
				"text":      item.Text,
				"completed": item.Completed,
			})
		}
		fields["items"] = items
	}
	if len(fields) == 0 {
		writeError(w, http.StatusBadRequest, "no fields to update")
		return
	}

	if err := h.syncer.UpdateList(r.Context(), id, fields); err != nil {
		opError(w, err)
		return
	}
	accepted(w)
}

func toItems(reqs []listItemRequest) []model.ListItem {
	items := make([]model.ListItem, 0, len(reqs))
	for _, req := range reqs {
		text := strings.TrimSpace(req.Text)
		if text == "" {
			continue
		}
		id := req.ID
		if id == "" {
			id = uuid.NewString()
		}
		items = append(items, model.ListItem{
			ID:        id,
			Text:      text,
			Completed: req.Completed,
		})
	}
	return items
}
