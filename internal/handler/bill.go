package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/dukerupert/homequest/internal/model"
	"github.com/dukerupert/homequest/internal/sync"
)

type BillHandler struct {
	syncer *sync.Synchronizer
}

func NewBillHandler(syncer *sync.Synchronizer) *BillHandler {
	return &BillHandler{syncer: syncer}
}

type billCreateRequest struct {
	Name      string  `json:"name"`
	Amount    float64 `json:"amount"`
	DueDate   string  `json:"dueDate"`
	Status    string  `json:"status"`
	Category  string  `json:"category"`
	Recurring bool    `json:"recurring"`
}

type billUpdateRequest struct {
	Name      *string  `json:"name"`
	Amount    *float64 `json:"amount"`
	DueDate   *string  `json:"dueDate"`
	Status    *string  `json:"status"`
	Category  *string  `json:"category"`
	Recurring *bool    `json:"recurring"`
}

func (h *BillHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req billCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.Amount < 0 {
		writeError(w, http.StatusBadRequest, "amount must not be negative")
		return
	}

	bill := model.Bill{
		Name:      req.Name,
		Amount:    req.Amount,
		DueDate:   req.DueDate,
		Status:    req.Status,
		Category:  req.Category,
		Recurring: req.Recurring,
	}
	if err := h.syncer.AddBill(r.Context(), bill); err != nil {
		opError(w, err)
		return
	}
	accepted(w)
}

func (h *BillHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req billUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	fields := make(map[string]any)
	if req.Name != nil {
		fields["name"] = *req.Name
	}
	if req.Amount != nil {
		if *req.Amount < 0 {
			writeError(w, http.StatusBadRequest, "amount must not be negative")
			return
		}
		fields["amount"] = *req.Amount
	}
	if req.DueDate != nil {
		fields["dueDate"] = *req.DueDate
	}
	if req.Status != nil {
		if !model.ValidBillStatus(*req.Status) {
			writeError(w, http.StatusBadRequest, "invalid status")
			return
		}
		fields["status"] = *req.Status
	}
	if req.Category != nil {
		fields["category"] = *req.Category
	}
	if req.Recurring != nil {
		fields["recurring"] = *req.Recurring
	}
	if len(fields) == 0 {
		writeError(w, http.StatusBadRequest, "no fields to update")
		return
	}

	if err := h.syncer.UpdateBill(r.Context(), id, fields); err != nil {
		opError(w, err)
		return
	}
	accepted(w)
}
