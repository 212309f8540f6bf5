package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/atinyakov/GophLedger/internal/middleware"
	"github.com/atinyakov/GophLedger/internal/models"
	"github.com/atinyakov/GophLedger/internal/service"
	"github.com/go-chi/chi/v5"
)

// LedgerService defines the expense operations required by the LedgerHandler.
type LedgerService interface {
	Add(ctx context.Context, user models.Username, description string, amount float64, category string) (models.Expense, error)
	List(ctx context.Context, user models.Username) (models.Expenses, error)
	Update(ctx context.Context, user models.Username, id int64, upd service.ExpenseUpdate) (models.Expense, error)
	Delete(ctx context.Context, user models.Username, id int64) (models.Expense, error)
	Summarize(ctx context.Context, user models.Username, month int) (float64, error)
	Export(ctx context.Context, user models.Username, w io.Writer) (int64, error)
}

// LedgerHandler serves the expense endpoints for the authenticated user.
type LedgerHandler struct {
	LedgerService LedgerService
}

// AddRequest is the JSON payload of POST /api/expenses.
type AddRequest struct {
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Category    string  `json:"category,omitempty"`
}

// UpdateRequest is the JSON payload of PATCH /api/expenses/{id}.
type UpdateRequest struct {
	Description *string  `json:"description,omitempty"`
	Amount      *float64 `json:"amount,omitempty"`
}

// SummaryResponse is returned by GET /api/summary.
type SummaryResponse struct {
	Month int     `json:"month,omitempty"`
	Total float64 `json:"total"`
}

// List handles GET /api/expenses.
func (h *LedgerHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.LedgerService.List(r.Context(), middleware.GetUserFromContext(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// Add handles POST /api/expenses.
func (h *LedgerHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req AddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	exp, err := h.LedgerService.Add(r.Context(), middleware.GetUserFromContext(r.Context()),
		req.Description, req.Amount, req.Category)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, exp)
}

// Update handles PATCH /api/expenses/{id}.
func (h *LedgerHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := expenseID(w, r)
	if !ok {
		return
	}
	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	exp, err := h.LedgerService.Update(r.Context(), middleware.GetUserFromContext(r.Context()), id,
		service.ExpenseUpdate{Description: req.Description, Amount: req.Amount})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, exp)
}

// Delete handles DELETE /api/expenses/{id} and returns the removed record.
func (h *LedgerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := expenseID(w, r)
	if !ok {
		return
	}
	exp, err := h.LedgerService.Delete(r.Context(), middleware.GetUserFromContext(r.Context()), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, exp)
}

// Summary handles GET /api/summary?month=m. Without month the total covers every record.
func (h *LedgerHandler) Summary(w http.ResponseWriter, r *http.Request) {
	month := 0
	if raw := r.URL.Query().Get("month"); raw != "" {
		m, err := strconv.Atoi(raw)
		// An explicit month=0 is rejected; omit the parameter for all months.
		if err != nil || m == 0 {
			writeError(w, models.ErrInvalidMonth)
			return
		}
		month = m
	}
	total, err := h.LedgerService.Summarize(r.Context(), middleware.GetUserFromContext(r.Context()), month)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SummaryResponse{Month: month, Total: total})
}

// Export handles GET /api/export and returns the CSV as an attachment.
func (h *LedgerHandler) Export(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if _, err := h.LedgerService.Export(r.Context(), middleware.GetUserFromContext(r.Context()), &buf); err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="export.csv"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	_, _ = buf.WriteTo(w)
}

func expenseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "invalid expense id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}
