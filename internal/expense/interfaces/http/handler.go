package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"clinic-register/internal/audit"
	"clinic-register/internal/auth"
	expenseapp "clinic-register/internal/expense/application"
	expense "clinic-register/internal/expense/domain"
	register "clinic-register/internal/register/domain"
)

// Handler provides expense ledger HTTP endpoints.
type Handler struct {
	service     *expenseapp.Service
	auditLogger audit.Logger
}

// NewHandler constructs a handler.
func NewHandler(service *expenseapp.Service, auditLogger audit.Logger) (*Handler, error) {
	if service == nil {
		return nil, errors.New("expense handler: nil service")
	}
	return &Handler{service: service, auditLogger: auditLogger}, nil
}

// ServeHTTP handles /api/v1/expenses and subroutes.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	switch {
	case path == "/api/v1/expenses" && r.Method == http.MethodPost:
		h.handleRecord(w, r)
	case path == "/api/v1/expenses" && r.Method == http.MethodGet:
		h.handleList(w, r)
	case strings.HasPrefix(path, "/api/v1/expenses/") && strings.HasSuffix(path, "/reverse") && r.Method == http.MethodPost:
		raw := strings.TrimSuffix(strings.TrimPrefix(path, "/api/v1/expenses/"), "/reverse")
		h.handleReverse(w, r, raw)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleRecord(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Date    string          `json:"date"`
		Concept string          `json:"concept"`
		Amount  decimal.Decimal `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	day, err := register.ParseDay(req.Date)
	if err != nil {
		http.Error(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	entry, err := h.service.Record(r.Context(), day, req.Concept, req.Amount, auth.SubjectFromContext(r.Context()))
	if err != nil {
		respondExpenseError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, entry)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	day, err := register.ParseDay(r.URL.Query().Get("date"))
	if err != nil {
		http.Error(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	entries, err := h.service.List(r.Context(), day)
	if err != nil {
		respondExpenseError(w, err)
		return
	}
	sum, err := h.service.Sum(r.Context(), day)
	if err != nil {
		respondExpenseError(w, err)
		return
	}
	writeJSON(w, map[string]any{"entries": entries, "total": sum})
}

func (h *Handler) handleReverse(w http.ResponseWriter, r *http.Request, rawID string) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		http.Error(w, "invalid expense id", http.StatusBadRequest)
		return
	}
	entry, err := h.service.Reverse(r.Context(), id, auth.SubjectFromContext(r.Context()))
	if err != nil {
		respondExpenseError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, entry)
	h.logAudit(r, "expense.reverse", id.String(), map[string]any{
		"reversal_id": entry.ID.String(),
		"amount":      entry.Amount.String(),
	})
}

func (h *Handler) logAudit(r *http.Request, action, resourceID string, meta map[string]any) {
	if h.auditLogger == nil {
		return
	}
	_ = h.auditLogger.Log(r.Context(), audit.Entry{
		ClinicID:     auth.ClinicIDFromContext(r.Context()),
		Actor:        auth.SubjectFromContext(r.Context()),
		Role:         string(auth.RoleFromContext(r.Context())),
		Action:       action,
		ResourceType: "expense",
		ResourceID:   resourceID,
		Metadata:     meta,
		IP:           audit.ClientIP(r),
		UserAgent:    r.UserAgent(),
	})
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}

func respondExpenseError(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, expense.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, expense.ErrAlreadyReversed), errors.Is(err, expense.ErrReversalOfReversal):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, expense.ErrInvalidDay),
		errors.Is(err, expense.ErrEmptyConcept),
		errors.Is(err, expense.ErrNonPositiveAmount):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
