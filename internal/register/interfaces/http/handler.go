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
	"clinic-register/internal/observability/metrics"
	registerapp "clinic-register/internal/register/application"
	register "clinic-register/internal/register/domain"
)

// Handler provides consultation HTTP endpoints.
type Handler struct {
	service     *registerapp.Service
	auditLogger audit.Logger
}

// NewHandler constructs a handler.
func NewHandler(service *registerapp.Service, auditLogger audit.Logger) (*Handler, error) {
	if service == nil {
		return nil, errors.New("register handler: nil service")
	}
	return &Handler{service: service, auditLogger: auditLogger}, nil
}

// ServeHTTP handles /api/v1/consultations and subroutes, plus the sequence
// repair endpoint.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	switch {
	case path == "/api/v1/sequence/repair" && r.Method == http.MethodPost:
		h.handleRepair(w, r)
	case path == "/api/v1/consultations" && r.Method == http.MethodPost:
		h.handleIntake(w, r)
	case path == "/api/v1/consultations" && r.Method == http.MethodGet:
		h.handleList(w, r)
	case strings.HasPrefix(path, "/api/v1/consultations/"):
		h.handleByID(w, r, strings.TrimPrefix(path, "/api/v1/consultations/"))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

type itemPayload struct {
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}

type feePayload struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

func (h *Handler) handleIntake(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Date     string        `json:"date"`
		Category string        `json:"category"`
		Channel  string        `json:"channel"`
		Items    []itemPayload `json:"items"`
		Fees     []feePayload  `json:"adjunct_fees"`
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
	category, ok := register.ParseCategory(req.Category)
	if !ok {
		http.Error(w, "invalid category", http.StatusBadRequest)
		return
	}
	channel, ok := register.ParseChannel(req.Channel)
	if !ok {
		http.Error(w, "invalid channel", http.StatusBadRequest)
		return
	}

	intake := registerapp.IntakeRequest{DayStart: day, Category: category, Channel: channel}
	for _, item := range req.Items {
		intake.Items = append(intake.Items, registerapp.ItemRequest{Description: item.Description, Amount: item.Amount})
	}
	for _, fee := range req.Fees {
		intake.Fees = append(intake.Fees, registerapp.FeeRequest{Name: fee.Name, Amount: fee.Amount})
	}

	consultation, err := h.service.Intake(r.Context(), intake)
	if err != nil {
		metrics.CountIntake(metrics.ResultError)
		respondRegisterError(w, err)
		return
	}
	metrics.CountIntake(metrics.ResultSuccess)
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, viewOf(consultation))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	day, err := register.ParseDay(r.URL.Query().Get("date"))
	if err != nil {
		http.Error(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	consultations, err := h.service.ListByDay(r.Context(), day)
	if err != nil {
		respondRegisterError(w, err)
		return
	}
	views := make([]consultationView, 0, len(consultations))
	for _, consultation := range consultations {
		views = append(views, viewOf(consultation))
	}
	writeJSON(w, views)
}

func (h *Handler) handleByID(w http.ResponseWriter, r *http.Request, rest string) {
	parts := strings.Split(rest, "/")
	id, err := uuid.Parse(parts[0])
	if err != nil {
		http.Error(w, "invalid consultation id", http.StatusBadRequest)
		return
	}

	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		h.handleGet(w, r, id)
	case len(parts) == 2 && parts[1] == "cancel" && r.Method == http.MethodPost:
		h.handleCancel(w, r, id)
	case len(parts) == 2 && parts[1] == "items" && r.Method == http.MethodPost:
		h.handleAddItem(w, r, id)
	case len(parts) == 3 && parts[1] == "items" && r.Method == http.MethodDelete:
		h.handleRemoveItem(w, r, id, parts[2])
	case len(parts) == 2 && parts[1] == "receipt.pdf" && r.Method == http.MethodGet:
		h.handleReceipt(w, r, id)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	consultation, err := h.service.Get(r.Context(), id)
	if err != nil {
		respondRegisterError(w, err)
		return
	}
	writeJSON(w, viewOf(consultation))
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	var req struct {
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	actor := auth.SubjectFromContext(r.Context())
	if actor == "" {
		actor = "unknown"
	}
	consultation, err := h.service.Cancel(r.Context(), id, req.Reason, actor)
	if err != nil {
		metrics.CountCancel(metrics.ResultError)
		respondRegisterError(w, err)
		return
	}
	metrics.CountCancel(metrics.ResultSuccess)
	writeJSON(w, viewOf(consultation))
	h.logAudit(r, "consultation.cancel", id.String(), map[string]any{
		"reason": req.Reason,
		"day":    consultation.DayStart().Format("2006-01-02"),
	})
}

func (h *Handler) handleAddItem(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	var req itemPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	consultation, err := h.service.AddLineItem(r.Context(), id, req.Description, req.Amount)
	if err != nil {
		respondRegisterError(w, err)
		return
	}
	writeJSON(w, viewOf(consultation))
}

func (h *Handler) handleRemoveItem(w http.ResponseWriter, r *http.Request, id uuid.UUID, rawItemID string) {
	itemID, err := uuid.Parse(rawItemID)
	if err != nil {
		http.Error(w, "invalid item id", http.StatusBadRequest)
		return
	}
	consultation, err := h.service.RemoveLineItem(r.Context(), id, itemID)
	if err != nil {
		respondRegisterError(w, err)
		return
	}
	writeJSON(w, viewOf(consultation))
}

func (h *Handler) handleReceipt(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	consultation, err := h.service.Get(r.Context(), id)
	if err != nil {
		respondRegisterError(w, err)
		return
	}
	data, err := BuildReceiptPDF(consultation)
	if err != nil {
		http.Error(w, "receipt render error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *Handler) handleRepair(w http.ResponseWriter, r *http.Request) {
	day, err := register.ParseDay(r.URL.Query().Get("date"))
	if err != nil {
		http.Error(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	actor := auth.SubjectFromContext(r.Context())
	changed, err := h.service.Repair(r.Context(), day, actor)
	if err != nil {
		metrics.CountRepair(metrics.ResultError)
		respondRegisterError(w, err)
		return
	}
	metrics.CountRepair(metrics.ResultSuccess)
	writeJSON(w, map[string]any{"date": day.Format("2006-01-02"), "changed": changed})
	h.logAudit(r, "sequence.repair", day.Format("2006-01-02"), map[string]any{"changed": changed})
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
		ResourceType: "consultation",
		ResourceID:   resourceID,
		Metadata:     meta,
		IP:           audit.ClientIP(r),
		UserAgent:    r.UserAgent(),
	})
}

type consultationView struct {
	ID             string                 `json:"id"`
	Date           string                 `json:"date"`
	Category       string                 `json:"category"`
	Channel        string                 `json:"channel"`
	SequenceNumber *int                   `json:"sequence_number,omitempty"`
	Cancelled      bool                   `json:"cancelled"`
	Cancellation   *register.Cancellation `json:"cancellation,omitempty"`
	Items          []register.LineItem    `json:"items"`
	AdjunctFees    []register.AdjunctFee  `json:"adjunct_fees,omitempty"`
	Total          decimal.Decimal        `json:"total"`
}

func viewOf(consultation *register.Consultation) consultationView {
	view := consultationView{
		ID:          consultation.ID().String(),
		Date:        consultation.DayStart().Format("2006-01-02"),
		Category:    string(consultation.Category()),
		Channel:     string(consultation.Channel()),
		Cancelled:   consultation.IsCancelled(),
		Items:       consultation.LineItems(),
		AdjunctFees: consultation.AdjunctFees(),
		Total:       consultation.Total(),
	}
	if seq, ok := consultation.SequenceNumber(); ok {
		view.SequenceNumber = &seq
	}
	if cancellation, ok := consultation.Cancellation(); ok {
		view.Cancellation = &cancellation
	}
	return view
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}

func respondRegisterError(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	var seqErr *register.SequenceError
	switch {
	case errors.Is(err, register.ErrNotFound), errors.Is(err, register.ErrItemNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.As(err, &seqErr):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, register.ErrAlreadyCancelled):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, register.ErrFutureDay),
		errors.Is(err, register.ErrInvalidDay),
		errors.Is(err, register.ErrInvalidChannel),
		errors.Is(err, register.ErrInvalidCategory),
		errors.Is(err, register.ErrNegativeAmount),
		errors.Is(err, register.ErrEmptyDescription),
		errors.Is(err, register.ErrEmptyReason),
		errors.Is(err, register.ErrEmptyActor),
		errors.Is(err, register.ErrCancelled),
		errors.Is(err, register.ErrAdjunctFeeOnRegular):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
