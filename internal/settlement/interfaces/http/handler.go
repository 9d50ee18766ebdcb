package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"clinic-register/internal/audit"
	"clinic-register/internal/auth"
	"clinic-register/internal/observability/metrics"
	register "clinic-register/internal/register/domain"
	settlementapp "clinic-register/internal/settlement/application"
	settlement "clinic-register/internal/settlement/domain"
)

// Handler provides settlement HTTP endpoints.
type Handler struct {
	service     *settlementapp.Service
	auditLogger audit.Logger
	clinicName  string
	currency    string
}

// NewHandler constructs a handler. Clinic name and currency decorate
// exported documents.
func NewHandler(service *settlementapp.Service, auditLogger audit.Logger, clinicName, currency string) (*Handler, error) {
	if service == nil {
		return nil, errors.New("settlement handler: nil service")
	}
	return &Handler{service: service, auditLogger: auditLogger, clinicName: clinicName, currency: currency}, nil
}

// ServeHTTP handles /api/v1/settlements and subroutes.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	switch {
	case path == "/api/v1/settlements/daily" && r.Method == http.MethodGet:
		h.handleDaily(w, r)
	case path == "/api/v1/settlements/daily/export.xlsx" && r.Method == http.MethodGet:
		h.handleExport(w, r, formatXLSX)
	case path == "/api/v1/settlements/daily/export.pdf" && r.Method == http.MethodGet:
		h.handleExport(w, r, formatPDF)
	case path == "/api/v1/settlements/close" && r.Method == http.MethodPost:
		h.handleClose(w, r)
	case path == "/api/v1/settlements" && r.Method == http.MethodGet:
		h.handleHistory(w, r)
	case strings.HasPrefix(path, "/api/v1/settlements/"):
		h.handleByID(w, r, strings.TrimPrefix(path, "/api/v1/settlements/"))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// countedFromQuery reads optional in-progress count amounts so the daily
// view can show a live reconciliation before the close.
func countedFromQuery(r *http.Request) (settlement.Counted, error) {
	var counted settlement.Counted
	read := func(key string, dst *decimal.NullDecimal) error {
		raw := r.URL.Query().Get(key)
		if raw == "" {
			return nil
		}
		value, err := decimal.NewFromString(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = decimal.NullDecimal{Decimal: value, Valid: true}
		return nil
	}
	if err := read("counted_cash", &counted.Cash); err != nil {
		return counted, err
	}
	if err := read("counted_card", &counted.Card); err != nil {
		return counted, err
	}
	if err := read("counted_deposit", &counted.Deposit); err != nil {
		return counted, err
	}
	return counted, nil
}

func (h *Handler) handleDaily(w http.ResponseWriter, r *http.Request) {
	day, err := register.ParseDay(r.URL.Query().Get("date"))
	if err != nil {
		http.Error(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	counted, err := countedFromQuery(r)
	if err != nil {
		http.Error(w, "invalid counted amount", http.StatusBadRequest)
		return
	}
	report, err := h.service.DailyReport(r.Context(), day, counted)
	if err != nil {
		respondSettlementError(w, err)
		return
	}
	writeJSON(w, report)
}

func (h *Handler) handleClose(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Date           string              `json:"date"`
		CountedCash    decimal.NullDecimal `json:"counted_cash"`
		CountedCard    decimal.NullDecimal `json:"counted_card"`
		CountedDeposit decimal.NullDecimal `json:"counted_deposit"`
		Observations   string              `json:"observations"`
		Amend          bool                `json:"amend"`
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

	record, err := h.service.Close(r.Context(), settlementapp.CloseRequest{
		DayStart: day,
		Counted: settlement.Counted{
			Cash:    req.CountedCash,
			Card:    req.CountedCard,
			Deposit: req.CountedDeposit,
		},
		Observations: req.Observations,
		ClosedBy:     auth.SubjectFromContext(r.Context()),
		Amend:        req.Amend,
	})
	if err != nil {
		metrics.CountClose(metrics.ResultError)
		respondSettlementError(w, err)
		return
	}
	metrics.CountClose(metrics.ResultSuccess)
	metrics.ObserveOutcome(string(record.Overall))
	for _, result := range record.Results {
		if result.Status == settlement.StatusMismatch {
			abs, _ := result.Difference.Abs().Float64()
			metrics.ObserveDiscrepancy(abs)
		}
	}
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, record)
	h.logAudit(r, "settlement.close", record.ID, map[string]any{
		"day":     record.DayStart.Format("2006-01-02"),
		"version": record.Version,
		"overall": string(record.Overall),
	})
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	day, err := register.ParseDay(r.URL.Query().Get("date"))
	if err != nil {
		http.Error(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	records, err := h.service.History(r.Context(), day)
	if err != nil {
		respondSettlementError(w, err)
		return
	}
	if records == nil {
		records = []settlement.Record{}
	}
	writeJSON(w, records)
}

func (h *Handler) handleByID(w http.ResponseWriter, r *http.Request, rest string) {
	parts := strings.Split(rest, "/")
	id := parts[0]
	if id == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		h.handleGet(w, r, id)
	case len(parts) == 2 && parts[1] == "void" && r.Method == http.MethodPost:
		h.handleVoid(w, r, id)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request, id string) {
	record, err := h.service.Get(r.Context(), id)
	if err != nil {
		respondSettlementError(w, err)
		return
	}
	writeJSON(w, record)
}

func (h *Handler) handleVoid(w http.ResponseWriter, r *http.Request, id string) {
	var req struct {
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	actor := auth.SubjectFromContext(r.Context())
	record, err := h.service.Void(r.Context(), id, req.Reason, actor)
	if err != nil {
		respondSettlementError(w, err)
		return
	}
	writeJSON(w, record)
	h.logAudit(r, "settlement.void", id, map[string]any{"reason": req.Reason})
}

type exportFormat string

const (
	formatXLSX exportFormat = "xlsx"
	formatPDF  exportFormat = "pdf"
)

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request, format exportFormat) {
	day, err := register.ParseDay(r.URL.Query().Get("date"))
	if err != nil {
		http.Error(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	report, err := h.service.DailyReport(r.Context(), day, settlement.Counted{})
	if err != nil {
		respondSettlementError(w, err)
		return
	}

	var data []byte
	switch format {
	case formatXLSX:
		data, err = BuildReportXLSX(report, h.clinicName, h.currency)
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	default:
		data, err = BuildReportPDF(report, h.clinicName, h.currency)
		w.Header().Set("Content-Type", "application/pdf")
	}
	if err != nil {
		metrics.CountExport(string(format), metrics.ResultError)
		http.Error(w, "export render error", http.StatusInternalServerError)
		return
	}
	metrics.CountExport(string(format), metrics.ResultSuccess)
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=settlement-%s.%s", day.Format("2006-01-02"), format))
	_, _ = w.Write(data)
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
		ResourceType: "settlement",
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

func respondSettlementError(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, settlement.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, settlement.ErrAlreadyClosed), errors.Is(err, settlement.ErrVoided):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, settlement.ErrInvalidDay),
		errors.Is(err, settlement.ErrFutureDay),
		errors.Is(err, settlement.ErrMissingCounted),
		errors.Is(err, settlement.ErrNegativeCounted),
		errors.Is(err, settlement.ErrEmptyClosedBy),
		errors.Is(err, settlement.ErrEmptyVoidReason):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
