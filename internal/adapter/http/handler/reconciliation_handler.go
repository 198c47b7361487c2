package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vaultline/ledgerd/internal/adapter/http/dto"
	"github.com/vaultline/ledgerd/internal/usecase"
)

// ReconciliationService replays the audit log and reports drift.
type ReconciliationService interface {
	ReconcileAll(ctx context.Context) (*usecase.Report, error)
	ReconcileAccount(ctx context.Context, accountID string) (*usecase.AccountDrift, error)
	BalanceAtSequence(ctx context.Context, accountID string, seq int64) (*usecase.BalanceView, error)
}

// ReconciliationHandler handles reconciliation HTTP requests.
type ReconciliationHandler struct {
	reconUC ReconciliationService
}

// NewReconciliationHandler creates a new ReconciliationHandler.
func NewReconciliationHandler(reconUC ReconciliationService) *ReconciliationHandler {
	return &ReconciliationHandler{reconUC: reconUC}
}

// Run replays the whole audit log and compares every account.
func (h *ReconciliationHandler) Run(w http.ResponseWriter, r *http.Request) {
	report, err := h.reconUC.ReconcileAll(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ReconciliationFromDomain(report))
}

// RunAccount replays the audit log for a single account.
func (h *ReconciliationHandler) RunAccount(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing account ID", "")
		return
	}

	drift, err := h.reconUC.ReconcileAccount(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.DriftFromDomain(drift))
}

// BalanceHistory reconstructs an account's balance as of an audit sequence.
func (h *ReconciliationHandler) BalanceHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing account ID", "")
		return
	}

	seq := parseInt64Query(r, "sequence", 0)
	if seq < 0 {
		writeError(w, http.StatusBadRequest, "invalid sequence", "sequence must be a non-negative integer")
		return
	}

	view, err := h.reconUC.BalanceAtSequence(r.Context(), id, seq)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.BalanceFromView(view))
}
