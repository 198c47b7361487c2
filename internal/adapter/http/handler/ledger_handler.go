package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vaultline/ledgerd/internal/adapter/http/dto"
	"github.com/vaultline/ledgerd/internal/domain"
	"github.com/vaultline/ledgerd/internal/usecase"
)

// LedgerService serves entry listings and the consistency check.
type LedgerService interface {
	ListEntriesByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.Entry, error)
	CheckConsistency(ctx context.Context) (*usecase.ConsistencyResult, error)
}

// LedgerHandler handles ledger-wide HTTP requests.
type LedgerHandler struct {
	ledgerUC LedgerService
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(ledgerUC LedgerService) *LedgerHandler {
	return &LedgerHandler{ledgerUC: ledgerUC}
}

// ListEntriesByAccount lists an account's posted entries.
func (h *LedgerHandler) ListEntriesByAccount(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing account ID", "")
		return
	}

	limit := parseIntQuery(r, "limit", usecase.DefaultPageSize)
	offset := parseIntQuery(r, "offset", 0)

	entries, err := h.ledgerUC.ListEntriesByAccount(r.Context(), id, limit, offset)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.EntriesFromDomain(entries))
}

// CheckConsistency runs the ledger-wide zero-sum check. An inconsistent
// ledger answers 409 with the sums, so monitors can alert on the response
// code alone.
func (h *LedgerHandler) CheckConsistency(w http.ResponseWriter, r *http.Request) {
	result, err := h.ledgerUC.CheckConsistency(r.Context())
	if err != nil && !errors.Is(err, usecase.ErrInconsistentLedger) {
		writeDomainError(w, err)
		return
	}

	status := http.StatusOK
	if result != nil && !result.Consistent {
		status = http.StatusConflict
	}

	writeJSON(w, status, dto.ConsistencyResponse{
		Consistent:   result.Consistent,
		TotalBalance: result.TotalBalance,
		TotalEntries: result.TotalEntries,
		CheckedAt:    result.CheckedAt,
	})
}
