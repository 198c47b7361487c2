package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/vaultline/ledgerd/internal/adapter/http/dto"
	"github.com/vaultline/ledgerd/internal/domain"
	"github.com/vaultline/ledgerd/internal/usecase"
)

// AuditService serves the append-only audit log.
type AuditService interface {
	List(ctx context.Context, fromSequence int64, limit int) ([]*domain.AuditRecord, error)
	VerifyChain(ctx context.Context) (*usecase.ChainReport, error)
}

// AuditHandler handles audit log HTTP requests.
type AuditHandler struct {
	auditUC AuditService
}

// NewAuditHandler creates a new AuditHandler.
func NewAuditHandler(auditUC AuditService) *AuditHandler {
	return &AuditHandler{auditUC: auditUC}
}

// List returns an ordered page of audit records.
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	from := parseInt64Query(r, "from", 1)
	limit := parseIntQuery(r, "limit", usecase.DefaultPageSize)

	records, err := h.auditUC.List(r.Context(), from, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AuditRecordsFromDomain(records))
}

// VerifyChain walks the audit log and checks the hash chain. A broken chain
// answers 409 with the partial report so callers can see how far the chain
// held.
func (h *AuditHandler) VerifyChain(w http.ResponseWriter, r *http.Request) {
	report, err := h.auditUC.VerifyChain(r.Context())
	if err != nil {
		if errors.Is(err, domain.ErrAuditChainBroken) && report != nil {
			writeJSON(w, http.StatusConflict, dto.ChainReportResponse{
				Records:   report.Records,
				HeadHash:  report.HeadHash,
				Intact:    report.Intact,
				CheckedAt: report.CheckedAt,
			})
			return
		}

		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ChainReportResponse{
		Records:   report.Records,
		HeadHash:  report.HeadHash,
		Intact:    report.Intact,
		CheckedAt: report.CheckedAt,
	})
}
