package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vaultline/ledgerd/internal/adapter/http/dto"
	"github.com/vaultline/ledgerd/internal/domain"
	"github.com/vaultline/ledgerd/internal/usecase"
)

// idempotencyKeyHeader carries the caller's idempotency key; a key in the
// request body takes precedence when both are present.
const idempotencyKeyHeader = "Idempotency-Key"

// PostingService exposes the posting engine to the transaction handler.
type PostingService interface {
	Submit(ctx context.Context, input usecase.PostTransactionInput) (*usecase.PostResult, error)
}

// TransactionReader serves transaction reads.
type TransactionReader interface {
	GetTransaction(ctx context.Context, id string) (*domain.Transaction, error)
}

// TransactionHandler handles transaction-related HTTP requests.
type TransactionHandler struct {
	posting PostingService
	reader  TransactionReader
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(posting PostingService, reader TransactionReader) *TransactionHandler {
	return &TransactionHandler{posting: posting, reader: reader}
}

// Create posts a balanced entry set. A replayed idempotent submission
// returns 200 with the original transaction instead of 201.
func (h *TransactionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.PostTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if req.IdempotencyKey == "" {
		req.IdempotencyKey = r.Header.Get(idempotencyKeyHeader)
	}

	result, err := h.posting.Submit(r.Context(), req.ToUseCaseInput())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	status := http.StatusCreated
	if result.Replayed {
		status = http.StatusOK
	}

	writeJSON(w, status, dto.TransactionFromDomain(result.Transaction, result.Replayed))
}

// Get retrieves a transaction by ID.
func (h *TransactionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing transaction ID", "")
		return
	}

	txn, err := h.reader.GetTransaction(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.TransactionFromDomain(txn, false))
}
