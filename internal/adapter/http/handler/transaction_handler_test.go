package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/mock/gomock"

	"github.com/vaultline/ledgerd/internal/adapter/http/dto"
	"github.com/vaultline/ledgerd/internal/adapter/http/handler/mocks"
	"github.com/vaultline/ledgerd/internal/domain"
	"github.com/vaultline/ledgerd/internal/usecase"
)

func postingRequestBody(t *testing.T, key string) *bytes.Reader {
	t.Helper()

	body, err := json.Marshal(dto.PostTransactionRequest{
		IdempotencyKey: key,
		Currency:       "USD",
		Entries: []dto.EntryItem{
			{AccountID: "acc-a", Amount: -500, Direction: "debit"},
			{AccountID: "acc-b", Amount: 500, Direction: "credit"},
		},
	})
	if err != nil {
		t.Fatalf("failed to marshal request: %v", err)
	}

	return bytes.NewReader(body)
}

func TestTransactionHandler_Create_Posted(t *testing.T) {
	ctrl := gomock.NewController(t)

	posting := mocks.NewMockPostingService(ctrl)
	posting.EXPECT().
		Submit(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ any, input usecase.PostTransactionInput) (*usecase.PostResult, error) {
			if input.IdempotencyKey != "key-1" {
				t.Fatalf("expected key-1, got %s", input.IdempotencyKey)
			}
			if len(input.Entries) != 2 {
				t.Fatalf("expected 2 entries, got %d", len(input.Entries))
			}
			return &usecase.PostResult{
				Transaction: &domain.Transaction{
					ID:             "txn-1",
					Currency:       "USD",
					Status:         domain.TransactionStatusPosted,
					IdempotencyKey: "key-1",
				},
			}, nil
		})

	handler := NewTransactionHandler(posting, mocks.NewMockTransactionReader(ctrl))

	req := httptest.NewRequest(http.MethodPost, "/transactions", postingRequestBody(t, "key-1"))
	rec := httptest.NewRecorder()

	handler.Create(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp dto.TransactionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.ID != "txn-1" || resp.Replayed {
		t.Fatalf("expected fresh txn-1, got %+v", resp)
	}
}

func TestTransactionHandler_Create_ReplayedReturns200(t *testing.T) {
	ctrl := gomock.NewController(t)

	posting := mocks.NewMockPostingService(ctrl)
	posting.EXPECT().
		Submit(gomock.Any(), gomock.Any()).
		Return(&usecase.PostResult{
			Transaction: &domain.Transaction{ID: "txn-1", Status: domain.TransactionStatusPosted},
			Replayed:    true,
		}, nil)

	handler := NewTransactionHandler(posting, mocks.NewMockTransactionReader(ctrl))

	req := httptest.NewRequest(http.MethodPost, "/transactions", postingRequestBody(t, "key-1"))
	rec := httptest.NewRecorder()

	handler.Create(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for replay, got %d", rec.Code)
	}

	var resp dto.TransactionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.Replayed {
		t.Fatal("expected replayed flag set")
	}
}

func TestTransactionHandler_Create_HeaderKeyFallback(t *testing.T) {
	ctrl := gomock.NewController(t)

	posting := mocks.NewMockPostingService(ctrl)
	posting.EXPECT().
		Submit(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ any, input usecase.PostTransactionInput) (*usecase.PostResult, error) {
			if input.IdempotencyKey != "header-key" {
				t.Fatalf("expected header-key, got %q", input.IdempotencyKey)
			}
			return &usecase.PostResult{
				Transaction: &domain.Transaction{ID: "txn-1", Status: domain.TransactionStatusPosted},
			}, nil
		})

	handler := NewTransactionHandler(posting, mocks.NewMockTransactionReader(ctrl))

	req := httptest.NewRequest(http.MethodPost, "/transactions", postingRequestBody(t, ""))
	req.Header.Set("Idempotency-Key", "header-key")
	rec := httptest.NewRecorder()

	handler.Create(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestTransactionHandler_Create_MissingKey(t *testing.T) {
	ctrl := gomock.NewController(t)

	posting := mocks.NewMockPostingService(ctrl)
	posting.EXPECT().
		Submit(gomock.Any(), gomock.Any()).
		Return(nil, domain.ErrIdempotencyKeyRequired)

	handler := NewTransactionHandler(posting, mocks.NewMockTransactionReader(ctrl))

	req := httptest.NewRequest(http.MethodPost, "/transactions", postingRequestBody(t, ""))
	rec := httptest.NewRecorder()

	handler.Create(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestTransactionHandler_Create_RejectionReturns422(t *testing.T) {
	ctrl := gomock.NewController(t)

	posting := mocks.NewMockPostingService(ctrl)
	posting.EXPECT().
		Submit(gomock.Any(), gomock.Any()).
		Return(nil, &domain.Rejection{
			Reason:        domain.ReasonUnbalanced,
			Detail:        "signed amounts sum to 5, want 0",
			TransactionID: "txn-rej",
		})

	handler := NewTransactionHandler(posting, mocks.NewMockTransactionReader(ctrl))

	req := httptest.NewRequest(http.MethodPost, "/transactions", postingRequestBody(t, "key-1"))
	rec := httptest.NewRecorder()

	handler.Create(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp dto.RejectionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Reason != string(domain.ReasonUnbalanced) {
		t.Fatalf("expected UNBALANCED, got %s", resp.Reason)
	}
	if resp.TransactionID != "txn-rej" {
		t.Fatalf("expected rejection transaction ID txn-rej, got %s", resp.TransactionID)
	}
}

func TestTransactionHandler_Create_InFlightReturns409(t *testing.T) {
	ctrl := gomock.NewController(t)

	posting := mocks.NewMockPostingService(ctrl)
	posting.EXPECT().
		Submit(gomock.Any(), gomock.Any()).
		Return(nil, domain.ErrPostingInFlight)

	handler := NewTransactionHandler(posting, mocks.NewMockTransactionReader(ctrl))

	req := httptest.NewRequest(http.MethodPost, "/transactions", postingRequestBody(t, "key-1"))
	rec := httptest.NewRecorder()

	handler.Create(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestTransactionHandler_Create_LockTimeoutReturns503(t *testing.T) {
	ctrl := gomock.NewController(t)

	posting := mocks.NewMockPostingService(ctrl)
	posting.EXPECT().
		Submit(gomock.Any(), gomock.Any()).
		Return(nil, domain.ErrLockTimeout)

	handler := NewTransactionHandler(posting, mocks.NewMockTransactionReader(ctrl))

	req := httptest.NewRequest(http.MethodPost, "/transactions", postingRequestBody(t, "key-1"))
	rec := httptest.NewRecorder()

	handler.Create(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestTransactionHandler_Get(t *testing.T) {
	ctrl := gomock.NewController(t)

	reader := mocks.NewMockTransactionReader(ctrl)
	reader.EXPECT().
		GetTransaction(gomock.Any(), "txn-1").
		Return(&domain.Transaction{ID: "txn-1", Status: domain.TransactionStatusPosted}, nil)

	handler := NewTransactionHandler(mocks.NewMockPostingService(ctrl), reader)

	req := httptest.NewRequest(http.MethodGet, "/transactions/txn-1", nil)
	req = setChiURLParam(req, "id", "txn-1")
	rec := httptest.NewRecorder()

	handler.Get(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestTransactionHandler_Get_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)

	reader := mocks.NewMockTransactionReader(ctrl)
	reader.EXPECT().
		GetTransaction(gomock.Any(), "txn-x").
		Return(nil, domain.ErrTransactionNotFound)

	handler := NewTransactionHandler(mocks.NewMockPostingService(ctrl), reader)

	req := httptest.NewRequest(http.MethodGet, "/transactions/txn-x", nil)
	req = setChiURLParam(req, "id", "txn-x")
	rec := httptest.NewRecorder()

	handler.Get(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
