package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/mock/gomock"

	"github.com/vaultline/ledgerd/internal/adapter/http/dto"
	"github.com/vaultline/ledgerd/internal/adapter/http/handler/mocks"
	"github.com/vaultline/ledgerd/internal/domain"
	"github.com/vaultline/ledgerd/internal/usecase"
)

func TestReconciliationHandler_Run(t *testing.T) {
	ctrl := gomock.NewController(t)

	svc := mocks.NewMockReconciliationService(ctrl)
	svc.EXPECT().
		ReconcileAll(gomock.Any()).
		Return(&usecase.Report{
			TotalAccounts:      3,
			ReconciledAccounts: 2,
			Discrepancies: []*usecase.AccountDrift{
				{
					AccountID:       "acc-b",
					Currency:        "USD",
					RecordedBalance: 9999,
					ReplayedBalance: 500,
					Drift:           9499,
					DisplayRecorded: decimal.New(9999, -2),
					DisplayReplayed: decimal.New(500, -2),
				},
			},
			ReplayedRecords: 12,
			CheckedAt:       time.Now().UTC(),
		}, nil)

	handler := NewReconciliationHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/reconciliation/run", nil)
	rec := httptest.NewRecorder()

	handler.Run(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp dto.ReconciliationResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.TotalAccounts != 3 || resp.ReconciledAccounts != 2 {
		t.Fatalf("expected 3 accounts 2 reconciled, got %+v", resp)
	}
	if len(resp.Discrepancies) != 1 {
		t.Fatalf("expected 1 discrepancy, got %d", len(resp.Discrepancies))
	}
	if resp.Discrepancies[0].DisplayRecorded != "99.99" {
		t.Fatalf("expected display 99.99, got %s", resp.Discrepancies[0].DisplayRecorded)
	}
}

func TestReconciliationHandler_RunAccount(t *testing.T) {
	ctrl := gomock.NewController(t)

	svc := mocks.NewMockReconciliationService(ctrl)
	svc.EXPECT().
		ReconcileAccount(gomock.Any(), "acc-1").
		Return(&usecase.AccountDrift{
			AccountID:        "acc-1",
			Currency:         "USD",
			RecordedBalance:  500,
			ReplayedBalance:  500,
			DisplayRecorded:  decimal.New(500, -2),
			DisplayReplayed:  decimal.New(500, -2),
			Reconciled:       true,
			LastAuditApplied: 6,
		}, nil)

	handler := NewReconciliationHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/reconciliation/accounts/acc-1", nil)
	req = setChiURLParam(req, "id", "acc-1")
	rec := httptest.NewRecorder()

	handler.RunAccount(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp dto.DriftResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.Reconciled || resp.LastAuditApplied != 6 {
		t.Fatalf("expected reconciled account as of seq 6, got %+v", resp)
	}
}

func TestReconciliationHandler_BalanceHistory(t *testing.T) {
	ctrl := gomock.NewController(t)

	svc := mocks.NewMockReconciliationService(ctrl)
	svc.EXPECT().
		BalanceAtSequence(gomock.Any(), "acc-1", int64(7)).
		Return(&usecase.BalanceView{
			AccountID:    "acc-1",
			Balance:      1500,
			Currency:     "USD",
			AsOfSequence: 7,
		}, nil)

	handler := NewReconciliationHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/reconciliation/accounts/acc-1/balance?sequence=7", nil)
	req = setChiURLParam(req, "id", "acc-1")
	rec := httptest.NewRecorder()

	handler.BalanceHistory(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp dto.BalanceResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Balance != 1500 || resp.AsOfSequence != 7 {
		t.Fatalf("expected balance 1500 as of seq 7, got %+v", resp)
	}
}

func TestReconciliationHandler_BalanceHistory_NegativeSequence(t *testing.T) {
	ctrl := gomock.NewController(t)

	svc := mocks.NewMockReconciliationService(ctrl)

	handler := NewReconciliationHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/reconciliation/accounts/acc-1/balance?sequence=-3", nil)
	req = setChiURLParam(req, "id", "acc-1")
	rec := httptest.NewRecorder()

	handler.BalanceHistory(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestReconciliationHandler_RunAccount_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)

	svc := mocks.NewMockReconciliationService(ctrl)
	svc.EXPECT().
		ReconcileAccount(gomock.Any(), "acc-x").
		Return(nil, domain.ErrAccountNotFound)

	handler := NewReconciliationHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/reconciliation/accounts/acc-x", nil)
	req = setChiURLParam(req, "id", "acc-x")
	rec := httptest.NewRecorder()

	handler.RunAccount(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
