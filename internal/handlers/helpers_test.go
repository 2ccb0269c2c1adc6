package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"market/internal/authority"
	"market/internal/common"
	"market/internal/config"
	"market/internal/models"
	"market/internal/services"
	"market/internal/websocket"
)

var (
	aliceIdentity = authority.Identity{AccountID: "acc-alice", Handle: "alice", Role: models.RoleStandard, SessionID: "s-alice"}
	adminIdentity = authority.Identity{AccountID: "acc-admin", Handle: "admin", Role: models.RoleElevated, SessionID: "s-admin"}
)

type stubGuard struct {
	revokeFn func(ctx context.Context, identity authority.Identity) error
}

func (stubGuard) RequireAuthenticated(_ context.Context, token string) (authority.Identity, error) {
	switch token {
	case "alice-token":
		return aliceIdentity, nil
	case "admin-token":
		return adminIdentity, nil
	case "broken-token":
		return authority.Anonymous(), common.ErrStorageUnavailable
	}
	return authority.Anonymous(), common.ErrUnauthenticated
}

func (s stubGuard) Revoke(ctx context.Context, identity authority.Identity) error {
	if s.revokeFn == nil {
		return nil
	}
	return s.revokeFn(ctx, identity)
}

type stubAccountService struct {
	registerFn      func(ctx context.Context, handle, password string) (models.Account, error)
	loginFn         func(ctx context.Context, handle, password string) (string, models.Account, error)
	profileFn       func(ctx context.Context, accountID string) (models.Account, error)
	publicProfileFn func(ctx context.Context, handle string) (services.PublicProfile, error)
}

func (s stubAccountService) Register(ctx context.Context, handle, password string) (models.Account, error) {
	return s.registerFn(ctx, handle, password)
}

func (s stubAccountService) Login(ctx context.Context, handle, password string) (string, models.Account, error) {
	return s.loginFn(ctx, handle, password)
}

func (s stubAccountService) Profile(ctx context.Context, accountID string) (models.Account, error) {
	return s.profileFn(ctx, accountID)
}

func (s stubAccountService) PublicProfile(ctx context.Context, handle string) (services.PublicProfile, error) {
	return s.publicProfileFn(ctx, handle)
}

type stubLedgerService struct {
	transferFn      func(ctx context.Context, req services.TransferRequest) (services.TransferResult, error)
	grantFn         func(ctx context.Context, accountID string) (int64, error)
	grantElevatedFn func(ctx context.Context, identity authority.Identity) (int64, error)
	balanceFn       func(ctx context.Context, accountID string) (int64, error)
	historyFn       func(ctx context.Context, accountID string, limit, offset int) ([]models.LedgerEntry, error)
}

func (s stubLedgerService) Transfer(ctx context.Context, req services.TransferRequest) (services.TransferResult, error) {
	return s.transferFn(ctx, req)
}

func (s stubLedgerService) Grant(ctx context.Context, accountID string) (int64, error) {
	return s.grantFn(ctx, accountID)
}

func (s stubLedgerService) GrantElevated(ctx context.Context, identity authority.Identity) (int64, error) {
	return s.grantElevatedFn(ctx, identity)
}

func (s stubLedgerService) Balance(ctx context.Context, accountID string) (int64, error) {
	return s.balanceFn(ctx, accountID)
}

func (s stubLedgerService) History(ctx context.Context, accountID string, limit, offset int) ([]models.LedgerEntry, error) {
	return s.historyFn(ctx, accountID, limit, offset)
}

type stubAdminService struct {
	deleteAccountFn    func(ctx context.Context, identity authority.Identity, accountID string) error
	deleteListingFn    func(ctx context.Context, identity authority.Identity, listingID string) error
	listAccountsFn     func(ctx context.Context, identity authority.Identity, limit, offset int) ([]models.Account, error)
	listReportsFn      func(ctx context.Context, identity authority.Identity, limit, offset int) ([]models.Report, error)
	listAuditFn        func(ctx context.Context, identity authority.Identity, limit, offset int) ([]models.AuditLog, error)
	listTransactionsFn func(ctx context.Context, identity authority.Identity, limit, offset int) ([]models.Transaction, error)
	reconcileFn        func(ctx context.Context, identity authority.Identity) ([]models.Reconciliation, error)
}

func (s stubAdminService) DeleteAccount(ctx context.Context, identity authority.Identity, accountID string) error {
	return s.deleteAccountFn(ctx, identity, accountID)
}

func (s stubAdminService) DeleteListing(ctx context.Context, identity authority.Identity, listingID string) error {
	return s.deleteListingFn(ctx, identity, listingID)
}

func (s stubAdminService) ListAccounts(ctx context.Context, identity authority.Identity, limit, offset int) ([]models.Account, error) {
	return s.listAccountsFn(ctx, identity, limit, offset)
}

func (s stubAdminService) ListReports(ctx context.Context, identity authority.Identity, limit, offset int) ([]models.Report, error) {
	return s.listReportsFn(ctx, identity, limit, offset)
}

func (s stubAdminService) ListAudit(ctx context.Context, identity authority.Identity, limit, offset int) ([]models.AuditLog, error) {
	return s.listAuditFn(ctx, identity, limit, offset)
}

func (s stubAdminService) ListTransactions(ctx context.Context, identity authority.Identity, limit, offset int) ([]models.Transaction, error) {
	return s.listTransactionsFn(ctx, identity, limit, offset)
}

func (s stubAdminService) Reconcile(ctx context.Context, identity authority.Identity) ([]models.Reconciliation, error) {
	return s.reconcileFn(ctx, identity)
}

type testDeps struct {
	guard    stubGuard
	accounts stubAccountService
	ledger   stubLedgerService
	admin    stubAdminService
	metrics  http.Handler
}

func newTestRouter(deps testDeps) http.Handler {
	cfg := config.Config{AllowedOrigins: "http://localhost:3000"}
	return New(cfg, deps.guard, deps.accounts, deps.ledger, deps.admin, websocket.NewHub(4, nil), deps.metrics).Routes()
}

func doRequest(t *testing.T, router http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		encoded, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	body := map[string]any{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body
}
