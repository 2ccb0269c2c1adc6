package services

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/jmoiron/sqlx"

	"market/internal/authority"
	"market/internal/common"
	"market/internal/models"
	"market/internal/money"
	"market/internal/store"
	"market/internal/websocket"
)

type fakeTxRunner struct {
	err error
}

func (f fakeTxRunner) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	if f.err != nil {
		return f.err
	}
	return fn(nil)
}

// memAccounts mirrors the conditional update semantics of store.AccountStore.
type memAccounts struct {
	mu     sync.Mutex
	byID   map[string]models.Account
	getErr error
}

func newMemAccounts(accounts ...models.Account) *memAccounts {
	m := &memAccounts{byID: map[string]models.Account{}}
	for _, account := range accounts {
		m.byID[account.ID] = account
	}
	return m
}

func (m *memAccounts) Create(_ context.Context, _ store.Execer, account models.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.byID {
		if existing.Handle == account.Handle {
			return common.ErrDuplicateHandle
		}
	}
	m.byID[account.ID] = account
	return nil
}

func (m *memAccounts) GetByHandle(_ context.Context, handle string) (models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return models.Account{}, m.getErr
	}
	for _, account := range m.byID {
		if account.Handle == handle {
			return account, nil
		}
	}
	return models.Account{}, common.ErrNotFound
}

func (m *memAccounts) GetByID(_ context.Context, accountID string) (models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return models.Account{}, m.getErr
	}
	account, ok := m.byID[accountID]
	if !ok {
		return models.Account{}, common.ErrNotFound
	}
	return account, nil
}

func (m *memAccounts) GetForUpdate(ctx context.Context, _ store.Getter, accountID string) (models.Account, error) {
	return m.GetByID(ctx, accountID)
}

func (m *memAccounts) AdjustBalance(_ context.Context, _ store.Getter, accountID string, delta int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.byID[accountID]
	if !ok {
		return 0, common.ErrNotFound
	}
	next, err := money.CheckedAdd(account.Balance, delta)
	if err != nil {
		return 0, err
	}
	if next < 0 {
		return 0, common.ErrInsufficientFunds
	}
	account.Balance = next
	m.byID[accountID] = account
	return next, nil
}

func (m *memAccounts) Delete(_ context.Context, _ store.Execer, accountID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[accountID]; !ok {
		return common.ErrNotFound
	}
	delete(m.byID, accountID)
	return nil
}

func (m *memAccounts) List(context.Context, int, int) ([]models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Account, 0, len(m.byID))
	for _, account := range m.byID {
		out = append(out, account)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Handle < out[j].Handle })
	return out, nil
}

func (m *memAccounts) balance(t *testing.T, accountID string) int64 {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.byID[accountID]
	if !ok {
		t.Fatalf("account %s missing", accountID)
	}
	return account.Balance
}

func (m *memAccounts) total() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var sum int64
	for _, account := range m.byID {
		sum += account.Balance
	}
	return sum
}

type memRoles struct {
	accounts *memAccounts
}

func (r memRoles) HasElevated(context.Context) (bool, error) {
	r.accounts.mu.Lock()
	defer r.accounts.mu.Unlock()
	for _, account := range r.accounts.byID {
		if account.Elevated() {
			return true, nil
		}
	}
	return false, nil
}

func (r memRoles) SetRole(_ context.Context, _ store.Execer, accountID string, role models.Role) error {
	r.accounts.mu.Lock()
	defer r.accounts.mu.Unlock()
	account, ok := r.accounts.byID[accountID]
	if !ok {
		return common.ErrNotFound
	}
	account.Role = role
	r.accounts.byID[accountID] = account
	return nil
}

func (r memRoles) ClearElevated(context.Context, store.Execer) error {
	r.accounts.mu.Lock()
	defer r.accounts.mu.Unlock()
	for id, account := range r.accounts.byID {
		if account.Elevated() {
			account.Role = models.RoleStandard
			r.accounts.byID[id] = account
		}
	}
	return nil
}

type memLedger struct {
	mu        sync.Mutex
	entries   []models.LedgerEntry
	insertErr error
}

func (l *memLedger) InsertEntries(_ context.Context, _ store.Execer, entries []models.LedgerEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.insertErr != nil {
		return l.insertErr
	}
	l.entries = append(l.entries, entries...)
	return nil
}

func (l *memLedger) ListByAccount(_ context.Context, accountID string, _, _ int) ([]models.LedgerEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := []models.LedgerEntry{}
	for _, entry := range l.entries {
		if entry.AccountID == accountID {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (l *memLedger) Reconcile(context.Context) ([]models.Reconciliation, error) {
	return []models.Reconciliation{}, nil
}

func (l *memLedger) all() []models.LedgerEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]models.LedgerEntry(nil), l.entries...)
}

type memTransactions struct {
	mu   sync.Mutex
	rows []models.Transaction
}

func (m *memTransactions) Create(_ context.Context, _ store.Execer, txn models.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, txn)
	return nil
}

func (m *memTransactions) ListAll(context.Context, int, int) ([]models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Transaction(nil), m.rows...), nil
}

func (m *memTransactions) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

type memAudit struct {
	mu   sync.Mutex
	logs []models.AuditLog
}

func (m *memAudit) Log(_ context.Context, _ store.Execer, entry models.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, entry)
	return nil
}

func (m *memAudit) List(context.Context, int, int) ([]models.AuditLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.AuditLog(nil), m.logs...), nil
}

func (m *memAudit) actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.logs))
	for _, entry := range m.logs {
		out = append(out, entry.Action)
	}
	return out
}

type stubListingStore struct {
	deleteFn func(ctx context.Context, tx store.Execer, listingID string) error
}

func (s stubListingStore) Delete(ctx context.Context, tx store.Execer, listingID string) error {
	if s.deleteFn == nil {
		return nil
	}
	return s.deleteFn(ctx, tx, listingID)
}

func (s stubListingStore) CountBySeller(context.Context, string) (int, error) {
	return 0, nil
}

type stubReportStore struct {
	listFn func(ctx context.Context, limit, offset int) ([]models.Report, error)
}

func (s stubReportStore) List(ctx context.Context, limit, offset int) ([]models.Report, error) {
	if s.listFn == nil {
		return []models.Report{}, nil
	}
	return s.listFn(ctx, limit, offset)
}

type recordingNotifier struct {
	mu      sync.Mutex
	updates map[string][]websocket.BalanceUpdate
}

func (n *recordingNotifier) NotifyBalance(accountID string, update websocket.BalanceUpdate) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.updates == nil {
		n.updates = map[string][]websocket.BalanceUpdate{}
	}
	n.updates[accountID] = append(n.updates[accountID], update)
}

func (n *recordingNotifier) last(accountID string) (websocket.BalanceUpdate, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	updates := n.updates[accountID]
	if len(updates) == 0 {
		return websocket.BalanceUpdate{}, false
	}
	return updates[len(updates)-1], true
}

var (
	aliceAccount = models.Account{ID: "acc-alice", Handle: "alice", Balance: 10000, Role: models.RoleStandard}
	bobAccount   = models.Account{ID: "acc-bob", Handle: "bob", Balance: 10000, Role: models.RoleStandard}
	adminAccount = models.Account{ID: "acc-admin", Handle: "admin", Balance: 10000, Role: models.RoleElevated}
)

func identityOf(account models.Account) authority.Identity {
	return authority.Identity{AccountID: account.ID, Handle: account.Handle, Role: account.Role, SessionID: "sess-" + account.ID}
}

type fixture struct {
	accounts *memAccounts
	ledger   *memLedger
	txns     *memTransactions
	audit    *memAudit
	notifier *recordingNotifier
	service  *LedgerService
}

func newLedgerFixture(accounts ...models.Account) *fixture {
	if len(accounts) == 0 {
		accounts = []models.Account{aliceAccount, bobAccount, adminAccount}
	}
	f := &fixture{
		accounts: newMemAccounts(accounts...),
		ledger:   &memLedger{},
		txns:     &memTransactions{},
		audit:    &memAudit{},
		notifier: &recordingNotifier{},
	}
	f.service = NewLedgerService(fakeTxRunner{}, f.accounts, f.ledger, f.txns, f.audit, f.notifier, nil, LedgerConfig{
		GrantAmount:         10000,
		ElevatedGrantAmount: 1000000,
	})
	return f
}
