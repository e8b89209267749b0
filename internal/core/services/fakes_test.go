package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/sahelpay/sahelpay/internal/apperrors"
	"github.com/sahelpay/sahelpay/internal/core/domain"
	"github.com/sahelpay/sahelpay/internal/core/ports"
	portsrepo "github.com/sahelpay/sahelpay/internal/core/ports/repositories"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// The service tests run against stateful in-memory repositories so the full
// orchestration path executes for real, including balance derivation and the
// idempotency protocol.

// --- ledger ---

type memLedgerRepo struct {
	mu           sync.Mutex
	entries      []domain.LedgerEntry
	transactions map[string]domain.Transaction

	// onLock, when set, runs at lock acquisition. Tests use it to slip a
	// competing write in just before the locked section reads balances.
	onLock func(account domain.LedgerAccountRef)
}

var _ portsrepo.LedgerRepositoryWithLock = (*memLedgerRepo)(nil)

func newMemLedgerRepo() *memLedgerRepo {
	return &memLedgerRepo{transactions: make(map[string]domain.Transaction)}
}

func (r *memLedgerRepo) AppendTransaction(_ context.Context, tx domain.Transaction, entries []domain.LedgerEntry) error {
	if err := domain.ValidateEntriesBalance(entries); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.transactions[tx.TransactionID]; exists {
		return fmt.Errorf("%w: transaction %s", apperrors.ErrDuplicate, tx.TransactionID)
	}
	r.transactions[tx.TransactionID] = tx
	r.entries = append(r.entries, entries...)
	return nil
}

func (r *memLedgerRepo) WithAccountLock(ctx context.Context, account domain.LedgerAccountRef, fn func(ctx context.Context, locked portsrepo.LedgerRepositoryFacade) error) error {
	if r.onLock != nil {
		r.onLock(account)
	}
	return fn(ctx, r)
}

func (r *memLedgerRepo) FindEntriesByAccount(_ context.Context, account domain.LedgerAccountRef) ([]domain.LedgerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.LedgerEntry
	for _, e := range r.entries {
		if e.Account == account {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *memLedgerRepo) FindEntriesByTransactionID(_ context.Context, transactionID string) ([]domain.LedgerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.LedgerEntry
	for _, e := range r.entries {
		if e.TransactionID == transactionID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *memLedgerRepo) FindEntriesByTransactionIDs(_ context.Context, transactionIDs []string) (map[string][]domain.LedgerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	wanted := make(map[string]bool, len(transactionIDs))
	for _, id := range transactionIDs {
		wanted[id] = true
	}
	out := make(map[string][]domain.LedgerEntry)
	for _, e := range r.entries {
		if wanted[e.TransactionID] {
			out[e.TransactionID] = append(out[e.TransactionID], e)
		}
	}
	return out, nil
}

func (r *memLedgerRepo) FindTransactionByID(_ context.Context, transactionID string) (*domain.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tx, ok := r.transactions[transactionID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &tx, nil
}

func (r *memLedgerRepo) FindTransactionsByIDs(_ context.Context, transactionIDs []string) (map[string]domain.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]domain.Transaction)
	for _, id := range transactionIDs {
		if tx, ok := r.transactions[id]; ok {
			out[id] = tx
		}
	}
	return out, nil
}

func (r *memLedgerRepo) FindReversalOf(_ context.Context, originalTransactionID string) (*domain.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, tx := range r.transactions {
		if tx.Type == domain.TxReversal && tx.RelatedTransactionID != nil && *tx.RelatedTransactionID == originalTransactionID {
			found := tx
			return &found, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r *memLedgerRepo) NetBalance(_ context.Context, account domain.LedgerAccountRef) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	net := decimal.Zero
	for _, e := range r.entries {
		if e.Account != account {
			continue
		}
		if e.EntryType == domain.Credit {
			net = net.Add(e.Amount.Decimal())
		} else {
			net = net.Sub(e.Amount.Decimal())
		}
	}
	return net, nil
}

func (r *memLedgerRepo) SumDebitsInWindow(_ context.Context, account domain.LedgerAccountRef, txType domain.TransactionType, from, to time.Time) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sum := decimal.Zero
	for _, e := range r.entries {
		if e.Account != account || e.EntryType != domain.Debit {
			continue
		}
		tx, ok := r.transactions[e.TransactionID]
		if !ok || tx.Type != txType {
			continue
		}
		if tx.CreatedAt.Before(from) || !tx.CreatedAt.Before(to) {
			continue
		}
		sum = sum.Add(e.Amount.Decimal())
	}
	return sum, nil
}

// --- idempotency ---

type memIdemRepo struct {
	mu      sync.Mutex
	records map[string]*domain.IdempotencyRecord
}

var _ portsrepo.IdempotencyRepository = (*memIdemRepo)(nil)

func newMemIdemRepo() *memIdemRepo {
	return &memIdemRepo{records: make(map[string]*domain.IdempotencyRecord)}
}

func (r *memIdemRepo) ClaimOrLoad(_ context.Context, key, requestHash string) (*domain.IdempotencyRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[key]
	if !ok {
		rec = &domain.IdempotencyRecord{
			Key:         key,
			RequestHash: requestHash,
			Status:      domain.IdempotencyClaimed,
			CreatedAt:   time.Now().UTC(),
			UpdatedAt:   time.Now().UTC(),
		}
		r.records[key] = rec
		copied := *rec
		return &copied, nil
	}
	if rec.RequestHash != requestHash {
		return nil, fmt.Errorf("%w: key %s was used with a different payload", apperrors.ErrIdempotencyConflict, key)
	}
	switch rec.Status {
	case domain.IdempotencyCompleted:
		copied := *rec
		return &copied, nil
	case domain.IdempotencyFailed:
		rec.Status = domain.IdempotencyClaimed
		copied := *rec
		return &copied, nil
	default:
		return nil, fmt.Errorf("%w: request for key %s is still in flight", apperrors.ErrIdempotencyConflict, key)
	}
}

func (r *memIdemRepo) Complete(_ context.Context, key, requestHash string, result json.RawMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[key]
	if !ok || rec.RequestHash != requestHash || rec.Status != domain.IdempotencyClaimed {
		return apperrors.ErrIdempotencyConflict
	}
	rec.Status = domain.IdempotencyCompleted
	rec.Result = result
	return nil
}

func (r *memIdemRepo) Fail(_ context.Context, key, requestHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[key]
	if !ok || rec.RequestHash != requestHash || rec.Status != domain.IdempotencyClaimed {
		return apperrors.ErrIdempotencyConflict
	}
	rec.Status = domain.IdempotencyFailed
	rec.Result = nil
	return nil
}

// --- actors ---

type memClientRepo struct {
	clients map[string]domain.Client
}

var _ portsrepo.ClientRepository = (*memClientRepo)(nil)

func newMemClientRepo() *memClientRepo { return &memClientRepo{clients: make(map[string]domain.Client)} }

func (r *memClientRepo) FindClientByID(_ context.Context, clientID string) (*domain.Client, error) {
	c, ok := r.clients[clientID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &c, nil
}

func (r *memClientRepo) SaveClient(_ context.Context, client domain.Client) error {
	r.clients[client.ClientID] = client
	return nil
}

func (r *memClientRepo) ListClients(_ context.Context, limit, offset int) ([]domain.Client, error) {
	var out []domain.Client
	for _, c := range r.clients {
		out = append(out, c)
	}
	return out, nil
}

type memMerchantRepo struct {
	merchants map[string]domain.Merchant
}

var _ portsrepo.MerchantRepository = (*memMerchantRepo)(nil)

func newMemMerchantRepo() *memMerchantRepo {
	return &memMerchantRepo{merchants: make(map[string]domain.Merchant)}
}

func (r *memMerchantRepo) FindMerchantByID(_ context.Context, merchantID string) (*domain.Merchant, error) {
	m, ok := r.merchants[merchantID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &m, nil
}

func (r *memMerchantRepo) FindMerchantByCode(_ context.Context, code string) (*domain.Merchant, error) {
	for _, m := range r.merchants {
		if m.Code == code {
			found := m
			return &found, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r *memMerchantRepo) SaveMerchant(_ context.Context, merchant domain.Merchant) error {
	r.merchants[merchant.MerchantID] = merchant
	return nil
}

type memAgentRepo struct {
	agents map[string]domain.Agent
}

var _ portsrepo.AgentRepository = (*memAgentRepo)(nil)

func newMemAgentRepo() *memAgentRepo { return &memAgentRepo{agents: make(map[string]domain.Agent)} }

func (r *memAgentRepo) FindAgentByID(_ context.Context, agentID string) (*domain.Agent, error) {
	a, ok := r.agents[agentID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &a, nil
}

func (r *memAgentRepo) SaveAgent(_ context.Context, agent domain.Agent) error {
	r.agents[agent.AgentID] = agent
	return nil
}

type memTerminalRepo struct {
	terminals map[string]domain.Terminal
}

var _ portsrepo.TerminalRepository = (*memTerminalRepo)(nil)

func newMemTerminalRepo() *memTerminalRepo {
	return &memTerminalRepo{terminals: make(map[string]domain.Terminal)}
}

func (r *memTerminalRepo) FindTerminalByID(_ context.Context, terminalID string) (*domain.Terminal, error) {
	t, ok := r.terminals[terminalID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &t, nil
}

func (r *memTerminalRepo) SaveTerminal(_ context.Context, terminal domain.Terminal) error {
	r.terminals[terminal.TerminalID] = terminal
	return nil
}

type memCardRepo struct {
	cards map[string]domain.Card
}

var _ portsrepo.CardRepository = (*memCardRepo)(nil)

func newMemCardRepo() *memCardRepo { return &memCardRepo{cards: make(map[string]domain.Card)} }

func (r *memCardRepo) FindCardByID(_ context.Context, cardID string) (*domain.Card, error) {
	c, ok := r.cards[cardID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &c, nil
}

func (r *memCardRepo) FindCardByUID(_ context.Context, uid string) (*domain.Card, error) {
	for _, c := range r.cards {
		if c.UID == uid {
			found := c
			return &found, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r *memCardRepo) ExistsCardWithUID(ctx context.Context, uid string) (bool, error) {
	_, err := r.FindCardByUID(ctx, uid)
	if err != nil {
		return false, nil
	}
	return true, nil
}

func (r *memCardRepo) SaveCard(_ context.Context, card domain.Card) error {
	r.cards[card.CardID] = card
	return nil
}

// --- policy ---

type memPolicyRepo struct {
	platform    []domain.PlatformConfig
	fees        map[domain.TransactionType][]domain.FeeConfig
	commissions map[domain.TransactionType][]domain.CommissionConfig
}

var (
	_ portsrepo.PlatformConfigRepository   = (*memPolicyRepo)(nil)
	_ portsrepo.FeeConfigRepository        = (*memPolicyRepo)(nil)
	_ portsrepo.CommissionConfigRepository = (*memPolicyRepo)(nil)
)

func newMemPolicyRepo() *memPolicyRepo {
	return &memPolicyRepo{
		fees:        make(map[domain.TransactionType][]domain.FeeConfig),
		commissions: make(map[domain.TransactionType][]domain.CommissionConfig),
	}
}

func (r *memPolicyRepo) CurrentPlatformConfig(_ context.Context) (*domain.PlatformConfig, error) {
	if len(r.platform) == 0 {
		return nil, apperrors.ErrNotFound
	}
	cfg := r.platform[len(r.platform)-1]
	return &cfg, nil
}

func (r *memPolicyRepo) SavePlatformConfig(_ context.Context, cfg domain.PlatformConfig) error {
	r.platform = append(r.platform, cfg)
	return nil
}

func (r *memPolicyRepo) CurrentFeeConfig(_ context.Context, txType domain.TransactionType) (*domain.FeeConfig, error) {
	versions := r.fees[txType]
	if len(versions) == 0 {
		return nil, apperrors.ErrNotFound
	}
	cfg := versions[len(versions)-1]
	return &cfg, nil
}

func (r *memPolicyRepo) SaveFeeConfig(_ context.Context, cfg domain.FeeConfig) error {
	r.fees[cfg.TransactionType] = append(r.fees[cfg.TransactionType], cfg)
	return nil
}

func (r *memPolicyRepo) CurrentCommissionConfig(_ context.Context, txType domain.TransactionType) (*domain.CommissionConfig, error) {
	versions := r.commissions[txType]
	if len(versions) == 0 {
		return nil, apperrors.ErrNotFound
	}
	cfg := versions[len(versions)-1]
	return &cfg, nil
}

func (r *memPolicyRepo) SaveCommissionConfig(_ context.Context, cfg domain.CommissionConfig) error {
	r.commissions[cfg.TransactionType] = append(r.commissions[cfg.TransactionType], cfg)
	return nil
}

// --- settlements ---

type memSettlementRepo struct {
	payouts map[string]domain.Payout
	refunds map[string]domain.ClientRefund
}

var (
	_ portsrepo.PayoutRepository = (*memSettlementRepo)(nil)
	_ portsrepo.RefundRepository = (*memSettlementRepo)(nil)
)

func newMemSettlementRepo() *memSettlementRepo {
	return &memSettlementRepo{
		payouts: make(map[string]domain.Payout),
		refunds: make(map[string]domain.ClientRefund),
	}
}

func (r *memSettlementRepo) FindPayoutByID(_ context.Context, payoutID string) (*domain.Payout, error) {
	p, ok := r.payouts[payoutID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &p, nil
}

func (r *memSettlementRepo) ExistsRequestedPayoutForMerchant(_ context.Context, merchantID string) (bool, error) {
	for _, p := range r.payouts {
		if p.MerchantID == merchantID && p.Status == domain.SettlementRequested {
			return true, nil
		}
	}
	return false, nil
}

func (r *memSettlementRepo) SavePayout(_ context.Context, payout domain.Payout) error {
	r.payouts[payout.PayoutID] = payout
	return nil
}

func (r *memSettlementRepo) FindRefundByID(_ context.Context, refundID string) (*domain.ClientRefund, error) {
	rf, ok := r.refunds[refundID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &rf, nil
}

func (r *memSettlementRepo) ExistsRequestedRefundForClient(_ context.Context, clientID string) (bool, error) {
	for _, rf := range r.refunds {
		if rf.ClientID == clientID && rf.Status == domain.SettlementRequested {
			return true, nil
		}
	}
	return false, nil
}

func (r *memSettlementRepo) SaveRefund(_ context.Context, refund domain.ClientRefund) error {
	r.refunds[refund.RefundID] = refund
	return nil
}

// --- audit ---

type memAuditPublisher struct {
	mu     sync.Mutex
	events []ports.AuditEvent
}

var _ ports.AuditPublisher = (*memAuditPublisher)(nil)

func (p *memAuditPublisher) Publish(_ context.Context, event ports.AuditEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

// --- shared helpers ---

func seqIDGen() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%04d", n)
	}
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func money(t *testing.T, s string) domain.Money {
	t.Helper()
	m, err := domain.NewMoney(decimal.RequireFromString(s))
	require.NoError(t, err)
	return m
}

func testPlatformConfig(t *testing.T) domain.PlatformConfig {
	t.Helper()
	return domain.PlatformConfig{
		Version:             1,
		MinPerTransaction:   money(t, "1.00"),
		MaxPerTransaction:   money(t, "100000.00"),
		DailyDebitLimit:     money(t, "200000.00"),
		PINAttemptThreshold: 3,
		CardEnrollmentPrice: money(t, "500.00"),
		CreatedAt:           time.Now().UTC(),
	}
}

func testFeeConfig(t *testing.T, txType domain.TransactionType, refundable bool) domain.FeeConfig {
	t.Helper()
	return domain.FeeConfig{
		Version:         1,
		TransactionType: txType,
		Rate:            decimal.RequireFromString("0.02"),
		MinFee:          money(t, "1.00"),
		MaxFee:          money(t, "100.00"),
		Refundable:      refundable,
		CreatedAt:       time.Now().UTC(),
	}
}

// seedBalance books a synthetic balanced transaction crediting the given
// account from the platform bank so tests can start from a known balance.
func seedBalance(t *testing.T, ledger *memLedgerRepo, account domain.LedgerAccountRef, amount string) {
	t.Helper()
	m := money(t, amount)
	txID := fmt.Sprintf("seed-%s-%s", account.OwnerRef, amount)
	now := time.Now().UTC().Add(-48 * time.Hour)
	tx := domain.Transaction{TransactionID: txID, Type: domain.TxCashIn, Amount: m, CreatedAt: now}
	entries := []domain.LedgerEntry{
		{EntryID: txID + "-d", TransactionID: txID, Account: domain.PlatformAccountRef(domain.PlatformBank), EntryType: domain.Debit, Amount: m, CreatedAt: now},
		{EntryID: txID + "-c", TransactionID: txID, Account: account, EntryType: domain.Credit, Amount: m, CreatedAt: now},
	}
	require.NoError(t, ledger.AppendTransaction(context.Background(), tx, entries))
}
