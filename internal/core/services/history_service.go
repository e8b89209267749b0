package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sahelpay/sahelpay/internal/apperrors"
	"github.com/sahelpay/sahelpay/internal/core/domain"
	portsrepo "github.com/sahelpay/sahelpay/internal/core/ports/repositories"
	portssvc "github.com/sahelpay/sahelpay/internal/core/ports/services"
	"github.com/sahelpay/sahelpay/internal/dto"
	"github.com/sahelpay/sahelpay/internal/middleware"
	"github.com/sahelpay/sahelpay/internal/utils/pagination"
	"github.com/shopspring/decimal"
)

const (
	defaultHistoryPageSize = 20
	maxHistoryPageSize     = 100
)

// historyService projects the append-only ledger into the per-actor
// transaction history and derived balances. It is read-only: nothing here
// ever writes an entry.
type historyService struct {
	ledgerRepo portsrepo.LedgerRepositoryFacade
}

// NewHistoryService creates a new HistoryService.
func NewHistoryService(ledgerRepo portsrepo.LedgerRepositoryFacade) portssvc.HistorySvcFacade {
	return &historyService{ledgerRepo: ledgerRepo}
}

var _ portssvc.HistorySvcFacade = (*historyService)(nil)

// SearchTransactionHistory returns one page of the scope account's
// transactions, newest first, filtered and projected per the requested view.
func (s *historyService) SearchTransactionHistory(ctx context.Context, actor domain.Actor, cmd dto.SearchHistoryCommand) (*dto.SearchHistoryResponse, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	scope, err := resolveScope(actor, cmd.Scope)
	if err != nil {
		return nil, err
	}
	view := cmd.View
	if view == "" {
		view = dto.ViewSummary
	}
	switch view {
	case dto.ViewSummary, dto.ViewPayByCard, dto.ViewCommission:
	default:
		return nil, apperrors.NewValidationError("view", fmt.Sprintf("unknown view %q", view))
	}

	limit := cmd.Limit
	if limit <= 0 {
		limit = defaultHistoryPageSize
	}
	if limit > maxHistoryPageSize {
		limit = maxHistoryPageSize
	}

	var cursorAt time.Time
	var cursorID string
	hasCursor := false
	if cmd.NextToken != nil && *cmd.NextToken != "" {
		cursorAt, cursorID, err = pagination.DecodeCursor(*cmd.NextToken)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrValidation, err.Error())
		}
		hasCursor = true
	}

	scopeEntries, err := s.ledgerRepo.FindEntriesByAccount(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("failed to load entries for %s: %w", scope, err)
	}
	if len(scopeEntries) == 0 {
		return &dto.SearchHistoryResponse{Items: []dto.HistoryItem{}}, nil
	}

	txIDs := make([]string, 0, len(scopeEntries))
	seen := make(map[string]bool, len(scopeEntries))
	for _, e := range scopeEntries {
		if !seen[e.TransactionID] {
			seen[e.TransactionID] = true
			txIDs = append(txIDs, e.TransactionID)
		}
	}

	transactions, err := s.ledgerRepo.FindTransactionsByIDs(ctx, txIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}
	entryGroups, err := s.ledgerRepo.FindEntriesByTransactionIDs(ctx, txIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load entry groups: %w", err)
	}

	typeFilter := make(map[string]bool, len(cmd.Types))
	for _, t := range cmd.Types {
		typeFilter[t] = true
	}

	items := make([]dto.HistoryItem, 0, len(txIDs))
	for _, txID := range txIDs {
		tx, ok := transactions[txID]
		if !ok {
			continue
		}
		if len(typeFilter) > 0 && !typeFilter[string(tx.Type)] {
			continue
		}
		if cmd.From != nil && tx.CreatedAt.Before(*cmd.From) {
			continue
		}
		if cmd.To != nil && !tx.CreatedAt.Before(*cmd.To) {
			continue
		}

		proj := projectEntryGroup(scope, entryGroups[txID])
		viewAmount, include := applyView(view, tx, proj)
		if !include {
			continue
		}
		if cmd.MinAmount != nil && viewAmount.LessThan(*cmd.MinAmount) {
			continue
		}
		if cmd.MaxAmount != nil && viewAmount.GreaterThan(*cmd.MaxAmount) {
			continue
		}
		items = append(items, proj.toItem(tx, viewAmount))
	}

	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		}
		return items[i].TransactionID > items[j].TransactionID
	})

	if hasCursor {
		items = itemsStrictlyBefore(items, cursorAt, cursorID)
	}

	var nextToken *string
	if len(items) > limit {
		items = items[:limit]
		last := items[len(items)-1]
		token := pagination.EncodeCursor(last.CreatedAt, last.TransactionID)
		nextToken = &token
	}

	logger.Debug("Transaction history searched",
		"scope", scope.String(), "view", string(view), "items", len(items))

	return &dto.SearchHistoryResponse{Items: items, NextToken: nextToken}, nil
}

// GetBalance folds the scope account's entries into its current balance.
func (s *historyService) GetBalance(ctx context.Context, actor domain.Actor, scopeRef *dto.ScopeRef) (*dto.BalanceResponse, error) {
	scope, err := resolveScope(actor, scopeRef)
	if err != nil {
		return nil, err
	}
	balance, err := s.ledgerRepo.NetBalance(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("failed to compute balance for %s: %w", scope, err)
	}
	return &dto.BalanceResponse{Account: scope, Balance: balance.StringFixed(2)}, nil
}

// resolveScope maps the caller onto the ledger account it may read. Admins
// name any account explicitly; every other actor is pinned to its own account
// and may not supply a scope at all.
func resolveScope(actor domain.Actor, scope *dto.ScopeRef) (domain.LedgerAccountRef, error) {
	if actor.Kind == domain.ActorAdmin {
		if scope == nil {
			return domain.LedgerAccountRef{}, apperrors.NewValidationError("scope", "admin queries must name an account")
		}
		accountType := domain.LedgerAccountType(scope.AccountType)
		switch accountType {
		case domain.ClientAccount, domain.MerchantAccount, domain.AgentWallet, domain.AgentCashClearing,
			domain.PlatformFeeRevenue, domain.PlatformClearing, domain.PlatformBank, domain.PlatformClientRefundClearing:
		default:
			return domain.LedgerAccountRef{}, apperrors.NewValidationError("scope.accountType", fmt.Sprintf("unknown account type %q", scope.AccountType))
		}
		return domain.LedgerAccountRef{AccountType: accountType, OwnerRef: scope.OwnerRef}, nil
	}

	if scope != nil {
		return domain.LedgerAccountRef{}, fmt.Errorf("%w: only admins may query another account", apperrors.ErrForbidden)
	}
	switch actor.Kind {
	case domain.ActorClient:
		return domain.ClientAccountRef(actor.ID), nil
	case domain.ActorMerchant:
		return domain.MerchantAccountRef(actor.ID), nil
	case domain.ActorAgent:
		return domain.AgentWalletRef(actor.ID), nil
	default:
		return domain.LedgerAccountRef{}, fmt.Errorf("%w: actor kind %s has no history scope", apperrors.ErrForbidden, actor.Kind)
	}
}

// entryProjection is one transaction's entry group folded from the scope
// account's point of view.
type entryProjection struct {
	selfDebit         decimal.Decimal
	selfCredit        decimal.Decimal
	clientDebit       decimal.Decimal
	merchantCredit    decimal.Decimal
	agentCredit       decimal.Decimal
	platformFeeCredit decimal.Decimal
}

func projectEntryGroup(scope domain.LedgerAccountRef, entries []domain.LedgerEntry) entryProjection {
	p := entryProjection{
		selfDebit:         decimal.Zero,
		selfCredit:        decimal.Zero,
		clientDebit:       decimal.Zero,
		merchantCredit:    decimal.Zero,
		agentCredit:       decimal.Zero,
		platformFeeCredit: decimal.Zero,
	}
	for _, e := range entries {
		amount := e.Amount.Decimal()
		if e.Account == scope {
			if e.EntryType == domain.Debit {
				p.selfDebit = p.selfDebit.Add(amount)
			} else {
				p.selfCredit = p.selfCredit.Add(amount)
			}
		}
		switch {
		case e.Account.AccountType == domain.ClientAccount && e.EntryType == domain.Debit:
			p.clientDebit = p.clientDebit.Add(amount)
		case e.Account.AccountType == domain.MerchantAccount && e.EntryType == domain.Credit:
			p.merchantCredit = p.merchantCredit.Add(amount)
		case e.Account.AccountType == domain.AgentWallet && e.EntryType == domain.Credit:
			p.agentCredit = p.agentCredit.Add(amount)
		case e.Account.AccountType == domain.PlatformFeeRevenue && e.EntryType == domain.Credit:
			p.platformFeeCredit = p.platformFeeCredit.Add(amount)
		}
	}
	return p
}

func (p entryProjection) toItem(tx domain.Transaction, viewAmount decimal.Decimal) dto.HistoryItem {
	return dto.HistoryItem{
		TransactionID:        tx.TransactionID,
		Type:                 string(tx.Type),
		CreatedAt:            tx.CreatedAt,
		RelatedTransactionID: tx.RelatedTransactionID,
		Amount:               viewAmount.StringFixed(2),
		SelfDebit:            p.selfDebit.StringFixed(2),
		SelfCredit:           p.selfCredit.StringFixed(2),
		ClientDebit:          p.clientDebit.StringFixed(2),
		MerchantCredit:       p.merchantCredit.StringFixed(2),
		AgentCredit:          p.agentCredit.StringFixed(2),
		PlatformFeeCredit:    p.platformFeeCredit.StringFixed(2),
	}
}

// applyView picks the headline amount of a projection under the requested
// view and reports whether the transaction belongs in that view at all.
func applyView(view dto.HistoryView, tx domain.Transaction, p entryProjection) (decimal.Decimal, bool) {
	switch view {
	case dto.ViewPayByCard:
		if tx.Type != domain.TxPayByCard {
			return decimal.Zero, false
		}
		return p.clientDebit, true
	case dto.ViewCommission:
		if p.agentCredit.IsZero() {
			return decimal.Zero, false
		}
		return p.agentCredit, true
	default:
		return p.selfCredit.Sub(p.selfDebit).Abs(), true
	}
}

// itemsStrictlyBefore drops every item at or after the cursor position under
// the (createdAt desc, transactionID desc) sort. Items are already sorted, so
// the survivors are a suffix.
func itemsStrictlyBefore(items []dto.HistoryItem, cursorAt time.Time, cursorID string) []dto.HistoryItem {
	idx := sort.Search(len(items), func(i int) bool {
		if !items[i].CreatedAt.Equal(cursorAt) {
			return items[i].CreatedAt.Before(cursorAt)
		}
		return items[i].TransactionID < cursorID
	})
	return items[idx:]
}
