package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/sahelpay/sahelpay/internal/apperrors"
	"github.com/sahelpay/sahelpay/internal/core/domain"
	"github.com/sahelpay/sahelpay/internal/dto"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type HistoryServiceTestSuite struct {
	suite.Suite
	ledger  *memLedgerRepo
	service *historyService

	client domain.LedgerAccountRef
	agent  domain.LedgerAccountRef
	admin  domain.Actor
	base   time.Time
}

func (s *HistoryServiceTestSuite) SetupTest() {
	s.ledger = newMemLedgerRepo()
	s.service = NewHistoryService(s.ledger).(*historyService)

	s.client = domain.ClientAccountRef("client-1")
	s.agent = domain.AgentWalletRef("agent-1")
	s.admin = domain.Actor{ID: "admin-1", Kind: domain.ActorAdmin}
	s.base = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
}

// book appends a balanced two-leg transaction debiting from and crediting to.
func (s *HistoryServiceTestSuite) book(txID string, txType domain.TransactionType, at time.Time, from, to domain.LedgerAccountRef, amount string) {
	m := money(s.T(), amount)
	tx := domain.Transaction{TransactionID: txID, Type: txType, Amount: m, CreatedAt: at}
	entries := []domain.LedgerEntry{
		{EntryID: txID + "-d", TransactionID: txID, Account: from, EntryType: domain.Debit, Amount: m, CreatedAt: at},
		{EntryID: txID + "-c", TransactionID: txID, Account: to, EntryType: domain.Credit, Amount: m, CreatedAt: at},
	}
	s.Require().NoError(s.ledger.AppendTransaction(context.Background(), tx, entries))
}

func (s *HistoryServiceTestSuite) clientActor() domain.Actor {
	return domain.Actor{ID: "client-1", Kind: domain.ActorClient}
}

func (s *HistoryServiceTestSuite) search(actor domain.Actor, cmd dto.SearchHistoryCommand) *dto.SearchHistoryResponse {
	resp, err := s.service.SearchTransactionHistory(context.Background(), actor, cmd)
	s.Require().NoError(err)
	return resp
}

func (s *HistoryServiceTestSuite) TestSearch_NewestFirstWithSummaryAmounts() {
	bank := domain.PlatformAccountRef(domain.PlatformBank)
	s.book("tx-1", domain.TxCashIn, s.base, bank, s.client, "100.00")
	s.book("tx-2", domain.TxClientTransfer, s.base.Add(time.Hour), s.client, domain.ClientAccountRef("client-2"), "30.00")

	resp := s.search(s.clientActor(), dto.SearchHistoryCommand{})

	s.Require().Len(resp.Items, 2)
	s.Nil(resp.NextToken)
	s.Equal("tx-2", resp.Items[0].TransactionID)
	s.Equal("tx-1", resp.Items[1].TransactionID)
	// SUMMARY reports the absolute net effect on the scope account.
	s.Equal("30.00", resp.Items[0].Amount)
	s.Equal("30.00", resp.Items[0].SelfDebit)
	s.Equal("100.00", resp.Items[1].Amount)
	s.Equal("100.00", resp.Items[1].SelfCredit)
}

func (s *HistoryServiceTestSuite) TestSearch_TypeAndTimeFilters() {
	bank := domain.PlatformAccountRef(domain.PlatformBank)
	s.book("tx-1", domain.TxCashIn, s.base, bank, s.client, "100.00")
	s.book("tx-2", domain.TxClientTransfer, s.base.Add(time.Hour), s.client, domain.ClientAccountRef("client-2"), "30.00")
	s.book("tx-3", domain.TxClientTransfer, s.base.Add(2*time.Hour), s.client, domain.ClientAccountRef("client-2"), "10.00")

	resp := s.search(s.clientActor(), dto.SearchHistoryCommand{Types: []string{string(domain.TxClientTransfer)}})
	s.Require().Len(resp.Items, 2)

	from := s.base.Add(30 * time.Minute)
	to := s.base.Add(90 * time.Minute)
	resp = s.search(s.clientActor(), dto.SearchHistoryCommand{From: &from, To: &to})
	s.Require().Len(resp.Items, 1)
	s.Equal("tx-2", resp.Items[0].TransactionID)
}

func (s *HistoryServiceTestSuite) TestSearch_AmountFilters() {
	bank := domain.PlatformAccountRef(domain.PlatformBank)
	s.book("tx-1", domain.TxCashIn, s.base, bank, s.client, "5.00")
	s.book("tx-2", domain.TxCashIn, s.base.Add(time.Minute), bank, s.client, "50.00")
	s.book("tx-3", domain.TxCashIn, s.base.Add(2*time.Minute), bank, s.client, "500.00")

	minAmount := decimal.RequireFromString("10.00")
	maxAmount := decimal.RequireFromString("100.00")
	resp := s.search(s.clientActor(), dto.SearchHistoryCommand{MinAmount: &minAmount, MaxAmount: &maxAmount})

	s.Require().Len(resp.Items, 1)
	s.Equal("tx-2", resp.Items[0].TransactionID)
}

func (s *HistoryServiceTestSuite) TestSearch_PayByCardViewOnlyCardPayments() {
	merchant := domain.MerchantAccountRef("merchant-1")
	bank := domain.PlatformAccountRef(domain.PlatformBank)
	s.book("tx-1", domain.TxCashIn, s.base, bank, s.client, "100.00")
	s.book("tx-2", domain.TxPayByCard, s.base.Add(time.Hour), s.client, merchant, "40.00")

	resp := s.search(s.clientActor(), dto.SearchHistoryCommand{View: dto.ViewPayByCard})

	s.Require().Len(resp.Items, 1)
	s.Equal("tx-2", resp.Items[0].TransactionID)
	s.Equal("40.00", resp.Items[0].Amount)
	s.Equal("40.00", resp.Items[0].ClientDebit)
}

func (s *HistoryServiceTestSuite) TestSearch_CommissionViewSkipsZeroCommission() {
	clearing := domain.AgentCashClearingRef("agent-1")
	// tx-1 debits the wallet, so it carries no commission credit.
	s.book("tx-1", domain.TxCashIn, s.base, s.agent, clearing, "100.00")
	s.book("tx-2", domain.TxCardEnrollment, s.base.Add(time.Hour), clearing, s.agent, "3.00")

	actor := domain.Actor{ID: "agent-1", Kind: domain.ActorAgent}
	resp := s.search(actor, dto.SearchHistoryCommand{View: dto.ViewCommission})

	s.Require().Len(resp.Items, 1)
	s.Equal("tx-2", resp.Items[0].TransactionID)
	s.Equal("3.00", resp.Items[0].Amount)
	s.Equal("3.00", resp.Items[0].AgentCredit)
}

func (s *HistoryServiceTestSuite) TestSearch_UnknownViewRejected() {
	_, err := s.service.SearchTransactionHistory(context.Background(), s.clientActor(), dto.SearchHistoryCommand{View: "LEDGER_DUMP"})
	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrValidation)
}

func (s *HistoryServiceTestSuite) TestSearch_CursorPagination() {
	bank := domain.PlatformAccountRef(domain.PlatformBank)
	for i := 0; i < 5; i++ {
		s.book(fmt.Sprintf("tx-%d", i), domain.TxCashIn, s.base.Add(time.Duration(i)*time.Minute), bank, s.client, "10.00")
	}

	first := s.search(s.clientActor(), dto.SearchHistoryCommand{Limit: 2})
	s.Require().Len(first.Items, 2)
	s.Require().NotNil(first.NextToken)
	s.Equal("tx-4", first.Items[0].TransactionID)
	s.Equal("tx-3", first.Items[1].TransactionID)

	second := s.search(s.clientActor(), dto.SearchHistoryCommand{Limit: 2, NextToken: first.NextToken})
	s.Require().Len(second.Items, 2)
	s.Require().NotNil(second.NextToken)
	s.Equal("tx-2", second.Items[0].TransactionID)
	s.Equal("tx-1", second.Items[1].TransactionID)

	third := s.search(s.clientActor(), dto.SearchHistoryCommand{Limit: 2, NextToken: second.NextToken})
	s.Require().Len(third.Items, 1)
	s.Equal("tx-0", third.Items[0].TransactionID)
	s.Nil(third.NextToken)
}

func (s *HistoryServiceTestSuite) TestSearch_EmptyScope() {
	resp := s.search(s.clientActor(), dto.SearchHistoryCommand{})
	s.Empty(resp.Items)
	s.Nil(resp.NextToken)
}

func (s *HistoryServiceTestSuite) TestSearch_AdminMustNameScope() {
	_, err := s.service.SearchTransactionHistory(context.Background(), s.admin, dto.SearchHistoryCommand{})
	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrValidation)
}

func (s *HistoryServiceTestSuite) TestSearch_AdminQueriesAnyAccount() {
	bank := domain.PlatformAccountRef(domain.PlatformBank)
	s.book("tx-1", domain.TxCashIn, s.base, bank, s.client, "100.00")

	resp := s.search(s.admin, dto.SearchHistoryCommand{
		Scope: &dto.ScopeRef{AccountType: string(domain.ClientAccount), OwnerRef: "client-1"},
	})
	s.Require().Len(resp.Items, 1)

	_, err := s.service.SearchTransactionHistory(context.Background(), s.admin, dto.SearchHistoryCommand{
		Scope: &dto.ScopeRef{AccountType: "VAULT", OwnerRef: "x"},
	})
	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrValidation)
}

func (s *HistoryServiceTestSuite) TestSearch_NonAdminScopeForbidden() {
	_, err := s.service.SearchTransactionHistory(context.Background(), s.clientActor(), dto.SearchHistoryCommand{
		Scope: &dto.ScopeRef{AccountType: string(domain.ClientAccount), OwnerRef: "client-2"},
	})
	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrForbidden)
}

func (s *HistoryServiceTestSuite) TestSearch_TerminalHasNoScope() {
	actor := domain.Actor{ID: "terminal-1", Kind: domain.ActorTerminal}
	_, err := s.service.SearchTransactionHistory(context.Background(), actor, dto.SearchHistoryCommand{})
	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrForbidden)
}

func (s *HistoryServiceTestSuite) TestGetBalance() {
	bank := domain.PlatformAccountRef(domain.PlatformBank)
	s.book("tx-1", domain.TxCashIn, s.base, bank, s.client, "100.00")
	s.book("tx-2", domain.TxClientTransfer, s.base.Add(time.Hour), s.client, domain.ClientAccountRef("client-2"), "30.00")

	resp, err := s.service.GetBalance(context.Background(), s.clientActor(), nil)
	s.Require().NoError(err)
	s.Equal("70.00", resp.Balance)
	s.Equal(s.client, resp.Account)

	adminResp, err := s.service.GetBalance(context.Background(), s.admin, &dto.ScopeRef{
		AccountType: string(domain.ClientAccount), OwnerRef: "client-2",
	})
	s.Require().NoError(err)
	s.Equal("30.00", adminResp.Balance)
}

func TestHistoryService(t *testing.T) {
	suite.Run(t, new(HistoryServiceTestSuite))
}
