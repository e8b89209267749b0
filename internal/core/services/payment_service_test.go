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

type PaymentServiceTestSuite struct {
	suite.Suite
	ledger    *memLedgerRepo
	idem      *memIdemRepo
	clients   *memClientRepo
	merchants *memMerchantRepo
	terminals *memTerminalRepo
	cards     *memCardRepo
	policy    *memPolicyRepo
	service   *paymentService

	client   domain.Client
	merchant domain.Merchant
	terminal domain.Terminal
	card     domain.Card
}

func (s *PaymentServiceTestSuite) SetupTest() {
	ctx := context.Background()
	s.ledger = newMemLedgerRepo()
	s.idem = newMemIdemRepo()
	s.clients = newMemClientRepo()
	s.merchants = newMemMerchantRepo()
	s.terminals = newMemTerminalRepo()
	s.cards = newMemCardRepo()
	s.policy = newMemPolicyRepo()

	s.Require().NoError(s.policy.SavePlatformConfig(ctx, testPlatformConfig(s.T())))
	s.Require().NoError(s.policy.SaveFeeConfig(ctx, testFeeConfig(s.T(), domain.TxPayByCard, false)))

	s.client = domain.Client{ClientID: "client-1", Status: domain.ActorActive}
	s.merchant = domain.Merchant{MerchantID: "merchant-1", Code: "M001", Status: domain.ActorActive}
	s.terminal = domain.Terminal{TerminalID: "terminal-1", MerchantID: s.merchant.MerchantID, Status: domain.ActorActive}
	s.card = domain.Card{CardID: "card-1", ClientID: s.client.ClientID, UID: "uid-1", PINHash: "1234", Status: domain.CardActive}
	s.Require().NoError(s.clients.SaveClient(ctx, s.client))
	s.Require().NoError(s.merchants.SaveMerchant(ctx, s.merchant))
	s.Require().NoError(s.terminals.SaveTerminal(ctx, s.terminal))
	s.Require().NoError(s.cards.SaveCard(ctx, s.card))

	svc := NewPaymentService(s.ledger, s.idem, s.clients, s.merchants, s.terminals, s.cards, s.policy, s.policy, &memAuditPublisher{}).(*paymentService)
	svc.now = fixedClock(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))
	svc.newID = seqIDGen()
	// Tests store clear PINs in place of bcrypt hashes.
	svc.checkPIN = func(pin, hash string) bool { return pin == hash }
	s.service = svc

	seedBalance(s.T(), s.ledger, domain.ClientAccountRef(s.client.ClientID), "100.00")
}

func (s *PaymentServiceTestSuite) terminalActor() domain.Actor {
	return domain.Actor{ID: s.terminal.TerminalID, Kind: domain.ActorTerminal}
}

func (s *PaymentServiceTestSuite) pay(key, pin, amount string) (*dto.MovementResult, error) {
	return s.service.PayByCard(context.Background(), s.terminalActor(), dto.PayByCardCommand{
		IdempotencyKey: key,
		CardUID:        s.card.UID,
		PIN:            pin,
		Amount:         decimal.RequireFromString(amount),
	})
}

func (s *PaymentServiceTestSuite) balance(account domain.LedgerAccountRef) string {
	net, err := s.ledger.NetBalance(context.Background(), account)
	s.Require().NoError(err)
	return net.StringFixed(2)
}

func (s *PaymentServiceTestSuite) TestPayByCard_Success() {
	result, err := s.pay("key-1", "1234", "50.00")

	s.Require().NoError(err)
	s.Equal(string(domain.TxPayByCard), result.Type)
	s.Equal("50.00", result.Amount)
	s.Equal("1.00", result.Fee)

	s.Equal("49.00", s.balance(domain.ClientAccountRef(s.client.ClientID)))
	s.Equal("50.00", s.balance(domain.MerchantAccountRef(s.merchant.MerchantID)))
	s.Equal("1.00", s.balance(domain.PlatformAccountRef(domain.PlatformFeeRevenue)))
}

func (s *PaymentServiceTestSuite) TestPayByCard_WrongPINBlocksCardAtThreshold() {
	for i := 1; i <= 2; i++ {
		_, err := s.pay(fmt.Sprintf("key-wrong-%d", i), "0000", "10.00")
		s.Require().Error(err)
		s.ErrorIs(err, apperrors.ErrForbidden)

		card, findErr := s.cards.FindCardByID(context.Background(), s.card.CardID)
		s.Require().NoError(findErr)
		s.Equal(i, card.FailedPINAttempts)
		s.Equal(domain.CardActive, card.Status)
	}

	_, err := s.pay("key-wrong-3", "0000", "10.00")
	s.Require().Error(err)
	s.Contains(err.Error(), "blocked")

	card, err := s.cards.FindCardByID(context.Background(), s.card.CardID)
	s.Require().NoError(err)
	s.Equal(domain.CardBlocked, card.Status)

	// A blocked card rejects even the correct PIN.
	_, err = s.pay("key-after-block", "1234", "10.00")
	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrForbidden)

	// No money moved throughout.
	s.Equal("100.00", s.balance(domain.ClientAccountRef(s.client.ClientID)))
}

func (s *PaymentServiceTestSuite) TestPayByCard_SuccessResetsFailureCounter() {
	_, err := s.pay("key-fail", "0000", "10.00")
	s.Require().Error(err)

	_, err = s.pay("key-ok", "1234", "10.00")
	s.Require().NoError(err)

	card, err := s.cards.FindCardByID(context.Background(), s.card.CardID)
	s.Require().NoError(err)
	s.Equal(0, card.FailedPINAttempts)
}

func (s *PaymentServiceTestSuite) TestPayByCard_IdempotentReplay() {
	first, err := s.pay("key-replay", "1234", "25.00")
	s.Require().NoError(err)

	second, err := s.pay("key-replay", "1234", "25.00")
	s.Require().NoError(err)
	s.Equal(first.TransactionID, second.TransactionID)
	// 25.00 at 2% is 0.50, clamped up to the 1.00 minimum fee.
	s.Equal("74.00", s.balance(domain.ClientAccountRef(s.client.ClientID)))
}

func (s *PaymentServiceTestSuite) TestPayByCard_InactiveTerminal() {
	s.terminal.Status = domain.ActorInactive
	s.Require().NoError(s.terminals.SaveTerminal(context.Background(), s.terminal))

	_, err := s.pay("key-term", "1234", "10.00")
	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrForbidden)
}

func (s *PaymentServiceTestSuite) TestPayByCard_NonTerminalActor() {
	_, err := s.service.PayByCard(context.Background(), domain.Actor{ID: "client-1", Kind: domain.ActorClient}, dto.PayByCardCommand{
		IdempotencyKey: "key-kind",
		CardUID:        s.card.UID,
		PIN:            "1234",
		Amount:         decimal.RequireFromString("10.00"),
	})
	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrForbidden)
}

func (s *PaymentServiceTestSuite) TestPayByCard_UnknownCard() {
	_, err := s.service.PayByCard(context.Background(), s.terminalActor(), dto.PayByCardCommand{
		IdempotencyKey: "key-card",
		CardUID:        "uid-unknown",
		PIN:            "1234",
		Amount:         decimal.RequireFromString("10.00"),
	})
	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrNotFound)
}

func TestPaymentService(t *testing.T) {
	suite.Run(t, new(PaymentServiceTestSuite))
}
