package services

import (
	"context"
	"testing"
	"time"

	"github.com/sahelpay/sahelpay/internal/apperrors"
	"github.com/sahelpay/sahelpay/internal/core/domain"
	"github.com/sahelpay/sahelpay/internal/dto"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type TransferServiceTestSuite struct {
	suite.Suite
	ledger   *memLedgerRepo
	idem     *memIdemRepo
	clients  *memClientRepo
	policy   *memPolicyRepo
	audit    *memAuditPublisher
	service  *transferService
	now      time.Time
	sender   domain.Client
	receiver domain.Client
}

func (s *TransferServiceTestSuite) SetupTest() {
	s.ledger = newMemLedgerRepo()
	s.idem = newMemIdemRepo()
	s.clients = newMemClientRepo()
	s.policy = newMemPolicyRepo()
	s.audit = &memAuditPublisher{}
	s.now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	s.Require().NoError(s.policy.SavePlatformConfig(context.Background(), testPlatformConfig(s.T())))
	s.Require().NoError(s.policy.SaveFeeConfig(context.Background(), testFeeConfig(s.T(), domain.TxClientTransfer, true)))

	s.sender = domain.Client{ClientID: "client-sender", Status: domain.ActorActive}
	s.receiver = domain.Client{ClientID: "client-receiver", Status: domain.ActorActive}
	s.Require().NoError(s.clients.SaveClient(context.Background(), s.sender))
	s.Require().NoError(s.clients.SaveClient(context.Background(), s.receiver))

	svc := NewTransferService(s.ledger, s.idem, s.clients, newMemMerchantRepo(), s.policy, s.policy, s.audit).(*transferService)
	svc.now = fixedClock(s.now)
	svc.newID = seqIDGen()
	s.service = svc

	seedBalance(s.T(), s.ledger, domain.ClientAccountRef(s.sender.ClientID), "100.00")
}

func (s *TransferServiceTestSuite) senderActor() domain.Actor {
	return domain.Actor{ID: s.sender.ClientID, Kind: domain.ActorClient}
}

func (s *TransferServiceTestSuite) balance(account domain.LedgerAccountRef) string {
	net, err := s.ledger.NetBalance(context.Background(), account)
	s.Require().NoError(err)
	return net.StringFixed(2)
}

func (s *TransferServiceTestSuite) TestTransfer_Success() {
	result, err := s.service.Transfer(context.Background(), s.senderActor(), dto.TransferCommand{
		IdempotencyKey: "key-1",
		RecipientID:    s.receiver.ClientID,
		Amount:         decimal.RequireFromString("50.00"),
	})

	s.Require().NoError(err)
	s.Equal(string(domain.TxClientTransfer), result.Type)
	s.Equal("50.00", result.Amount)
	s.Equal("1.00", result.Fee)

	// 100 - (50 + 1) = 49 for the sender, 50 for the recipient, 1 for the platform.
	s.Equal("49.00", s.balance(domain.ClientAccountRef(s.sender.ClientID)))
	s.Equal("50.00", s.balance(domain.ClientAccountRef(s.receiver.ClientID)))
	s.Equal("1.00", s.balance(domain.PlatformAccountRef(domain.PlatformFeeRevenue)))
	s.Len(s.audit.events, 1)
}

func (s *TransferServiceTestSuite) TestTransfer_IdempotentReplay() {
	cmd := dto.TransferCommand{
		IdempotencyKey: "key-replay",
		RecipientID:    s.receiver.ClientID,
		Amount:         decimal.RequireFromString("50.00"),
	}
	first, err := s.service.Transfer(context.Background(), s.senderActor(), cmd)
	s.Require().NoError(err)

	second, err := s.service.Transfer(context.Background(), s.senderActor(), cmd)
	s.Require().NoError(err)
	s.Equal(first.TransactionID, second.TransactionID)

	// The replay must not move money again.
	s.Equal("49.00", s.balance(domain.ClientAccountRef(s.sender.ClientID)))
	s.Len(s.audit.events, 1)
}

func (s *TransferServiceTestSuite) TestTransfer_KeyReuseWithDifferentPayload() {
	_, err := s.service.Transfer(context.Background(), s.senderActor(), dto.TransferCommand{
		IdempotencyKey: "key-conflict",
		RecipientID:    s.receiver.ClientID,
		Amount:         decimal.RequireFromString("50.00"),
	})
	s.Require().NoError(err)

	_, err = s.service.Transfer(context.Background(), s.senderActor(), dto.TransferCommand{
		IdempotencyKey: "key-conflict",
		RecipientID:    s.receiver.ClientID,
		Amount:         decimal.RequireFromString("60.00"),
	})
	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrIdempotencyConflict)
}

func (s *TransferServiceTestSuite) TestTransfer_MissingKey() {
	_, err := s.service.Transfer(context.Background(), s.senderActor(), dto.TransferCommand{
		RecipientID: s.receiver.ClientID,
		Amount:      decimal.RequireFromString("10.00"),
	})
	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrValidation)
}

func (s *TransferServiceTestSuite) TestTransfer_InsufficientFunds() {
	cmd := dto.TransferCommand{
		IdempotencyKey: "key-poor",
		RecipientID:    s.receiver.ClientID,
		Amount:         decimal.RequireFromString("200.00"),
	}
	_, err := s.service.Transfer(context.Background(), s.senderActor(), cmd)
	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrInsufficientFunds)

	// The failed attempt releases the key; retrying with the same payload is
	// not a conflict, it fails the same business check again.
	_, err = s.service.Transfer(context.Background(), s.senderActor(), cmd)
	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrInsufficientFunds)
}

func (s *TransferServiceTestSuite) TestTransfer_SelfTransferRejected() {
	_, err := s.service.Transfer(context.Background(), s.senderActor(), dto.TransferCommand{
		IdempotencyKey: "key-self",
		RecipientID:    s.sender.ClientID,
		Amount:         decimal.RequireFromString("10.00"),
	})
	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrValidation)
}

func (s *TransferServiceTestSuite) TestTransfer_InactiveRecipient() {
	blocked := domain.Client{ClientID: "client-blocked", Status: domain.ActorBlocked}
	s.Require().NoError(s.clients.SaveClient(context.Background(), blocked))

	_, err := s.service.Transfer(context.Background(), s.senderActor(), dto.TransferCommand{
		IdempotencyKey: "key-blocked",
		RecipientID:    blocked.ClientID,
		Amount:         decimal.RequireFromString("10.00"),
	})
	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrForbidden)
}

func (s *TransferServiceTestSuite) TestTransfer_ActorKindRejected() {
	_, err := s.service.Transfer(context.Background(), domain.Actor{ID: "agent-1", Kind: domain.ActorAgent}, dto.TransferCommand{
		IdempotencyKey: "key-agent",
		RecipientID:    s.receiver.ClientID,
		Amount:         decimal.RequireFromString("10.00"),
	})
	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrForbidden)
}

func (s *TransferServiceTestSuite) TestTransfer_PerTransactionBounds() {
	_, err := s.service.Transfer(context.Background(), s.senderActor(), dto.TransferCommand{
		IdempotencyKey: "key-tiny",
		RecipientID:    s.receiver.ClientID,
		Amount:         decimal.RequireFromString("0.50"),
	})
	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrValidation)
}

func (s *TransferServiceTestSuite) TestTransfer_DailyDebitLimit() {
	seedBalance(s.T(), s.ledger, domain.ClientAccountRef(s.sender.ClientID), "100000.00")

	cfg := testPlatformConfig(s.T())
	cfg.Version = 2
	cfg.DailyDebitLimit = money(s.T(), "60.00")
	s.Require().NoError(s.policy.SavePlatformConfig(context.Background(), cfg))

	first := dto.TransferCommand{
		IdempotencyKey: "key-day-1",
		RecipientID:    s.receiver.ClientID,
		Amount:         decimal.RequireFromString("50.00"),
	}
	_, err := s.service.Transfer(context.Background(), s.senderActor(), first)
	s.Require().NoError(err)

	// 51.00 already debited today; another 51.00 would cross the 60.00 cap.
	second := first
	second.IdempotencyKey = "key-day-2"
	_, err = s.service.Transfer(context.Background(), s.senderActor(), second)
	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrValidation)

	// Past UTC midnight the aggregate resets and the same transfer passes.
	s.service.now = fixedClock(time.Date(2026, 3, 11, 0, 0, 1, 0, time.UTC))
	third := first
	third.IdempotencyKey = "key-day-3"
	_, err = s.service.Transfer(context.Background(), s.senderActor(), third)
	s.Require().NoError(err)
}

func TestTransferService(t *testing.T) {
	suite.Run(t, new(TransferServiceTestSuite))
}
