package services

import (
	"context"

	"github.com/sahelpay/sahelpay/internal/core/domain"
	"github.com/sahelpay/sahelpay/internal/dto"
)

// PaymentSvcFacade executes terminal-initiated card payments.
type PaymentSvcFacade interface {
	PayByCard(ctx context.Context, actor domain.Actor, cmd dto.PayByCardCommand) (*dto.MovementResult, error)
}

// TransferSvcFacade executes client-to-client and merchant-to-merchant transfers.
type TransferSvcFacade interface {
	Transfer(ctx context.Context, actor domain.Actor, cmd dto.TransferCommand) (*dto.MovementResult, error)
}

// AgentOpsSvcFacade executes the agent-side cash operations.
type AgentOpsSvcFacade interface {
	CashIn(ctx context.Context, actor domain.Actor, cmd dto.CashInCommand) (*dto.MovementResult, error)
	EnrollCard(ctx context.Context, actor domain.Actor, cmd dto.EnrollCardCommand) (*dto.EnrollCardResult, error)
	WithdrawAtAgent(ctx context.Context, actor domain.Actor, cmd dto.WithdrawAtAgentCommand) (*dto.MovementResult, error)
}

// PayoutSvcFacade runs the two-phase merchant payout workflow.
type PayoutSvcFacade interface {
	RequestPayout(ctx context.Context, actor domain.Actor, cmd dto.RequestPayoutCommand) (*dto.PayoutResult, error)
	CompletePayout(ctx context.Context, actor domain.Actor, cmd dto.FinalizePayoutCommand) (*dto.PayoutResult, error)
	FailPayout(ctx context.Context, actor domain.Actor, cmd dto.FinalizePayoutCommand) (*dto.PayoutResult, error)
}

// RefundSvcFacade runs the two-phase client refund workflow.
type RefundSvcFacade interface {
	RequestRefund(ctx context.Context, actor domain.Actor, cmd dto.RequestRefundCommand) (*dto.RefundResult, error)
	CompleteRefund(ctx context.Context, actor domain.Actor, cmd dto.FinalizeRefundCommand) (*dto.RefundResult, error)
	FailRefund(ctx context.Context, actor domain.Actor, cmd dto.FinalizeRefundCommand) (*dto.RefundResult, error)
}

// ReversalSvcFacade produces compensating reversals of prior transactions.
type ReversalSvcFacade interface {
	Reverse(ctx context.Context, actor domain.Actor, cmd dto.ReverseCommand) (*dto.ReversalResult, error)
}
