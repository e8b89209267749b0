package dto

import (
	"time"

	"github.com/sahelpay/sahelpay/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CreateClientRequest registers a new mobile-money client.
type CreateClientRequest struct {
	PhoneNumber string `json:"phoneNumber" binding:"required,e164"`
	FullName    string `json:"fullName" binding:"required"`
}

// CreateMerchantRequest registers a new merchant.
type CreateMerchantRequest struct {
	Code string `json:"code" binding:"required,alphanum"`
	Name string `json:"name" binding:"required"`
}

// CreateAgentRequest registers a new agent with its cash exposure limit.
type CreateAgentRequest struct {
	Code      string          `json:"code" binding:"required,alphanum"`
	Name      string          `json:"name" binding:"required"`
	CashLimit decimal.Decimal `json:"cashLimit" binding:"required"`
}

// CreateTerminalRequest registers a terminal for a merchant.
type CreateTerminalRequest struct {
	MerchantID string `json:"merchantID" binding:"required,uuid"`
	Serial     string `json:"serial" binding:"required"`
}

// UpdateActorStatusRequest changes the status of any actor entity.
type UpdateActorStatusRequest struct {
	Status domain.ActorStatus `json:"status" binding:"required,oneof=ACTIVE INACTIVE BLOCKED"`
}

// ClientResponse mirrors domain.Client.
type ClientResponse struct {
	ClientID    string    `json:"clientID"`
	PhoneNumber string    `json:"phoneNumber"`
	FullName    string    `json:"fullName"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
}

// MerchantResponse mirrors domain.Merchant.
type MerchantResponse struct {
	MerchantID string    `json:"merchantID"`
	Code       string    `json:"code"`
	Name       string    `json:"name"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"createdAt"`
}

// AgentResponse mirrors domain.Agent.
type AgentResponse struct {
	AgentID   string    `json:"agentID"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	CashLimit string    `json:"cashLimit"`
	CreatedAt time.Time `json:"createdAt"`
}

// TerminalResponse mirrors domain.Terminal.
type TerminalResponse struct {
	TerminalID string    `json:"terminalID"`
	MerchantID string    `json:"merchantID"`
	Serial     string    `json:"serial"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"createdAt"`
}

// ToClientResponse converts a domain.Client.
func ToClientResponse(c *domain.Client) ClientResponse {
	return ClientResponse{
		ClientID:    c.ClientID,
		PhoneNumber: c.PhoneNumber,
		FullName:    c.FullName,
		Status:      string(c.Status),
		CreatedAt:   c.CreatedAt,
	}
}

// ToMerchantResponse converts a domain.Merchant.
func ToMerchantResponse(m *domain.Merchant) MerchantResponse {
	return MerchantResponse{
		MerchantID: m.MerchantID,
		Code:       m.Code,
		Name:       m.Name,
		Status:     string(m.Status),
		CreatedAt:  m.CreatedAt,
	}
}

// ToAgentResponse converts a domain.Agent.
func ToAgentResponse(a *domain.Agent) AgentResponse {
	return AgentResponse{
		AgentID:   a.AgentID,
		Code:      a.Code,
		Name:      a.Name,
		Status:    string(a.Status),
		CashLimit: a.CashLimit.String(),
		CreatedAt: a.CreatedAt,
	}
}

// ToTerminalResponse converts a domain.Terminal.
func ToTerminalResponse(t *domain.Terminal) TerminalResponse {
	return TerminalResponse{
		TerminalID: t.TerminalID,
		MerchantID: t.MerchantID,
		Serial:     t.Serial,
		Status:     string(t.Status),
		CreatedAt:  t.CreatedAt,
	}
}
