package domain

// ActorKind is the closed set of principals that can call the platform.
// Authorization is a predicate over this tag, not a class hierarchy: each
// operation declares which kinds it accepts.
type ActorKind string

const (
	ActorAdmin    ActorKind = "ADMIN"
	ActorClient   ActorKind = "CLIENT"
	ActorMerchant ActorKind = "MERCHANT"
	ActorAgent    ActorKind = "AGENT"
	ActorTerminal ActorKind = "TERMINAL"
)

// Actor identifies the authenticated caller of an operation.
type Actor struct {
	ID   string    `json:"id"`
	Kind ActorKind `json:"kind"`
}

// ActorStatus is shared by clients, merchants, agents and terminals.
type ActorStatus string

const (
	ActorActive   ActorStatus = "ACTIVE"
	ActorInactive ActorStatus = "INACTIVE"
	ActorBlocked  ActorStatus = "BLOCKED"
)

// Client is a mobile-money end user.
type Client struct {
	ClientID    string      `json:"clientID"`
	PhoneNumber string      `json:"phoneNumber"`
	FullName    string      `json:"fullName"`
	Status      ActorStatus `json:"status"`
	AuditFields
}

// Merchant accepts payments and can request payouts.
type Merchant struct {
	MerchantID string      `json:"merchantID"`
	Code       string      `json:"code"`
	Name       string      `json:"name"`
	Status     ActorStatus `json:"status"`
	AuditFields
}

// Agent handles cash at the edge of the network: cash-in, card enrollment
// and merchant withdrawals. CashLimit bounds its float exposure.
type Agent struct {
	AgentID   string      `json:"agentID"`
	Code      string      `json:"code"`
	Name      string      `json:"name"`
	Status    ActorStatus `json:"status"`
	CashLimit Money       `json:"cashLimit"`
	AuditFields
}

// Terminal is a merchant-side device that initiates card payments.
type Terminal struct {
	TerminalID string      `json:"terminalID"`
	MerchantID string      `json:"merchantID"`
	Serial     string      `json:"serial"`
	Status     ActorStatus `json:"status"`
	AuditFields
}
