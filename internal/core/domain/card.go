package domain

// CardStatus tracks the lifecycle of a payment card.
type CardStatus string

const (
	CardActive  CardStatus = "ACTIVE"
	CardBlocked CardStatus = "BLOCKED"
)

// Card is a physical card enrolled for a client. PINHash is a bcrypt hash;
// the clear PIN never leaves the enrollment/payment request.
type Card struct {
	CardID            string     `json:"cardID"`
	ClientID          string     `json:"clientID"`
	UID               string     `json:"uid"`
	PINHash           string     `json:"-"`
	Status            CardStatus `json:"status"`
	FailedPINAttempts int        `json:"failedPinAttempts"`
	AuditFields
}

// RegisterFailedPIN increments the failure counter and blocks the card once
// the configured threshold is reached. It reports whether the card was
// blocked by this attempt.
func (c *Card) RegisterFailedPIN(threshold int) bool {
	c.FailedPINAttempts++
	if c.FailedPINAttempts >= threshold && c.Status == CardActive {
		c.Status = CardBlocked
		return true
	}
	return false
}

// ResetPINFailures clears the failure counter after a successful payment.
func (c *Card) ResetPINFailures() {
	c.FailedPINAttempts = 0
}
