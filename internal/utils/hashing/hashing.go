// Package hashing produces the request hash that binds an idempotency key to
// one logical payload.
package hashing

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// HashRequest computes a stable sha256 hex digest of a command payload.
// Commands exclude the idempotency key itself from their JSON shape, so the
// hash covers only the business payload.
func HashRequest(payload any) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal payload for hashing: %w", err)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}
