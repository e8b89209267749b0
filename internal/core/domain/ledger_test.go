package domain_test

import (
	"testing"
	"time"

	"github.com/sahelpay/sahelpay/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(t *testing.T, txID string, account domain.LedgerAccountRef, entryType domain.EntryType, amount string) domain.LedgerEntry {
	t.Helper()
	return domain.LedgerEntry{
		EntryID:       "e-" + txID + "-" + string(entryType) + "-" + amount,
		TransactionID: txID,
		Account:       account,
		EntryType:     entryType,
		Amount:        mustMoney(t, amount),
		CreatedAt:     time.Now().UTC(),
	}
}

func TestValidateEntriesBalance(t *testing.T) {
	client := domain.ClientAccountRef("client-1")
	merchant := domain.MerchantAccountRef("merchant-1")
	feeRevenue := domain.PlatformAccountRef(domain.PlatformFeeRevenue)

	tests := []struct {
		name    string
		entries []domain.LedgerEntry
		wantErr string
	}{
		{
			name: "balanced pair",
			entries: []domain.LedgerEntry{
				entry(t, "tx1", client, domain.Debit, "50.00"),
				entry(t, "tx1", merchant, domain.Credit, "50.00"),
			},
		},
		{
			name: "balanced three-legged batch",
			entries: []domain.LedgerEntry{
				entry(t, "tx1", client, domain.Debit, "51.00"),
				entry(t, "tx1", merchant, domain.Credit, "50.00"),
				entry(t, "tx1", feeRevenue, domain.Credit, "1.00"),
			},
		},
		{
			name: "unbalanced batch",
			entries: []domain.LedgerEntry{
				entry(t, "tx1", client, domain.Debit, "50.00"),
				entry(t, "tx1", merchant, domain.Credit, "49.00"),
			},
			wantErr: "do not balance",
		},
		{
			name: "single entry",
			entries: []domain.LedgerEntry{
				entry(t, "tx1", client, domain.Debit, "50.00"),
			},
			wantErr: "at least two entries",
		},
		{
			name: "mixed transaction IDs",
			entries: []domain.LedgerEntry{
				entry(t, "tx1", client, domain.Debit, "50.00"),
				entry(t, "tx2", merchant, domain.Credit, "50.00"),
			},
			wantErr: "belongs to transaction",
		},
		{
			name: "zero amount entry",
			entries: []domain.LedgerEntry{
				entry(t, "tx1", client, domain.Debit, "0.00"),
				entry(t, "tx1", merchant, domain.Credit, "0.00"),
			},
			wantErr: "zero amount",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := domain.ValidateEntriesBalance(tt.entries)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNetOfEntries(t *testing.T) {
	client := domain.ClientAccountRef("client-1")
	entries := []domain.LedgerEntry{
		entry(t, "tx1", client, domain.Credit, "100.00"),
		entry(t, "tx2", client, domain.Debit, "30.00"),
		entry(t, "tx3", client, domain.Credit, "5.50"),
	}
	assert.Equal(t, "75.50", domain.NetOfEntries(entries).StringFixed(2))
	assert.True(t, domain.NetOfEntries(nil).IsZero())
}

func TestEntryType_Inverse(t *testing.T) {
	assert.Equal(t, domain.Credit, domain.Debit.Inverse())
	assert.Equal(t, domain.Debit, domain.Credit.Inverse())
}

func TestLedgerAccountRef_String(t *testing.T) {
	assert.Equal(t, "CLIENT/abc", domain.ClientAccountRef("abc").String())
	assert.Equal(t, "PLATFORM_BANK/PLATFORM", domain.PlatformAccountRef(domain.PlatformBank).String())
}
