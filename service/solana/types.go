package solana

import (
	"time"

	"github.com/gagliardetto/solana-go"
)

// Reference is a lightweight handle to one entry in an address's signature log.
// It is resolved to a TransactionDetail with a separate GetTransaction call.
type Reference struct {
	Signature solana.Signature
	Slot      uint64
	BlockTime *time.Time // nil when the node did not report one
	Err       *string    // nil if the signature list reported success
}

// TransactionDetail is the subset of a confirmed transaction the sales pipeline reads.
// This is our domain model, independent of the RPC response format.
type TransactionDetail struct {
	Signature solana.Signature
	Slot      uint64
	BlockTime time.Time
	Failed    bool
	Err       *string // on-chain error message when Failed

	// Lamport balances indexed like AccountKeys followed by LoadedKeys.
	PreBalances  []uint64
	PostBalances []uint64

	// AccountKeys lists the static message keys only. Invoked programs are
	// always static, so the last entry is the terminal program account.
	AccountKeys []solana.PublicKey

	// LoadedKeys lists address-table lookups of a v0 transaction
	// (writable, then readonly), the order the runtime appends them.
	LoadedKeys []solana.PublicKey

	// PostTokenMints holds the mint of every post-transaction token balance, in RPC order.
	PostTokenMints []solana.PublicKey
}
