package sales

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/shopspring/decimal"
)

// LamportsPerSOL converts lamports (the native smallest unit) to SOL.
const LamportsPerSOL = 1_000_000_000

// ExplorerTxURL is the prefix for links to a transaction on the Solana explorer.
const ExplorerTxURL = "https://explorer.solana.com/tx/"

// ErrMalformedTransaction marks a transaction that is missing the fields
// classification needs (balances, account keys, token balances).
var ErrMalformedTransaction = errors.New("malformed transaction")

// SaleEvent is a confirmed marketplace sale, enriched with NFT metadata.
// It is built once per sale, handed to the notifier and then discarded.
type SaleEvent struct {
	Title              string          `json:"title"`
	Price              decimal.Decimal `json:"price"` // SOL
	Lamports           uint64          `json:"lamports"`
	Timestamp          time.Time       `json:"timestamp"`
	Signature          string          `json:"signature"`
	Marketplace        string          `json:"marketplace"`
	MarketplaceAccount string          `json:"marketplace_account"`
	ImageURL           string          `json:"image_url"`
	Mint               string          `json:"mint"`
	Address            string          `json:"address"` // watched project address
}

// DateString renders the block time for humans, in UTC.
func (s *SaleEvent) DateString() string {
	return s.Timestamp.UTC().Format("1/2/2006, 3:04:05 PM") + " UTC"
}

// PriceString renders the price with its unit, e.g. "1.5 SOL".
func (s *SaleEvent) PriceString() string {
	return fmt.Sprintf("%s SOL", s.Price.String())
}

// ExplorerURL links to the sale transaction on the Solana explorer.
func (s *SaleEvent) ExplorerURL() string {
	return ExplorerTxURL + s.Signature
}

// Outcome is what happened to one transaction reference.
type Outcome string

const (
	OutcomeNotified      Outcome = "notified"
	OutcomeFailed        Outcome = "failed_onchain"
	OutcomeUnsupported   Outcome = "unsupported_marketplace"
	OutcomeFetchError    Outcome = "fetch_error"
	OutcomeMalformed     Outcome = "malformed"
	OutcomeMetadataError Outcome = "metadata_error"
	OutcomeDeliveryError Outcome = "delivery_error"
)

// balanceDelta returns |post - pre| in lamports without overflowing.
func balanceDelta(pre, post uint64) uint64 {
	if post > pre {
		return post - pre
	}
	return pre - post
}

// lamportsToSOL divides by LamportsPerSOL exactly.
func lamportsToSOL(lamports uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(lamports), 0).
		Div(decimal.NewFromInt(LamportsPerSOL))
}
