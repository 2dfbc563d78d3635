package nats

import (
	"fmt"
	"time"

	"github.com/brojonat/salesbot/service/sales"
)

// SaleMessage is a sale event published to NATS.
// This is published to the subject "sales.{project_address}" in JetStream.
type SaleMessage struct {
	// Transaction identifiers
	Signature string    `json:"signature"`
	BlockTime time.Time `json:"block_time"`

	// Project and marketplace
	ProjectAddress     string `json:"project_address"`
	Marketplace        string `json:"marketplace"`
	MarketplaceAccount string `json:"marketplace_account"`

	// NFT
	Mint     string `json:"mint"`
	Title    string `json:"title"`
	ImageURL string `json:"image_url,omitempty"`

	// Price, as a decimal SOL string and in lamports
	PriceSOL string `json:"price_sol"`
	Lamports uint64 `json:"lamports"`

	ExplorerURL string `json:"explorer_url"`

	// Metadata
	PublishedAt time.Time `json:"published_at"`
}

// FromSale converts a sale event to a SaleMessage for publishing.
func FromSale(sale *sales.SaleEvent) *SaleMessage {
	return &SaleMessage{
		Signature:          sale.Signature,
		BlockTime:          sale.Timestamp,
		ProjectAddress:     sale.Address,
		Marketplace:        sale.Marketplace,
		MarketplaceAccount: sale.MarketplaceAccount,
		Mint:               sale.Mint,
		Title:              sale.Title,
		ImageURL:           sale.ImageURL,
		PriceSOL:           sale.Price.String(),
		Lamports:           sale.Lamports,
		ExplorerURL:        sale.ExplorerURL(),
		PublishedAt:        time.Now().UTC(),
	}
}

// Subject returns the subject sales for address are published on.
func Subject(address string) string {
	return fmt.Sprintf("%s.%s", SubjectPrefix, address)
}
