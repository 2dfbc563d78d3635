package sales

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/brojonat/salesbot/service/metadata"
	"github.com/brojonat/salesbot/service/metrics"
	"github.com/brojonat/salesbot/service/solana"
	solanago "github.com/gagliardetto/solana-go"
)

// LogSource is the blockchain signature log the bot polls.
// solana.Client satisfies it.
type LogSource interface {
	FetchReferences(ctx context.Context, address solanago.PublicKey, until *solanago.Signature) ([]solana.Reference, error)
	FetchDetail(ctx context.Context, signature solanago.Signature) (*solana.TransactionDetail, error)
}

// MetadataSource resolves a mint to its NFT metadata.
// metadata.Client satisfies it.
type MetadataSource interface {
	Fetch(ctx context.Context, mint solanago.PublicKey) (*metadata.NFT, error)
}

// Processor classifies one transaction reference and, for a recognized
// marketplace sale, enriches and delivers it. Every failure is contained
// to the reference being processed.
type Processor struct {
	source   LogSource
	metadata MetadataSource
	registry *Registry
	notifier Notifier
	address  string
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewProcessor wires a Processor. address labels logs, metrics and sale events.
func NewProcessor(
	source LogSource,
	meta MetadataSource,
	registry *Registry,
	notifier Notifier,
	address string,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Processor {
	return &Processor{
		source:   source,
		metadata: meta,
		registry: registry,
		notifier: notifier,
		address:  address,
		metrics:  m,
		logger:   logger,
	}
}

// Process handles a single reference and reports what happened to it.
// It never returns an error and never panics.
func (p *Processor) Process(ctx context.Context, ref solana.Reference) (outcome Outcome) {
	sig := ref.Signature.String()
	defer func() {
		if r := recover(); r != nil {
			p.logger.ErrorContext(ctx, "recovered while processing transaction",
				"signature", sig,
				"panic", fmt.Sprint(r),
			)
			outcome = OutcomeMalformed
		}
		p.metrics.RecordTransactionClassified(p.address, string(outcome))
	}()

	detail, err := p.source.FetchDetail(ctx, ref.Signature)
	if err != nil {
		p.logger.ErrorContext(ctx, "could not fetch transaction",
			"signature", sig,
			"error", err,
		)
		return OutcomeFetchError
	}

	if detail.Failed {
		return OutcomeFailed
	}

	sale, err := p.classify(detail)
	if err != nil {
		p.logger.ErrorContext(ctx, "could not classify transaction",
			"signature", sig,
			"error", err,
		)
		return OutcomeMalformed
	}
	if sale == nil {
		return OutcomeUnsupported
	}

	mint := detail.PostTokenMints[0]
	nft, err := p.metadata.Fetch(ctx, mint)
	if err != nil {
		p.logger.ErrorContext(ctx, "could not fetch metadata",
			"signature", sig,
			"mint", mint.String(),
			"error", err,
		)
		return OutcomeMetadataError
	}
	sale.Title = nft.Name()
	sale.ImageURL = nft.Image()

	p.logger.InfoContext(ctx, "new sale found",
		"date", sale.DateString(),
		"price", sale.Price.String(),
		"signature", sale.Signature,
		"title", sale.Title,
		"marketplace", sale.Marketplace,
		"image", sale.ImageURL,
	)
	p.metrics.RecordSale(sale.Marketplace, float64(sale.Timestamp.Unix()))

	if err := p.notifier.NotifySale(ctx, sale); err != nil {
		p.logger.ErrorContext(ctx, "could not deliver sale notification",
			"signature", sig,
			"error", err,
		)
		return OutcomeDeliveryError
	}
	return OutcomeNotified
}

// classify computes price and marketplace for a successful transaction.
// It returns (nil, nil) when the terminal account is not a known marketplace.
func (p *Processor) classify(detail *solana.TransactionDetail) (*SaleEvent, error) {
	if len(detail.PreBalances) == 0 || len(detail.PostBalances) == 0 {
		return nil, fmt.Errorf("%w: no balances", ErrMalformedTransaction)
	}
	lamports := balanceDelta(detail.PreBalances[0], detail.PostBalances[0])

	if len(detail.AccountKeys) == 0 {
		return nil, fmt.Errorf("%w: no account keys", ErrMalformedTransaction)
	}
	account := detail.AccountKeys[len(detail.AccountKeys)-1].String()

	marketplace, ok := p.registry.Lookup(account)
	if !ok {
		p.logger.Info("marketplace not supported",
			"account", account,
			"signature", detail.Signature.String(),
		)
		return nil, nil
	}

	if len(detail.PostTokenMints) == 0 {
		return nil, fmt.Errorf("%w: no post token balances", ErrMalformedTransaction)
	}

	return &SaleEvent{
		Price:              lamportsToSOL(lamports),
		Lamports:           lamports,
		Timestamp:          detail.BlockTime,
		Signature:          detail.Signature.String(),
		Marketplace:        marketplace,
		MarketplaceAccount: account,
		Mint:               detail.PostTokenMints[0].String(),
		Address:            p.address,
	}, nil
}
