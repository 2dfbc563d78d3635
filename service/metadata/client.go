package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/brojonat/salesbot/service/metrics"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/go-resty/resty/v2"
)

// DefaultIPFSGateway resolves ipfs:// URIs found in metadata records.
const DefaultIPFSGateway = "https://ipfs.io/ipfs/"

// ErrAccountNotFound is returned when the metadata PDA has no account.
var ErrAccountNotFound = errors.New("metadata account not found")

// AccountReader loads raw account data. solana.Client satisfies it.
type AccountReader interface {
	GetAccountData(ctx context.Context, account solana.PublicKey) ([]byte, error)
}

// OffChain is the JSON document a metadata record's URI points to.
type OffChain struct {
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Description string `json:"description"`
	Image       string `json:"image"`
}

// NFT is the combined on-chain and off-chain view of one mint.
type NFT struct {
	Mint     solana.PublicKey
	Address  solana.PublicKey // metadata PDA
	Record   *Record
	OffChain *OffChain
}

// Name prefers the off-chain name and falls back to the on-chain one.
func (n *NFT) Name() string {
	if n.OffChain != nil && n.OffChain.Name != "" {
		return n.OffChain.Name
	}
	if n.Record != nil {
		return n.Record.Name
	}
	return ""
}

// Image returns the off-chain image URL, if any.
func (n *NFT) Image() string {
	if n.OffChain == nil {
		return ""
	}
	return n.OffChain.Image
}

// Client resolves a mint to its Metaplex metadata.
type Client struct {
	accounts    AccountReader
	http        *resty.Client
	ipfsGateway string
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

// NewClient creates a metadata client. If httpClient is nil a resty client with a
// 30 second timeout is used.
func NewClient(accounts AccountReader, httpClient *resty.Client, m *metrics.Metrics, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = resty.New().SetTimeout(30 * time.Second)
	}
	return &Client{
		accounts:    accounts,
		http:        httpClient,
		ipfsGateway: DefaultIPFSGateway,
		metrics:     m,
		logger:      logger,
	}
}

// Fetch runs the full lookup for a mint: derive the PDA, load the record,
// then fetch the JSON document at its URI. Any failing step fails the lookup.
func (c *Client) Fetch(ctx context.Context, mint solana.PublicKey) (nft *NFT, err error) {
	start := time.Now()
	defer func() {
		c.metrics.RecordMetadataFetch(time.Since(start).Seconds(), err)
	}()

	addr, err := DeriveMetadataAddress(mint)
	if err != nil {
		return nil, err
	}

	record, err := c.LoadMetadataRecord(ctx, addr)
	if err != nil {
		return nil, err
	}

	offChain, err := c.FetchJSON(ctx, record.URI)
	if err != nil {
		return nil, err
	}

	c.logger.DebugContext(ctx, "fetched nft metadata",
		"mint", mint.String(),
		"metadata_address", addr.String(),
		"name", offChain.Name,
	)

	return &NFT{
		Mint:     mint,
		Address:  addr,
		Record:   record,
		OffChain: offChain,
	}, nil
}

// LoadMetadataRecord reads and decodes the metadata account at addr.
func (c *Client) LoadMetadataRecord(ctx context.Context, addr solana.PublicKey) (*Record, error) {
	data, err := c.accounts.GetAccountData(ctx, addr)
	if errors.Is(err, rpc.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", addr, ErrAccountNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load metadata account %s: %w", addr, err)
	}

	record, err := DecodeRecord(data)
	if err != nil {
		return nil, fmt.Errorf("decode metadata account %s: %w", addr, err)
	}
	return record, nil
}

// FetchJSON downloads and decodes the off-chain metadata document.
func (c *Client) FetchJSON(ctx context.Context, uri string) (*OffChain, error) {
	if uri == "" {
		return nil, fmt.Errorf("%w: empty uri", ErrInvalidRecord)
	}
	url := c.resolveURI(uri)

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		Get(url)
	if err != nil {
		return nil, fmt.Errorf("fetch metadata json %s: %w", url, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetch metadata json %s: status %d", url, resp.StatusCode())
	}

	// Gateways often serve JSON as text/plain, so decode the body ourselves.
	var doc OffChain
	if err := json.Unmarshal(resp.Body(), &doc); err != nil {
		return nil, fmt.Errorf("decode metadata json %s: %w", url, err)
	}
	return &doc, nil
}

func (c *Client) resolveURI(uri string) string {
	if rest, ok := strings.CutPrefix(uri, "ipfs://"); ok {
		return c.ipfsGateway + strings.TrimPrefix(rest, "ipfs/")
	}
	return uri
}
