package solana

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/brojonat/salesbot/service/metrics"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// ErrTransactionNotFound is returned when the node has no record of a signature,
// typically because it has not propagated yet or was pruned.
var ErrTransactionNotFound = errors.New("transaction not found")

// RPCClient is an interface for the Solana RPC operations we need.
// This allows us to mock the RPC layer in tests without hitting real Solana nodes.
type RPCClient interface {
	GetSignaturesForAddress(
		ctx context.Context,
		address solana.PublicKey,
		opts *rpc.GetSignaturesForAddressOpts,
	) ([]*rpc.TransactionSignature, error)

	GetTransaction(
		ctx context.Context,
		signature solana.Signature,
		opts *rpc.GetTransactionOpts,
	) (*rpc.GetTransactionResult, error)

	GetAccountInfo(
		ctx context.Context,
		account solana.PublicKey,
		opts *rpc.GetAccountInfoOpts,
	) (*rpc.GetAccountInfoResult, error)
}

// Client is the blockchain log source: it lists signatures for an address
// and resolves them to transaction details.
type Client struct {
	rpc        RPCClient
	logger     *slog.Logger
	metrics    *metrics.Metrics
	endpoint   string // RPC endpoint identifier for metrics (e.g., "mainnet", rpc host)
	limit      int    // 0 leaves the page size to the node (1000 on mainnet)
	commitment rpc.CommitmentType
}

// NewClient creates a new Solana client.
// The endpoint parameter is used for metrics labeling. If metrics is nil, no metrics will be recorded.
func NewClient(rpcClient RPCClient, endpoint string, limit int, m *metrics.Metrics, logger *slog.Logger) *Client {
	return &Client{
		rpc:        rpcClient,
		logger:     logger,
		metrics:    m,
		endpoint:   endpoint,
		limit:      limit,
		commitment: rpc.CommitmentConfirmed,
	}
}

// FetchReferences lists signatures for address newer than until (exclusive).
// A nil until returns the newest page of history. Results are newest first.
func (c *Client) FetchReferences(ctx context.Context, address solana.PublicKey, until *solana.Signature) ([]Reference, error) {
	opts := &rpc.GetSignaturesForAddressOpts{
		Commitment: c.commitment,
	}
	if c.limit > 0 {
		limit := c.limit
		opts.Limit = &limit
	}
	if until != nil {
		opts.Until = *until
	}

	c.logger.DebugContext(ctx, "calling GetSignaturesForAddress",
		"address", address.String(),
		"limit", c.limit,
		"until", until,
	)

	start := time.Now()
	signatures, err := c.rpc.GetSignaturesForAddress(ctx, address, opts)
	c.metrics.RecordRPCCall("GetSignaturesForAddress", statusOf(err), c.endpoint, time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("get signatures for %s: %w", address, err)
	}
	c.metrics.RecordRPCSignaturesPerCall(c.endpoint, float64(len(signatures)))

	refs := make([]Reference, 0, len(signatures))
	for _, sig := range signatures {
		if sig == nil {
			continue
		}
		refs = append(refs, signatureToReference(sig))
	}

	c.logger.DebugContext(ctx, "fetched transaction signatures",
		"address", address.String(),
		"count", len(refs),
	)
	return refs, nil
}

// FetchDetail loads and parses the full transaction for a signature.
func (c *Client) FetchDetail(ctx context.Context, signature solana.Signature) (*TransactionDetail, error) {
	maxVersion := uint64(0)
	opts := &rpc.GetTransactionOpts{
		Encoding:                       solana.EncodingBase64,
		Commitment:                     c.commitment,
		MaxSupportedTransactionVersion: &maxVersion,
	}

	start := time.Now()
	result, err := c.rpc.GetTransaction(ctx, signature, opts)
	c.metrics.RecordRPCCall("GetTransaction", statusOf(err), c.endpoint, time.Since(start).Seconds())
	if errors.Is(err, rpc.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", signature, ErrTransactionNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get transaction %s: %w", signature, err)
	}

	detail, err := parseTransactionDetail(signature, result)
	if err != nil {
		return nil, fmt.Errorf("parse transaction %s: %w", signature, err)
	}
	return detail, nil
}

// GetAccountData returns the raw data of an account.
// It returns rpc.ErrNotFound (wrapped) when the account does not exist.
func (c *Client) GetAccountData(ctx context.Context, account solana.PublicKey) ([]byte, error) {
	opts := &rpc.GetAccountInfoOpts{
		Encoding:   solana.EncodingBase64,
		Commitment: c.commitment,
	}

	start := time.Now()
	result, err := c.rpc.GetAccountInfo(ctx, account, opts)
	c.metrics.RecordRPCCall("GetAccountInfo", statusOf(err), c.endpoint, time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("get account info %s: %w", account, err)
	}
	if result == nil || result.Value == nil || result.Value.Data == nil {
		return nil, fmt.Errorf("get account info %s: %w", account, rpc.ErrNotFound)
	}
	return result.Value.Data.GetBinary(), nil
}

func statusOf(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
