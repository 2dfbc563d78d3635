package solana

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// realRPCClient adapts the actual solana-go RPC client to our RPCClient interface.
// This adapter allows us to control the interface and makes testing easier.
type realRPCClient struct {
	client *rpc.Client
}

// NewRPCClient creates a new RPCClient that wraps the solana-go RPC client.
// For premium RPC endpoints that require API keys, include the key in the URL:
// - Helius: https://mainnet.helius-rpc.com/?api-key=YOUR-KEY
// - QuickNode: https://YOUR-ENDPOINT.quiknode.pro/YOUR-KEY/
func NewRPCClient(rpcURL string) RPCClient {
	return &realRPCClient{
		client: rpc.New(rpcURL),
	}
}

func (r *realRPCClient) GetSignaturesForAddress(
	ctx context.Context,
	address solana.PublicKey,
	opts *rpc.GetSignaturesForAddressOpts,
) ([]*rpc.TransactionSignature, error) {
	return r.client.GetSignaturesForAddressWithOpts(ctx, address, opts)
}

func (r *realRPCClient) GetTransaction(
	ctx context.Context,
	signature solana.Signature,
	opts *rpc.GetTransactionOpts,
) (*rpc.GetTransactionResult, error) {
	return r.client.GetTransaction(ctx, signature, opts)
}

func (r *realRPCClient) GetAccountInfo(
	ctx context.Context,
	account solana.PublicKey,
	opts *rpc.GetAccountInfoOpts,
) (*rpc.GetAccountInfoResult, error) {
	return r.client.GetAccountInfoWithOpts(ctx, account, opts)
}

// SelectRandomEndpoint picks one RPC URL from a configured list.
func SelectRandomEndpoint(endpoints []string) (string, error) {
	if len(endpoints) == 0 {
		return "", fmt.Errorf("no RPC endpoints configured")
	}
	return endpoints[rand.Intn(len(endpoints))], nil
}
