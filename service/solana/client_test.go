package solana

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockRPCClient implements RPCClient for testing.
// It's behavior-focused: we set what it should return, not verify call sequences.
type mockRPCClient struct {
	signatures   []*rpc.TransactionSignature
	transactions map[string]*rpc.GetTransactionResult
	accounts     map[string]*rpc.GetAccountInfoResult
	err          error

	lastSigOpts *rpc.GetSignaturesForAddressOpts
}

func (m *mockRPCClient) GetSignaturesForAddress(
	ctx context.Context,
	address solana.PublicKey,
	opts *rpc.GetSignaturesForAddressOpts,
) ([]*rpc.TransactionSignature, error) {
	m.lastSigOpts = opts
	if m.err != nil {
		return nil, m.err
	}
	return m.signatures, nil
}

func (m *mockRPCClient) GetTransaction(
	ctx context.Context,
	signature solana.Signature,
	opts *rpc.GetTransactionOpts,
) (*rpc.GetTransactionResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	result, ok := m.transactions[signature.String()]
	if !ok {
		return nil, rpc.ErrNotFound
	}
	return result, nil
}

func (m *mockRPCClient) GetAccountInfo(
	ctx context.Context,
	account solana.PublicKey,
	opts *rpc.GetAccountInfoOpts,
) (*rpc.GetAccountInfoResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	result, ok := m.accounts[account.String()]
	if !ok {
		return nil, rpc.ErrNotFound
	}
	return result, nil
}

func newTestClient(mock *mockRPCClient) *Client {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewClient(mock, "test", 0, nil, logger)
}

// makeTransactionEnvelope builds a TransactionResultEnvelope from a Transaction.
// Since TransactionResultEnvelope has unexported fields, we use JSON marshaling.
func makeTransactionEnvelope(t *testing.T, tx *solana.Transaction) *rpc.TransactionResultEnvelope {
	t.Helper()

	txJSON, err := json.Marshal(tx)
	require.NoError(t, err)

	var temp struct {
		Transaction json.RawMessage `json:"transaction"`
	}
	temp.Transaction = txJSON

	envelopeJSON, err := json.Marshal(temp)
	require.NoError(t, err)

	var result rpc.GetTransactionResult
	require.NoError(t, json.Unmarshal(envelopeJSON, &result))
	return result.Transaction
}

var (
	testSig1 = solana.MustSignatureFromBase58("5j7s6NiJS3JAkvgkoc18WVAsiSaci2pxB2A6ueCJP4tprA2TFg9wSyTLeYouxPBJEMzJinENTkpA52YStRW5Dia7")
	testSig2 = solana.MustSignatureFromBase58("2TgM4N8qCMqLvfR8dxqTQgKygPNzT5KQkN5b5sT7eZPEkdxyLTXGnNQB3j7KG4DPFg5Qez5yNJBQRQ5r7DDnFfjG")

	buyer       = solana.MustPublicKeyFromBase58("DYw8jCTfwHNRJhhmFcbXvVDTqWMEVFBX6ZKUmG5CNSKK")
	magicEden   = solana.MustPublicKeyFromBase58("MEisE1HzehtrDpAAT8PnLHjpSSkRYakotTuJRPjTpo8")
	nftMint     = solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
	lookupEntry = solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")
)

func TestFetchReferences_NoCursor(t *testing.T) {
	now := solana.UnixTimeSeconds(time.Now().Unix())
	mock := &mockRPCClient{
		signatures: []*rpc.TransactionSignature{
			{Signature: testSig1, Slot: 100, BlockTime: &now},
			{Signature: testSig2, Slot: 99, Err: map[string]interface{}{"InstructionError": []interface{}{0, "Custom"}}},
		},
	}

	refs, err := newTestClient(mock).FetchReferences(context.Background(), buyer, nil)
	require.NoError(t, err)
	require.Len(t, refs, 2)

	// Order from the node is preserved: newest first
	assert.Equal(t, testSig1, refs[0].Signature)
	assert.Equal(t, uint64(100), refs[0].Slot)
	require.NotNil(t, refs[0].BlockTime)
	assert.Nil(t, refs[0].Err)

	assert.Equal(t, testSig2, refs[1].Signature)
	assert.Nil(t, refs[1].BlockTime)
	require.NotNil(t, refs[1].Err)
	assert.Contains(t, *refs[1].Err, "transaction failed")

	require.NotNil(t, mock.lastSigOpts)
	assert.True(t, mock.lastSigOpts.Until.IsZero(), "no cursor must leave Until unset")
	assert.Nil(t, mock.lastSigOpts.Limit)
}

func TestFetchReferences_WithCursor(t *testing.T) {
	mock := &mockRPCClient{
		signatures: []*rpc.TransactionSignature{{Signature: testSig1, Slot: 100}},
	}
	client := NewClient(mock, "test", 25, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))

	cursor := testSig2
	refs, err := client.FetchReferences(context.Background(), buyer, &cursor)
	require.NoError(t, err)
	require.Len(t, refs, 1)

	require.NotNil(t, mock.lastSigOpts)
	assert.Equal(t, testSig2, mock.lastSigOpts.Until)
	require.NotNil(t, mock.lastSigOpts.Limit)
	assert.Equal(t, 25, *mock.lastSigOpts.Limit)
	assert.Equal(t, rpc.CommitmentConfirmed, mock.lastSigOpts.Commitment)
}

func TestFetchReferences_RPCError(t *testing.T) {
	mock := &mockRPCClient{err: errors.New("connection reset")}

	refs, err := newTestClient(mock).FetchReferences(context.Background(), buyer, nil)
	require.Error(t, err)
	assert.Nil(t, refs)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestFetchDetail_Sale(t *testing.T) {
	blockTime := solana.UnixTimeSeconds(1700000000)
	tx := &solana.Transaction{
		Message: solana.Message{
			AccountKeys: []solana.PublicKey{buyer, nftMint, magicEden},
		},
	}

	mock := &mockRPCClient{
		transactions: map[string]*rpc.GetTransactionResult{
			testSig1.String(): {
				Slot:        100,
				BlockTime:   &blockTime,
				Transaction: makeTransactionEnvelope(t, tx),
				Meta: &rpc.TransactionMeta{
					PreBalances:  []uint64{5_000_000_000, 0, 1},
					PostBalances: []uint64{3_500_000_000, 0, 1},
					PostTokenBalances: []rpc.TokenBalance{
						{AccountIndex: 1, Mint: nftMint},
					},
					LoadedAddresses: rpc.LoadedAddresses{
						Writable: solana.PublicKeySlice{lookupEntry},
					},
				},
			},
		},
	}

	detail, err := newTestClient(mock).FetchDetail(context.Background(), testSig1)
	require.NoError(t, err)

	assert.Equal(t, testSig1, detail.Signature)
	assert.Equal(t, uint64(100), detail.Slot)
	assert.Equal(t, int64(1700000000), detail.BlockTime.Unix())
	assert.False(t, detail.Failed)
	assert.Nil(t, detail.Err)
	assert.Equal(t, []uint64{5_000_000_000, 0, 1}, detail.PreBalances)
	assert.Equal(t, []uint64{3_500_000_000, 0, 1}, detail.PostBalances)
	assert.Equal(t, []solana.PublicKey{nftMint}, detail.PostTokenMints)

	// Lookup-table addresses stay out of the static keys
	assert.Equal(t, []solana.PublicKey{buyer, nftMint, magicEden}, detail.AccountKeys)
	assert.Equal(t, []solana.PublicKey{lookupEntry}, detail.LoadedKeys)
}

func TestFetchDetail_FailedOnChain(t *testing.T) {
	tx := &solana.Transaction{
		Message: solana.Message{AccountKeys: []solana.PublicKey{buyer, magicEden}},
	}
	mock := &mockRPCClient{
		transactions: map[string]*rpc.GetTransactionResult{
			testSig1.String(): {
				Transaction: makeTransactionEnvelope(t, tx),
				Meta: &rpc.TransactionMeta{
					Err:          map[string]interface{}{"InstructionError": []interface{}{0, "Custom"}},
					PreBalances:  []uint64{10, 0},
					PostBalances: []uint64{5, 0},
				},
			},
		},
	}

	detail, err := newTestClient(mock).FetchDetail(context.Background(), testSig1)
	require.NoError(t, err)
	assert.True(t, detail.Failed)
	require.NotNil(t, detail.Err)
	assert.Contains(t, *detail.Err, "InstructionError")
}

func TestFetchDetail_NotFound(t *testing.T) {
	mock := &mockRPCClient{}

	detail, err := newTestClient(mock).FetchDetail(context.Background(), testSig1)
	require.Error(t, err)
	assert.Nil(t, detail)
	assert.ErrorIs(t, err, ErrTransactionNotFound)
}

func TestFetchDetail_MissingMeta(t *testing.T) {
	mock := &mockRPCClient{
		transactions: map[string]*rpc.GetTransactionResult{
			testSig1.String(): {Slot: 1},
		},
	}

	_, err := newTestClient(mock).FetchDetail(context.Background(), testSig1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no meta")
}

func TestGetAccountData(t *testing.T) {
	t.Run("returns raw bytes", func(t *testing.T) {
		var result rpc.GetAccountInfoResult
		raw := `{"context":{"slot":1},"value":{"lamports":1,"owner":"11111111111111111111111111111111","data":["AQID","base64"],"executable":false,"rentEpoch":0}}`
		require.NoError(t, json.Unmarshal([]byte(raw), &result))

		mock := &mockRPCClient{
			accounts: map[string]*rpc.GetAccountInfoResult{magicEden.String(): &result},
		}

		data, err := newTestClient(mock).GetAccountData(context.Background(), magicEden)
		require.NoError(t, err)
		assert.Equal(t, []byte{1, 2, 3}, data)
	})

	t.Run("missing account", func(t *testing.T) {
		_, err := newTestClient(&mockRPCClient{}).GetAccountData(context.Background(), magicEden)
		require.Error(t, err)
		assert.ErrorIs(t, err, rpc.ErrNotFound)
	})
}
