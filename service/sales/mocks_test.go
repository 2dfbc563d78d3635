package sales

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/brojonat/salesbot/service/metadata"
	"github.com/brojonat/salesbot/service/solana"
	solanago "github.com/gagliardetto/solana-go"
)

const (
	magicEdenAccount   = "MEisE1HzehtrDpAAT8PnLHjpSSkRYakotTuJRPjTpo8"
	solanartAccount    = "CJsLwbP1iu5DuUikHEJnLfANgKy6stB2uFgvBBHoyxwz"
	unsupportedAccount = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
)

var (
	testMint    = solanago.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")
	testAddress = solanago.MustPublicKeyFromBase58("9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin")
	testBuyer   = solanago.SystemProgramID
)

// fetchCall is one scripted response to FetchReferences.
type fetchCall struct {
	refs []solana.Reference
	err  error
}

// mockLogSource replays scripted fetch responses and serves details by signature.
type mockLogSource struct {
	mu      sync.Mutex
	calls   []fetchCall
	details map[solanago.Signature]*solana.TransactionDetail
	// detailErr overrides FetchDetail for specific signatures.
	detailErr map[solanago.Signature]error

	untils        []*solanago.Signature
	detailQueries []solanago.Signature
}

func newMockLogSource() *mockLogSource {
	return &mockLogSource{
		details:   make(map[solanago.Signature]*solana.TransactionDetail),
		detailErr: make(map[solanago.Signature]error),
	}
}

func (m *mockLogSource) FetchReferences(ctx context.Context, address solanago.PublicKey, until *solanago.Signature) ([]solana.Reference, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if until != nil {
		c := *until
		m.untils = append(m.untils, &c)
	} else {
		m.untils = append(m.untils, nil)
	}

	if len(m.calls) == 0 {
		return nil, nil
	}
	next := m.calls[0]
	m.calls = m.calls[1:]
	return next.refs, next.err
}

func (m *mockLogSource) FetchDetail(ctx context.Context, signature solanago.Signature) (*solana.TransactionDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.detailQueries = append(m.detailQueries, signature)
	if err, ok := m.detailErr[signature]; ok {
		return nil, err
	}
	d, ok := m.details[signature]
	if !ok {
		return nil, solana.ErrTransactionNotFound
	}
	return d, nil
}

// mockMetadata returns a fixed NFT or error for every mint.
type mockMetadata struct {
	nft   *metadata.NFT
	err   error
	mints []solanago.PublicKey
}

func (m *mockMetadata) Fetch(ctx context.Context, mint solanago.PublicKey) (*metadata.NFT, error) {
	m.mints = append(m.mints, mint)
	if m.err != nil {
		return nil, m.err
	}
	return m.nft, nil
}

// recordingNotifier stores delivered sales and can be told to fail.
type recordingNotifier struct {
	mu    sync.Mutex
	sales []*SaleEvent
	err   error
}

func (r *recordingNotifier) NotifySale(ctx context.Context, sale *SaleEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sales = append(r.sales, sale)
	return r.err
}

func (r *recordingNotifier) delivered() []*SaleEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*SaleEvent(nil), r.sales...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func bufferLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}

func testNFT(name, image string) *metadata.NFT {
	return &metadata.NFT{
		Mint:   testMint,
		Record: &metadata.Record{Name: name, Mint: testMint},
		OffChain: &metadata.OffChain{
			Name:  name,
			Image: image,
		},
	}
}

func sig(b byte) solanago.Signature {
	return solanago.Signature{b}
}

func ref(b byte) solana.Reference {
	return solana.Reference{Signature: sig(b)}
}

// saleDetail builds a successful transaction ending at marketplace.
func saleDetail(s solanago.Signature, pre, post uint64, marketplace string) *solana.TransactionDetail {
	return &solana.TransactionDetail{
		Signature:    s,
		Slot:         100,
		BlockTime:    time.Date(2021, 11, 5, 14, 30, 0, 0, time.UTC),
		PreBalances:  []uint64{pre, 5000},
		PostBalances: []uint64{post, 5000},
		AccountKeys: []solanago.PublicKey{
			testBuyer,
			solanago.MustPublicKeyFromBase58(marketplace),
		},
		PostTokenMints: []solanago.PublicKey{testMint},
	}
}

func failedDetail(s solanago.Signature) *solana.TransactionDetail {
	d := saleDetail(s, 2_000_000_000, 500_000_000, magicEdenAccount)
	d.Failed = true
	msg := "InstructionError"
	d.Err = &msg
	return d
}

var errRPC = errors.New("rpc unavailable")
