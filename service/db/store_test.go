package db

import (
	"context"
	"testing"
	"time"

	"github.com/brojonat/salesbot/service/sales"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSaleEvent(signature string, blockTime time.Time) *sales.SaleEvent {
	return &sales.SaleEvent{
		Title:              "Degen Ape #1",
		Price:              decimal.RequireFromString("1.5"),
		Lamports:           1_500_000_000,
		Timestamp:          blockTime,
		Signature:          signature,
		Marketplace:        "Magic Eden",
		MarketplaceAccount: "MEisE1HzehtrDpAAT8PnLHjpSSkRYakotTuJRPjTpo8",
		ImageURL:           "https://arweave.net/ape.png",
		Mint:               "So11111111111111111111111111111111111111112",
		Address:            "project1",
	}
}

func TestParamsFromSale(t *testing.T) {
	now := time.Now().UTC()
	params := ParamsFromSale(testSaleEvent("sig1", now))

	assert.Equal(t, "sig1", params.Signature)
	assert.Equal(t, "project1", params.ProjectAddress)
	assert.Equal(t, int64(1_500_000_000), params.Lamports)
	assert.True(t, decimal.RequireFromString("1.5").Equal(params.Price))
	require.NotNil(t, params.ImageURL)
	assert.Equal(t, "https://arweave.net/ape.png", *params.ImageURL)
	assert.Equal(t, now, params.BlockTime)

	noImage := testSaleEvent("sig2", now)
	noImage.ImageURL = ""
	assert.Nil(t, ParamsFromSale(noImage).ImageURL)
}

func TestCreateSale(t *testing.T) {
	SkipIfNoTestDB(t)

	store := NewTestStore(t)
	defer store.Close()
	defer store.Cleanup(t)

	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	t.Run("archive new sale", func(t *testing.T) {
		created, err := store.CreateSale(ctx, ParamsFromSale(testSaleEvent("sig123", now)))
		require.NoError(t, err)
		assert.True(t, created)

		sale, err := store.GetSale(ctx, "sig123")
		require.NoError(t, err)
		assert.Equal(t, "project1", sale.ProjectAddress)
		assert.Equal(t, "Magic Eden", sale.Marketplace)
		assert.Equal(t, "Degen Ape #1", sale.Title)
		assert.True(t, decimal.RequireFromString("1.5").Equal(sale.Price), "price = %s", sale.Price)
		assert.Equal(t, int64(1_500_000_000), sale.Lamports)
		require.NotNil(t, sale.ImageURL)
		assert.WithinDuration(t, now, sale.BlockTime, time.Microsecond)
		assert.WithinDuration(t, time.Now(), sale.CreatedAt, 5*time.Second)
	})

	t.Run("duplicate signature is ignored", func(t *testing.T) {
		dup := testSaleEvent("sig123", now)
		dup.Title = "Changed"

		created, err := store.CreateSale(ctx, ParamsFromSale(dup))
		require.NoError(t, err)
		assert.False(t, created)

		sale, err := store.GetSale(ctx, "sig123")
		require.NoError(t, err)
		assert.Equal(t, "Degen Ape #1", sale.Title)
	})

	t.Run("missing sale", func(t *testing.T) {
		_, err := store.GetSale(ctx, "nope")
		assert.ErrorIs(t, err, ErrSaleNotFound)
	})
}

func TestListSales(t *testing.T) {
	SkipIfNoTestDB(t)

	store := NewTestStore(t)
	defer store.Close()
	defer store.Cleanup(t)

	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Microsecond)

	for i, sig := range []string{"old", "mid", "new"} {
		sale := testSaleEvent(sig, base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, store.NotifySale(ctx, sale))
	}
	other := testSaleEvent("elsewhere", base)
	other.Address = "project2"
	other.Marketplace = "Solanart"
	require.NoError(t, store.NotifySale(ctx, other))

	got, err := store.ListSales(ctx, ListSalesParams{ProjectAddress: "project1"})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "new", got[0].Signature)
	assert.Equal(t, "old", got[2].Signature)

	got, err = store.ListSales(ctx, ListSalesParams{Marketplace: "Solanart"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "elsewhere", got[0].Signature)

	got, err = store.ListSales(ctx, ListSalesParams{ProjectAddress: "project1", Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "mid", got[0].Signature)
}
