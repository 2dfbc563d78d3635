package discord

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/brojonat/salesbot/service/sales"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSale() *sales.SaleEvent {
	return &sales.SaleEvent{
		Title:       "Degen Ape #1",
		Price:       decimal.RequireFromString("1.5"),
		Timestamp:   time.Date(2021, 11, 5, 14, 30, 0, 0, time.UTC),
		Signature:   "5sig",
		Marketplace: "Magic Eden",
		ImageURL:    "https://arweave.net/ape.png",
	}
}

func TestBuildPayload(t *testing.T) {
	p := BuildPayload(testSale())

	require.Len(t, p.Embeds, 1)
	e := p.Embeds[0]
	assert.Equal(t, "SALE", e.Title)
	assert.Equal(t, "Degen Ape #1", e.Description)
	assert.Equal(t, []EmbedField{
		{Name: "Price", Value: "1.5 SOL", Inline: true},
		{Name: "Date", Value: "11/5/2021, 2:30:00 PM UTC", Inline: true},
		{Name: "Explorer", Value: "https://explorer.solana.com/tx/5sig"},
	}, e.Fields)
	require.NotNil(t, e.Image)
	assert.Equal(t, "https://arweave.net/ape.png", e.Image.URL)
}

func TestBuildPayload_NoImage(t *testing.T) {
	sale := testSale()
	sale.ImageURL = ""
	assert.Nil(t, BuildPayload(sale).Embeds[0].Image)
}

func TestWebhook_NotifySale(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	hook, err := NewWebhook(server.URL, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	require.NoError(t, hook.NotifySale(context.Background(), testSale()))

	embeds, ok := got["embeds"].([]any)
	require.True(t, ok)
	require.Len(t, embeds, 1)
	embed := embeds[0].(map[string]any)
	assert.Equal(t, "SALE", embed["title"])
	assert.Equal(t, "Degen Ape #1", embed["description"])
	assert.Equal(t, map[string]any{"url": "https://arweave.net/ape.png"}, embed["image"])
}

func TestWebhook_ErrorStatus(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"message":"You are being rate limited."}`))
	}))
	defer server.Close()

	hook, err := NewWebhook(server.URL, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	err = hook.NotifySale(context.Background(), testSale())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrWebhookStatus)
	assert.Contains(t, err.Error(), "429")
	assert.Equal(t, 1, calls, "delivery is not retried")
}

func TestNewWebhook_RequiresURL(t *testing.T) {
	_, err := NewWebhook("", nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Error(t, err)
}
