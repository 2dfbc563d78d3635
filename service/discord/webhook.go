package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/brojonat/salesbot/service/sales"
	"github.com/go-resty/resty/v2"
)

// ErrWebhookStatus is returned when Discord answers with a non-2xx status.
var ErrWebhookStatus = errors.New("discord webhook returned error status")

// EmbedTitle is the fixed title of every sale embed.
const EmbedTitle = "SALE"

// Payload is the body of a webhook execute request.
type Payload struct {
	Embeds []Embed `json:"embeds"`
}

// Embed is a Discord rich embed.
type Embed struct {
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Fields      []EmbedField `json:"fields"`
	Image       *EmbedImage  `json:"image,omitempty"`
}

type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type EmbedImage struct {
	URL string `json:"url"`
}

// BuildPayload renders a sale as a single embed.
func BuildPayload(sale *sales.SaleEvent) Payload {
	embed := Embed{
		Title:       EmbedTitle,
		Description: sale.Title,
		Fields: []EmbedField{
			{Name: "Price", Value: sale.PriceString(), Inline: true},
			{Name: "Date", Value: sale.DateString(), Inline: true},
			{Name: "Explorer", Value: sale.ExplorerURL()},
		},
	}
	if sale.ImageURL != "" {
		embed.Image = &EmbedImage{URL: sale.ImageURL}
	}
	return Payload{Embeds: []Embed{embed}}
}

// Webhook posts sales to a Discord webhook URL. It satisfies sales.Notifier.
type Webhook struct {
	url    string
	client *resty.Client
	logger *slog.Logger
}

// NewWebhook creates a webhook notifier. A nil client gets a resty client
// with a 30 second timeout.
func NewWebhook(url string, client *resty.Client, logger *slog.Logger) (*Webhook, error) {
	if url == "" {
		return nil, fmt.Errorf("discord webhook URL cannot be empty")
	}
	if client == nil {
		client = resty.New().SetTimeout(30 * time.Second)
	}
	return &Webhook{url: url, client: client, logger: logger}, nil
}

// NotifySale posts one embed for sale. It makes a single attempt.
func (w *Webhook) NotifySale(ctx context.Context, sale *sales.SaleEvent) error {
	resp, err := w.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(BuildPayload(sale)).
		Post(w.url)
	if err != nil {
		return fmt.Errorf("post discord webhook: %w", err)
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("%w: %d %s", ErrWebhookStatus, resp.StatusCode(), resp.String())
	}

	w.logger.DebugContext(ctx, "sale posted to discord",
		"signature", sale.Signature,
		"status", resp.StatusCode(),
	)
	return nil
}
