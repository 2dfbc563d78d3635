package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/brojonat/salesbot/service/sales"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// Publisher defines the interface for publishing sale events to NATS.
type Publisher interface {
	// PublishSale publishes a single sale to JetStream on
	// the subject "sales.{project_address}".
	PublishSale(ctx context.Context, msg *SaleMessage) error

	// Close closes the connection to NATS.
	Close() error
}

// JetStreamPublisher publishes sale events to NATS JetStream.
type JetStreamPublisher struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	logger *slog.Logger
}

const (
	// StreamName is the name of the JetStream stream for sales.
	StreamName = "SALES"

	// SubjectPrefix is the first token of every sale subject.
	SubjectPrefix = "sales"

	// StreamSubjects is the subject pattern for the stream.
	StreamSubjects = SubjectPrefix + ".*"

	// StreamRetention is how long messages are retained (30 days by default).
	StreamRetention = 30 * 24 * time.Hour
)

// NewPublisher creates a new JetStream publisher.
// It connects to NATS and ensures the stream exists.
func NewPublisher(natsURL string, logger *slog.Logger) (*JetStreamPublisher, error) {
	nc, err := nats.Connect(natsURL,
		nats.Name("salesbot-publisher"),
		nats.Timeout(10*time.Second),
		nats.ReconnectWait(1*time.Second),
		nats.MaxReconnects(-1), // Unlimited reconnects
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	publisher := &JetStreamPublisher{
		nc:     nc,
		js:     js,
		logger: logger,
	}

	if err := publisher.ensureStream(); err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to ensure stream exists: %w", err)
	}

	logger.Info("NATS publisher initialized",
		"url", natsURL,
		"stream", StreamName,
	)

	return publisher, nil
}

// ensureStream creates the JetStream stream if it doesn't exist.
func (p *JetStreamPublisher) ensureStream() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stream, err := p.js.Stream(ctx, StreamName)
	if err == nil {
		info, err := stream.Info(ctx)
		if err == nil {
			p.logger.Debug("JetStream stream already exists",
				"stream", StreamName,
				"messages", info.State.Msgs,
			)
		}
		return nil
	}

	p.logger.Info("creating JetStream stream", "stream", StreamName)

	_, err = p.js.CreateStream(ctx, StreamConfig())
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}

	p.logger.Info("JetStream stream created successfully", "stream", StreamName)
	return nil
}

// StreamConfig is the configuration of the SALES stream. Duplicate
// publishes of the same signature inside the window are dropped.
func StreamConfig() jetstream.StreamConfig {
	return jetstream.StreamConfig{
		Name:        StreamName,
		Description: "NFT marketplace sales for watched Solana projects",
		Subjects:    []string{StreamSubjects},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      StreamRetention,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Duplicates:  10 * time.Minute,
	}
}

// PublishSale publishes a single sale event.
func (p *JetStreamPublisher) PublishSale(ctx context.Context, msg *SaleMessage) error {
	subject := Subject(msg.ProjectAddress)

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal sale event: %w", err)
	}

	_, err = p.js.Publish(ctx, subject, data, jetstream.WithMsgID(msg.Signature))
	if err != nil {
		return fmt.Errorf("failed to publish sale: %w", err)
	}

	p.logger.Debug("published sale event",
		"subject", subject,
		"signature", msg.Signature,
		"marketplace", msg.Marketplace,
	)

	return nil
}

// Close closes the connection to NATS.
func (p *JetStreamPublisher) Close() error {
	if p.nc != nil {
		p.nc.Close()
		p.logger.Info("NATS publisher closed")
	}
	return nil
}

// SaleNotifier adapts a Publisher to sales.Notifier.
type SaleNotifier struct {
	Publisher Publisher
}

func (n SaleNotifier) NotifySale(ctx context.Context, sale *sales.SaleEvent) error {
	return n.Publisher.PublishSale(ctx, FromSale(sale))
}
