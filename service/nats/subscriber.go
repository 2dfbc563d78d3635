package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// WatchOptions selects which sales a Watch call receives.
type WatchOptions struct {
	// ProjectAddress filters to one project; empty watches every project.
	ProjectAddress string
	// Durable names a consumer that survives restarts; empty is ephemeral.
	Durable string
	// DeliverAll replays the retained stream instead of starting at new messages.
	DeliverAll bool
}

// Watch streams sale messages to handle until ctx is done. Messages that
// fail to decode are logged and acked.
func Watch(ctx context.Context, natsURL string, opts WatchOptions, logger *slog.Logger, handle func(*SaleMessage) error) error {
	nc, err := nats.Connect(natsURL, nats.Name("salesbot-watch"))
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}
	defer nc.Close()

	js, err := jetstream.New(nc)
	if err != nil {
		return fmt.Errorf("failed to create JetStream context: %w", err)
	}

	cons, err := js.CreateOrUpdateConsumer(ctx, StreamName, ConsumerConfig(opts))
	if err != nil {
		return fmt.Errorf("failed to create consumer: %w", err)
	}

	msgChan := make(chan jetstream.Msg, 10)
	consumeCtx, err := cons.Consume(func(msg jetstream.Msg) {
		select {
		case msgChan <- msg:
		case <-ctx.Done():
		}
	})
	if err != nil {
		return fmt.Errorf("failed to start consumer: %w", err)
	}
	defer consumeCtx.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-msgChan:
			var sale SaleMessage
			if err := json.Unmarshal(msg.Data(), &sale); err != nil {
				logger.Error("failed to parse sale event", "subject", msg.Subject(), "error", err)
				_ = msg.Ack()
				continue
			}
			if err := handle(&sale); err != nil {
				_ = msg.Nak()
				return err
			}
			_ = msg.Ack()
		}
	}
}

// ConsumerConfig builds the JetStream consumer for opts.
func ConsumerConfig(opts WatchOptions) jetstream.ConsumerConfig {
	cfg := jetstream.ConsumerConfig{
		FilterSubject: StreamSubjects,
		AckPolicy:     jetstream.AckExplicitPolicy,
		DeliverPolicy: jetstream.DeliverNewPolicy,
	}
	if opts.ProjectAddress != "" {
		cfg.FilterSubject = Subject(opts.ProjectAddress)
	}
	if opts.DeliverAll {
		cfg.DeliverPolicy = jetstream.DeliverAllPolicy
	}
	if opts.Durable != "" {
		cfg.Durable = opts.Durable
		cfg.Name = opts.Durable
	}
	return cfg
}
