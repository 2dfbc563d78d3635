package sales

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/brojonat/salesbot/service/metrics"
	"github.com/brojonat/salesbot/service/solana"
	solanago "github.com/gagliardetto/solana-go"
)

// DefaultPollInterval is how long the poller idles after an empty fetch.
const DefaultPollInterval = 2 * time.Second

// ItemProcessor handles one reference. Processor satisfies it.
type ItemProcessor interface {
	Process(ctx context.Context, ref solana.Reference) Outcome
}

// PollerConfig holds the poller's tunables.
type PollerConfig struct {
	Address      solanago.PublicKey
	PollInterval time.Duration // zero means DefaultPollInterval
	RetryPolicy  RetryPolicy   // nil means NoBackoff
}

// Poller owns the signature cursor and the retrieval loop.
// The cursor lives in memory only and is touched by the Run goroutine alone.
type Poller struct {
	source    LogSource
	processor ItemProcessor
	address   solanago.PublicKey
	interval  time.Duration
	retry     RetryPolicy
	cursor    *solanago.Signature
	sleep     func(ctx context.Context, d time.Duration) error
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewPoller creates a poller starting from an unbounded cursor.
func NewPoller(source LogSource, processor ItemProcessor, cfg PollerConfig, m *metrics.Metrics, logger *slog.Logger) *Poller {
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	retry := cfg.RetryPolicy
	if retry == nil {
		retry = NoBackoff{}
	}
	return &Poller{
		source:    source,
		processor: processor,
		address:   cfg.Address,
		interval:  interval,
		retry:     retry,
		sleep:     sleepCtx,
		metrics:   m,
		logger:    logger,
	}
}

// Cursor returns the newest signature already processed, or nil before the first batch.
func (p *Poller) Cursor() *solanago.Signature {
	if p.cursor == nil {
		return nil
	}
	c := *p.cursor
	return &c
}

// Run polls until ctx is cancelled. Fetch failures are logged and retried
// according to the retry policy; they never end the loop.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.InfoContext(ctx, "starting sales bot",
		"address", p.address.String(),
		"poll_interval", p.interval,
	)

	failures := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := p.PollOnce(ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			failures++
			p.logger.ErrorContext(ctx, "could not fetch signatures",
				"error", err,
				"consecutive_failures", failures,
			)
			if d := p.retry.Delay(failures, err); d > 0 {
				if err := p.sleep(ctx, d); err != nil {
					return err
				}
			}
			continue
		}
		failures = 0

		if n == 0 {
			p.logger.DebugContext(ctx, "polling for signatures")
			if err := p.sleep(ctx, p.interval); err != nil {
				return err
			}
		}
	}
}

// PollOnce fetches the references newer than the cursor, processes them
// oldest first, then moves the cursor to the newest one. It returns the
// number of references processed. On a fetch error the cursor is unchanged.
func (p *Poller) PollOnce(ctx context.Context) (int, error) {
	address := p.address.String()

	refs, err := p.source.FetchReferences(ctx, p.address, p.cursor)
	if err != nil {
		p.metrics.RecordPollCycle(address, "fetch_error")
		return 0, err
	}
	if len(refs) == 0 {
		p.metrics.RecordPollCycle(address, "empty")
		return 0, nil
	}
	p.metrics.RecordPollCycle(address, "batch")

	outcomes := make(map[Outcome]int)
	for i := len(refs) - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			// Stop without moving the cursor past unattempted references.
			return len(refs) - 1 - i, fmt.Errorf("batch interrupted: %w", err)
		}
		outcomes[p.processor.Process(ctx, refs[i])]++
	}

	newest := refs[0].Signature
	p.cursor = &newest
	p.metrics.RecordCursorAdvance(address)

	p.logger.DebugContext(ctx, "processed batch",
		"count", len(refs),
		"notified", outcomes[OutcomeNotified],
		"cursor", newest.String(),
	)
	return len(refs), nil
}
