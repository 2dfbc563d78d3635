package sales

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/brojonat/salesbot/service/metrics"
)

// Notifier delivers a sale to one external channel.
type Notifier interface {
	NotifySale(ctx context.Context, sale *SaleEvent) error
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, sale *SaleEvent) error

func (f NotifierFunc) NotifySale(ctx context.Context, sale *SaleEvent) error {
	return f(ctx, sale)
}

// Sink names a Notifier for logging and metrics.
type Sink struct {
	Name     string
	Notifier Notifier
}

// MultiNotifier delivers to every sink in order. A failing sink does not
// stop the others; all failures are joined into the returned error.
type MultiNotifier struct {
	sinks   []Sink
	metrics *metrics.Metrics
}

// NewMultiNotifier creates a fan-out notifier over sinks. Nil notifiers are dropped.
func NewMultiNotifier(m *metrics.Metrics, sinks ...Sink) *MultiNotifier {
	kept := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s.Notifier != nil {
			kept = append(kept, s)
		}
	}
	return &MultiNotifier{sinks: kept, metrics: m}
}

// Sinks returns the names of the configured sinks, in delivery order.
func (mn *MultiNotifier) Sinks() []string {
	names := make([]string, len(mn.sinks))
	for i, s := range mn.sinks {
		names[i] = s.Name
	}
	return names
}

func (mn *MultiNotifier) NotifySale(ctx context.Context, sale *SaleEvent) error {
	var errs []error
	for _, s := range mn.sinks {
		start := time.Now()
		err := s.Notifier.NotifySale(ctx, sale)
		mn.metrics.RecordNotification(s.Name, time.Since(start).Seconds(), err)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name, err))
		}
	}
	return errors.Join(errs...)
}
