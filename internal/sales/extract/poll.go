package extract

import (
	"context"
	"fmt"
	"time"

	"github.com/bobmcallan/storetally/internal/models"
)

// RowFetcher re-reads the summary rows from the loaded report page.
type RowFetcher func(ctx context.Context) ([]models.SummaryRow, error)

// PollConfig bounds the readiness poll.
type PollConfig struct {
	Interval    time.Duration
	Timeout     time.Duration
	MaxAttempts int
}

// DefaultPollConfig waits up to 30s, checking every 2s.
func DefaultPollConfig() PollConfig {
	return PollConfig{
		Interval:    2 * time.Second,
		Timeout:     30 * time.Second,
		MaxAttempts: 15,
	}
}

// Poll fetches rows until a non-stale figure appears, the attempts run out or the
// timeout elapses. A figure that stays Stale is confirmed as Zero only after at
// least two consecutive stale reads one interval apart; with a single stale read
// the result stays Stale. Fetch errors are retried; the last one is returned if
// nothing usable was read.
func (e *Extractor) Poll(ctx context.Context, fetch RowFetcher, cfg PollConfig) (Result, error) {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultPollConfig().Interval
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultPollConfig().MaxAttempts
	}
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	last := Result{Status: NotFound}
	var lastErr error
	sawResult := false
	staleReads := 0

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		rows, err := fetch(ctx)
		if err != nil {
			lastErr = err
		} else {
			sawResult = true
			lastErr = nil
			last = e.NetSales(rows)
			switch last.Status {
			case Found:
				return last, nil
			case Stale:
				staleReads++
			default:
				staleReads = 0
			}
		}

		if attempt == cfg.MaxAttempts {
			break
		}
		timer := time.NewTimer(cfg.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return settle(last, sawResult, staleReads, lastErr)
		case <-timer.C:
		}
	}
	return settle(last, sawResult, staleReads, lastErr)
}

// MinStaleReads is how many consecutive stale reads confirm a genuine zero.
const MinStaleReads = 2

func settle(last Result, sawResult bool, staleReads int, lastErr error) (Result, error) {
	if !sawResult && lastErr != nil {
		return last, fmt.Errorf("reading summary rows: %w", lastErr)
	}
	if last.Status == Stale && staleReads >= MinStaleReads {
		last.Status = Zero
	}
	return last, nil
}
