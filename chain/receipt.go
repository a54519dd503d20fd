package chain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
)

// ErrReceiptTimeout is returned when MaxAttempts polls found no receipt
var ErrReceiptTimeout = errors.New("transaction receipt not found")

// ReceiptSource looks up transaction receipts
type ReceiptSource interface {
	GetReceipt(ctx context.Context, hash common.Hash) (*ethtypes.Receipt, error)
}

// Sleeper blocks for d or until ctx is done
type Sleeper func(ctx context.Context, d time.Duration) error

// WaiterConfig configures a ReceiptWaiter
type WaiterConfig struct {
	Interval time.Duration
	// MaxAttempts bounds the number of receipt queries; zero polls until mined
	MaxAttempts int
	// Sleep defaults to a context-aware timer
	Sleep Sleeper
	// OnPoll is called after every receipt query
	OnPoll func()
}

// ReceiptWaiter polls for a transaction receipt until it is mined
type ReceiptWaiter struct {
	source ReceiptSource
	cfg    WaiterConfig
	logger *zap.Logger
}

// NewReceiptWaiter creates a new receipt waiter
func NewReceiptWaiter(source ReceiptSource, cfg WaiterConfig, logger *zap.Logger) *ReceiptWaiter {
	if cfg.Sleep == nil {
		cfg.Sleep = SleepContext
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 3 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReceiptWaiter{source: source, cfg: cfg, logger: logger}
}

// Wait returns the receipt for hash once it is available. Query errors are
// returned immediately; only a missing receipt is retried.
func (w *ReceiptWaiter) Wait(ctx context.Context, hash common.Hash) (*ethtypes.Receipt, error) {
	for attempt := 1; ; attempt++ {
		receipt, err := w.source.GetReceipt(ctx, hash)
		if w.cfg.OnPoll != nil {
			w.cfg.OnPoll()
		}
		if err != nil {
			return nil, fmt.Errorf("receipt query for %s failed: %w", hash.Hex(), err)
		}
		if receipt != nil {
			w.logger.Debug("Transaction confirmed",
				zap.String("tx_hash", hash.Hex()),
				zap.Int("attempts", attempt),
				zap.Uint64("status", receipt.Status),
			)
			return receipt, nil
		}

		if w.cfg.MaxAttempts > 0 && attempt >= w.cfg.MaxAttempts {
			return nil, fmt.Errorf("%w: %s after %d attempts", ErrReceiptTimeout, hash.Hex(), attempt)
		}

		w.logger.Debug("Waiting for receipt",
			zap.String("tx_hash", hash.Hex()),
			zap.Int("attempt", attempt),
			zap.Duration("retry_in", w.cfg.Interval),
		)
		if err := w.cfg.Sleep(ctx, w.cfg.Interval); err != nil {
			return nil, err
		}
	}
}

// SleepContext sleeps for d unless ctx is cancelled first
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
