package bot

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/michaelpento.lv/ourbitrage/chain"
	"github.com/michaelpento.lv/ourbitrage/config"
	"github.com/michaelpento.lv/ourbitrage/types"
	"github.com/michaelpento.lv/ourbitrage/utils"
	"go.uber.org/zap"
)

// DefaultInterval separates the starts of consecutive cycles
const DefaultInterval = 5 * time.Second

// CycleRunner runs one polling cycle
type CycleRunner interface {
	RunCycle(ctx context.Context) (*types.ArbitrationResult, error)
}

// Options tunes the loop pacing
type Options struct {
	Interval time.Duration
	Sleep    chain.Sleeper
	Now      func() time.Time
}

// Bot drives polling cycles one after another
type Bot struct {
	runner   CycleRunner
	interval time.Duration
	sleep    chain.Sleeper
	now      func() time.Time
	logger   *zap.Logger
}

// New creates a new bot instance
func New(runner CycleRunner, opts Options, logger *zap.Logger) *Bot {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Sleep == nil {
		opts.Sleep = chain.SleepContext
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bot{
		runner:   runner,
		interval: opts.Interval,
		sleep:    opts.Sleep,
		now:      opts.Now,
		logger:   logger,
	}
}

// Run executes cycles until ctx is cancelled or a cycle fails. A new cycle
// starts one interval after the previous one started, or immediately if the
// previous one overran. Cancellation is a clean stop and returns nil.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("Starting arbitrage monitor", zap.Duration("interval", b.interval))

	for cycle := 1; ; cycle++ {
		if ctx.Err() != nil {
			b.logger.Info("Stopping arbitrage monitor")
			return nil
		}

		start := b.now()
		result, err := b.runner.RunCycle(ctx)
		elapsed := b.now().Sub(start)

		if err != nil {
			if ctx.Err() != nil && errors.Is(err, context.Canceled) {
				b.logger.Info("Stopping arbitrage monitor", zap.Error(err))
				return nil
			}
			return fmt.Errorf("cycle %d failed: %w", cycle, err)
		}

		fields := []zap.Field{
			zap.Int("cycle", cycle),
			zap.String("execution_time", utils.FormatDuration(elapsed)),
			zap.Bool("executed", result != nil),
		}
		if result != nil {
			fields = append(fields, zap.String("tx_hash", result.TxHash.Hex()))
		}
		b.logger.Info("Cycle finished", fields...)

		if ctx.Err() != nil {
			continue
		}
		if wait := b.interval - elapsed; wait > 0 {
			if err := b.sleep(ctx, wait); err != nil {
				continue
			}
		}
	}
}

// ChainInfo is what the startup banner reports about the node and contract
type ChainInfo interface {
	Address() common.Address
	Version(ctx context.Context) (string, error)
	NetworkID(ctx context.Context) (*big.Int, error)
	ChainID(ctx context.Context) (*big.Int, error)
	PeerCount(ctx context.Context) (uint64, error)
}

// LogBanner logs the environment, contract and node the monitor runs against.
// Lookups that fail are reported and skipped.
func LogBanner(ctx context.Context, info ChainInfo, cfg *config.Config, logger *zap.Logger) {
	fields := []zap.Field{
		zap.String("environment", cfg.Environment),
		zap.String("contract", info.Address().Hex()),
		zap.String("owner", cfg.OwnerAddress().Hex()),
		zap.String("network_version", cfg.Network.NetworkVersion),
	}

	if v, err := info.Version(ctx); err != nil {
		logger.Warn("Contract version unavailable", zap.Error(err))
	} else {
		fields = append(fields, zap.String("contract_version", v))
	}
	if id, err := info.NetworkID(ctx); err != nil {
		logger.Warn("Network id unavailable", zap.Error(err))
	} else {
		fields = append(fields, zap.String("network_id", id.String()))
	}
	if id, err := info.ChainID(ctx); err != nil {
		logger.Warn("Chain id unavailable", zap.Error(err))
	} else {
		fields = append(fields, zap.String("chain_id", id.String()))
	}
	if n, err := info.PeerCount(ctx); err != nil {
		logger.Warn("Peer count unavailable", zap.Error(err))
	} else {
		fields = append(fields, zap.Uint64("peers", n))
	}

	logger.Info("Ourbitrage arbitrage monitor", fields...)
}
