package gas

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/michaelpento.lv/ourbitrage/chain"
	"github.com/michaelpento.lv/ourbitrage/routes"
	"github.com/michaelpento.lv/ourbitrage/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Estimator is the gas estimation half of chain.Contract
type Estimator interface {
	EstimateGas(ctx context.Context, method string, tx chain.TxTemplate, args ...interface{}) (uint64, error)
}

// EstimateCache holds one gas estimate per catalog route, indexed by route
// position. It is filled once at startup and never refreshed.
type EstimateCache struct {
	estimates []types.GasEstimate
}

// NewEstimateCache wraps precomputed estimates
func NewEstimateCache(estimates []types.GasEstimate) *EstimateCache {
	cp := make([]types.GasEstimate, len(estimates))
	copy(cp, estimates)
	return &EstimateCache{estimates: cp}
}

// Get returns the estimate of the route at index i
func (c *EstimateCache) Get(i int) types.GasEstimate {
	return c.estimates[i]
}

// Len returns the number of cached estimates
func (c *EstimateCache) Len() int {
	return len(c.estimates)
}

// Failing returns the number of routes disabled by estimation failures
func (c *EstimateCache) Failing() int {
	n := 0
	for _, e := range c.estimates {
		if e.Failing {
			n++
		}
	}
	return n
}

// Equal reports whether both caches hold the same estimates in the same order
func (c *EstimateCache) Equal(other *EstimateCache) bool {
	if other == nil || len(c.estimates) != len(other.estimates) {
		return false
	}
	for i := range c.estimates {
		if c.estimates[i] != other.estimates[i] {
			return false
		}
	}
	return true
}

// Warmup estimates the gas of every route concurrently using a transaction
// from owner capped at gasLimitCap. A route whose estimation fails, or returns
// exactly the cap, is marked failing for the life of the process.
func Warmup(ctx context.Context, estimator Estimator, catalog *routes.Catalog, owner common.Address, gasLimitCap uint64, logger *zap.Logger) *EstimateCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	tx := chain.TxTemplate{From: owner, GasLimit: gasLimitCap}
	estimates := make([]types.GasEstimate, catalog.Len())

	var g errgroup.Group
	for i := 0; i < catalog.Len(); i++ {
		i := i
		route := catalog.At(i)
		g.Go(func() error {
			estimates[i] = estimateRoute(ctx, estimator, route, tx, logger)
			return nil
		})
	}
	_ = g.Wait()

	return &EstimateCache{estimates: estimates}
}

func estimateRoute(ctx context.Context, estimator Estimator, route types.Route, tx chain.TxTemplate, logger *zap.Logger) types.GasEstimate {
	gas, err := estimator.EstimateGas(ctx, route.Method, tx, route.FundingToken)
	if err != nil {
		logger.Warn("Gas estimation failed, route disabled",
			zap.String("route", route.ID()),
			zap.Error(err),
		)
		return types.GasEstimate{GasUnits: tx.GasLimit, Failing: true}
	}

	failing := gas == tx.GasLimit
	if failing {
		logger.Warn("Gas estimation hit the cap, route disabled",
			zap.String("route", route.ID()),
			zap.Uint64("gas", gas),
		)
	} else {
		logger.Debug("Gas estimated",
			zap.String("route", route.ID()),
			zap.Uint64("gas", gas),
		)
	}
	return types.GasEstimate{GasUnits: gas, Failing: failing}
}
