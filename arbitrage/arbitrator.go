package arbitrage

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"
	"github.com/michaelpento.lv/ourbitrage/chain"
	"github.com/michaelpento.lv/ourbitrage/gas"
	"github.com/michaelpento.lv/ourbitrage/routes"
	"github.com/michaelpento.lv/ourbitrage/types"
	"github.com/michaelpento.lv/ourbitrage/utils/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrNotPrepared is returned by RunCycle before Prepare has run
var ErrNotPrepared = errors.New("arbitrator not prepared: gas estimates missing")

// GasPricer supplies the gas price of a cycle
type GasPricer interface {
	CurrentGasPrice(ctx context.Context) (*big.Int, error)
}

// ResultNotifier is told about every confirmed arbitration
type ResultNotifier interface {
	NotifyArbitration(ctx context.Context, result *types.ArbitrationResult) error
}

// Config holds the arbitrator's fixed parameters
type Config struct {
	Owner           common.Address
	Key             *ecdsa.PrivateKey
	GasLimitCap     uint64
	GasPriceCap     *big.Int
	MinProfitPerArb *big.Int
	NativeUnitScale *big.Int
	Receipts        chain.WaiterConfig
}

// Deps are the arbitrator's collaborators. Contract, Oracle and Catalog are
// required; the rest have defaults.
type Deps struct {
	Contract chain.Contract
	Oracle   GasPricer
	Catalog  *routes.Catalog
	Settler  Settler
	Notifier ResultNotifier
	History  *History
	Metrics  *metrics.ArbitratorMetrics
	Logger   *zap.Logger
}

// Arbitrator runs polling cycles: price gas, evaluate every route, execute
// the best one and wait for it to be mined.
type Arbitrator struct {
	cfg      Config
	contract chain.Contract
	oracle   GasPricer
	catalog  *routes.Catalog
	executor *Executor
	waiter   *chain.ReceiptWaiter
	settler  Settler
	notifier ResultNotifier
	history  *History
	metrics  *metrics.ArbitratorMetrics
	logger   *zap.Logger

	cache     *gas.EstimateCache
	evaluator *Evaluator
}

// NewArbitrator validates cfg and deps and fills in the optional collaborators
func NewArbitrator(cfg Config, deps Deps) (*Arbitrator, error) {
	if deps.Contract == nil {
		return nil, fmt.Errorf("arbitrator requires a contract")
	}
	if deps.Oracle == nil {
		return nil, fmt.Errorf("arbitrator requires a gas price oracle")
	}
	if deps.Catalog == nil || deps.Catalog.Len() == 0 {
		return nil, fmt.Errorf("arbitrator requires a non-empty route catalog")
	}
	if cfg.NativeUnitScale == nil || cfg.NativeUnitScale.Sign() <= 0 {
		return nil, fmt.Errorf("native unit scale must be positive")
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Settler == nil {
		deps.Settler = ZeroSettler{}
	}
	if deps.History == nil {
		h, err := NewHistory(DefaultHistorySize)
		if err != nil {
			return nil, err
		}
		deps.History = h
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewArbitratorMetrics(prometheus.NewRegistry(), "ourbitrage")
	}

	m := deps.Metrics
	receipts := cfg.Receipts
	onPoll := receipts.OnPoll
	receipts.OnPoll = func() {
		m.ReceiptPolls.Inc()
		if onPoll != nil {
			onPoll()
		}
	}

	return &Arbitrator{
		cfg:      cfg,
		contract: deps.Contract,
		oracle:   deps.Oracle,
		catalog:  deps.Catalog,
		executor: NewExecutor(deps.Contract, ExecutorConfig{
			Owner:       cfg.Owner,
			Key:         cfg.Key,
			GasLimitCap: cfg.GasLimitCap,
			GasPriceCap: cfg.GasPriceCap,
		}, logger.Named("executor")),
		waiter:   chain.NewReceiptWaiter(deps.Contract, receipts, logger.Named("receipts")),
		settler:  deps.Settler,
		notifier: deps.Notifier,
		history:  deps.History,
		metrics:  m,
		logger:   logger,
	}, nil
}

// Prepare estimates the gas of every route once. Routes whose estimation
// fails stay disabled for the life of the arbitrator.
func (a *Arbitrator) Prepare(ctx context.Context) *gas.EstimateCache {
	cache := gas.Warmup(ctx, a.contract, a.catalog, a.cfg.Owner, a.cfg.GasLimitCap, a.logger.Named("warmup"))
	a.cache = cache
	a.evaluator = NewEvaluator(a.contract, cache, EvaluatorConfig{
		MinProfitPerArb: a.cfg.MinProfitPerArb,
		NativeUnitScale: a.cfg.NativeUnitScale,
	}, a.logger.Named("evaluator"))

	a.metrics.DisabledRoutes.Set(float64(cache.Failing()))
	a.logger.Info("Gas estimates ready",
		zap.Int("routes", a.catalog.Len()),
		zap.Int("disabled", cache.Failing()),
		zap.String("catalog", strconv.FormatUint(a.catalog.Fingerprint(), 16)),
	)
	return cache
}

// RunCycle performs one polling cycle. It returns nil without error when no
// route is profitable. Errors are infrastructure failures the caller should
// treat as fatal.
func (a *Arbitrator) RunCycle(ctx context.Context) (*types.ArbitrationResult, error) {
	if a.evaluator == nil {
		return nil, ErrNotPrepared
	}

	cycleID := uuid.NewString()
	logger := a.logger.With(zap.String("cycle_id", cycleID))
	start := time.Now()
	defer func() {
		a.metrics.Cycles.Inc()
		a.metrics.CycleDuration.Observe(time.Since(start).Seconds())
	}()

	gasPrice, err := a.oracle.CurrentGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch gas price: %w", err)
	}
	gp, _ := new(big.Float).SetInt(gasPrice).Float64()
	a.metrics.GasPrice.Set(gp)
	logger.Debug("Gas price", zap.String("gas_price_wei", gasPrice.String()))

	opps := a.EvaluateAll(ctx, gasPrice)
	for _, o := range opps {
		if o.Outcome == types.EvaluationFailed {
			a.metrics.EvaluationFailures.WithLabelValues(o.Route.ID()).Inc()
		}
	}

	profitable := Profitable(opps)
	a.metrics.Opportunities.Add(float64(len(profitable)))

	best := SelectBest(profitable)
	if best == nil {
		logger.Info("No profitable arbitrage",
			zap.Int("routes", len(opps)),
			zap.String("gas_price_wei", gasPrice.String()),
		)
		return nil, nil
	}

	logger.Info("Arbitrage opportunity",
		zap.String("route", best.Route.ID()),
		zap.String("potential_gain", best.PotentialGain.FloatString(0)),
		zap.Int("candidates", len(profitable)),
	)
	return a.execute(ctx, logger, cycleID, best, gasPrice)
}

// EvaluateAll evaluates every route concurrently. The result is indexed by
// catalog position.
func (a *Arbitrator) EvaluateAll(ctx context.Context, gasPrice *big.Int) []*types.Opportunity {
	opps := make([]*types.Opportunity, a.catalog.Len())

	var g errgroup.Group
	for i := 0; i < a.catalog.Len(); i++ {
		i := i
		route := a.catalog.At(i)
		g.Go(func() error {
			opps[i] = a.evaluator.Evaluate(ctx, i, route, gasPrice)
			return nil
		})
	}
	_ = g.Wait()

	return opps
}

func (a *Arbitrator) execute(ctx context.Context, logger *zap.Logger, cycleID string, best *types.Opportunity, gasPrice *big.Int) (*types.ArbitrationResult, error) {
	route := best.Route

	pending, err := a.executor.Submit(ctx, route, gasPrice)
	if err != nil {
		return nil, err
	}

	receipt, err := a.waiter.Wait(ctx, pending.Hash)
	if err != nil {
		return nil, fmt.Errorf("failed to confirm %s: %w", route.ID(), err)
	}

	profit, loss := a.settle(ctx, logger, route, receipt)
	result := &types.ArbitrationResult{
		CycleID:      cycleID,
		Route:        route,
		FundingToken: route.FundingToken,
		TxHash:       pending.Hash,
		Status:       receipt.Status,
		BlockNumber:  receipt.BlockNumber,
		GasUsed:      receipt.GasUsed,
		Profit:       profit,
		Loss:         loss,
	}

	a.metrics.Executions.WithLabelValues(route.ID(), statusLabel(receipt.Status)).Inc()
	a.history.Add(result)

	logger.Info("Arbitration confirmed",
		zap.String("route", route.ID()),
		zap.String("tx_hash", result.TxHash.Hex()),
		zap.String("status", statusLabel(result.Status)),
		zap.Uint64("gas_used", result.GasUsed),
		zap.String("profit", profit.String()),
		zap.String("loss", loss.String()),
	)

	if a.notifier != nil {
		if err := a.notifier.NotifyArbitration(ctx, result); err != nil {
			logger.Warn("Notification failed", zap.Error(err))
		}
	}

	totalProfit, totalLoss := a.history.Totals()
	logger.Info("Results summary",
		zap.Int("executed", a.history.Len()),
		zap.String("total_profit", totalProfit.String()),
		zap.String("total_loss", totalLoss.String()),
		zap.Float64("opportunities_seen", metrics.CounterValue(a.metrics.Opportunities)),
	)
	return result, nil
}

// settle falls back to zero profit and loss when the settler fails
func (a *Arbitrator) settle(ctx context.Context, logger *zap.Logger, route types.Route, receipt *ethtypes.Receipt) (*big.Int, *big.Int) {
	profit, loss, err := a.settler.Settle(ctx, route, receipt)
	if err != nil {
		logger.Warn("Settlement failed", zap.String("route", route.ID()), zap.Error(err))
		return new(big.Int), new(big.Int)
	}
	if profit == nil {
		profit = new(big.Int)
	}
	if loss == nil {
		loss = new(big.Int)
	}
	return profit, loss
}

// History returns the recent-results ledger
func (a *Arbitrator) History() *History {
	return a.history
}

// Estimates returns the warm-up cache, nil before Prepare
func (a *Arbitrator) Estimates() *gas.EstimateCache {
	return a.cache
}

// Catalog returns the routes the arbitrator evaluates
func (a *Arbitrator) Catalog() *routes.Catalog {
	return a.catalog
}

func statusLabel(status uint64) string {
	if status == ethtypes.ReceiptStatusSuccessful {
		return "success"
	}
	return "reverted"
}
