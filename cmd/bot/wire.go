package bot

import (
	"context"
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/michaelpento.lv/ourbitrage/arbitrage"
	"github.com/michaelpento.lv/ourbitrage/chain"
	"github.com/michaelpento.lv/ourbitrage/config"
	"github.com/michaelpento.lv/ourbitrage/gas"
	"github.com/michaelpento.lv/ourbitrage/notify"
	"github.com/michaelpento.lv/ourbitrage/routes"
	"github.com/michaelpento.lv/ourbitrage/utils/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Dependencies bundles everything a running monitor needs. It is built by
// Wire and released by Close.
type Dependencies struct {
	Client     *ethclient.Client
	Contract   *chain.EthContract
	Oracle     *gas.Oracle
	Catalog    *routes.Catalog
	Arbitrator *arbitrage.Arbitrator
	Notifier   *notify.Notifier
	Registry   *prometheus.Registry
}

// Close releases the node connection
func (d *Dependencies) Close() {
	if d.Client != nil {
		d.Client.Close()
	}
}

// NewOracle builds the gas price oracle from configuration
func NewOracle(cfg *config.Config, logger *zap.Logger) *gas.Oracle {
	return gas.NewOracle(gas.OracleConfig{
		URL:           cfg.GasStation.URL,
		Timeout:       cfg.GasStation.Timeout(),
		WaitTolerance: cfg.Arbitrage.GasWaitTolerance,
		UnitScale:     cfg.Arbitrage.GasPriceUnitScale.Int,
	}, logger)
}

// Wire connects to the node and assembles the arbitrator. key may be nil for
// commands that never submit transactions. When metrics are enabled the
// endpoint is served until ctx is done.
func Wire(ctx context.Context, cfg *config.Config, key *ecdsa.PrivateKey, logger *zap.Logger) (*Dependencies, error) {
	address, err := cfg.ContractAddress()
	if err != nil {
		return nil, err
	}
	catalog, err := cfg.Catalog()
	if err != nil {
		return nil, err
	}
	abiJSON, err := cfg.LoadABI()
	if err != nil {
		return nil, err
	}

	client, err := ethclient.DialContext(ctx, cfg.Network.RPCEndpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Ethereum node: %w", err)
	}
	deps := &Dependencies{Client: client, Catalog: catalog}

	limiter := rate.NewLimiter(rate.Limit(cfg.RPCRateLimit.RequestsPerSecond), cfg.RPCRateLimit.BurstSize)
	deps.Contract, err = chain.NewEthContract(client, address, abiJSON, limiter, logger.Named("contract"))
	if err != nil {
		deps.Close()
		return nil, fmt.Errorf("failed to bind contract: %w", err)
	}

	deps.Oracle = NewOracle(cfg, logger.Named("gas"))
	deps.Notifier = notify.NewNotifier([]notify.Sender{
		notify.NewLogSender(logger.Named("notifier")),
	}, logger.Named("notifier"))

	deps.Registry = prometheus.NewRegistry()
	deps.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewArbitratorMetrics(deps.Registry, cfg.Metrics.Namespace)
	if cfg.Metrics.Enabled {
		metrics.Serve(ctx, cfg.Metrics.ListenAddr, deps.Registry, logger.Named("metrics"))
	}

	history, err := arbitrage.NewHistory(arbitrage.DefaultHistorySize)
	if err != nil {
		deps.Close()
		return nil, err
	}

	deps.Arbitrator, err = arbitrage.NewArbitrator(arbitrage.Config{
		Owner:           cfg.OwnerAddress(),
		Key:             key,
		GasLimitCap:     cfg.Arbitrage.GasLimitCap,
		GasPriceCap:     cfg.Arbitrage.GasPriceCap.Int,
		MinProfitPerArb: cfg.Arbitrage.MinProfitPerArb.Int,
		NativeUnitScale: cfg.Arbitrage.NativeUnitScale.Int,
		Receipts: chain.WaiterConfig{
			Interval:    cfg.Timings.ReceiptInterval(),
			MaxAttempts: cfg.Timings.ReceiptMaxAttempts,
		},
	}, arbitrage.Deps{
		Contract: deps.Contract,
		Oracle:   deps.Oracle,
		Catalog:  catalog,
		Settler:  arbitrage.ZeroSettler{},
		Notifier: deps.Notifier,
		History:  history,
		Metrics:  m,
		Logger:   logger.Named("arbitrator"),
	})
	if err != nil {
		deps.Close()
		return nil, err
	}

	return deps, nil
}
