package arbitrage

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/michaelpento.lv/ourbitrage/chain"
	"github.com/michaelpento.lv/ourbitrage/routes"
	"github.com/michaelpento.lv/ourbitrage/types"
	"github.com/michaelpento.lv/ourbitrage/utils/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const testGasLimitCap = 3000000

func noSleep(context.Context, time.Duration) error { return nil }

// fourRoutes has distinct venues per route so prices can be set independently
func fourRoutes(t *testing.T) *routes.Catalog {
	catalog, err := routes.NewCatalog([]types.Route{
		testRoute("T0", "buy-0", "sell-0"),
		testRoute("T1", "buy-1", "sell-1"),
		testRoute("T2", "buy-2", "sell-2"),
		testRoute("T3", "buy-3", "sell-3"),
	})
	require.NoError(t, err)
	return catalog
}

type arbFixture struct {
	contract *stubContract
	notifier *recordingNotifier
	metrics  *metrics.ArbitratorMetrics
	arb      *Arbitrator
}

func newArbFixture(t *testing.T, oracle GasPricer) *arbFixture {
	c := newStubContract()
	for _, token := range []string{"T0", "T1", "T2", "T3"} {
		c.gas[token] = 100000
	}
	n := &recordingNotifier{}
	m := metrics.NewArbitratorMetrics(prometheus.NewRegistry(), "test")

	arb, err := NewArbitrator(Config{
		GasLimitCap:     testGasLimitCap,
		GasPriceCap:     big.NewInt(1000),
		MinProfitPerArb: big.NewInt(10),
		NativeUnitScale: big.NewInt(1000000000),
		Receipts:        chain.WaiterConfig{Interval: time.Millisecond, Sleep: noSleep},
	}, Deps{
		Contract: c,
		Oracle:   oracle,
		Catalog:  fourRoutes(t),
		Notifier: n,
		Metrics:  m,
		Logger:   zaptest.NewLogger(t),
	})
	require.NoError(t, err)

	return &arbFixture{contract: c, notifier: n, metrics: m, arb: arb}
}

func (f *arbFixture) setPrices(i string, buy, sell int64) {
	f.contract.prices["buy-"+i] = big.NewInt(buy)
	f.contract.prices["sell-"+i] = big.NewInt(sell)
}

func TestRunCycleExecutesExactlyOneRoute(t *testing.T) {
	f := newArbFixture(t, stubOracle{price: big.NewInt(10)})
	f.setPrices("0", 1000, 1100)
	f.setPrices("1", 1000, 1500)
	f.setPrices("2", 1000, 1300)
	f.setPrices("3", 1000, 900)
	f.contract.pendingPolls = 2

	f.arb.Prepare(context.Background())
	result, err := f.arb.RunCycle(context.Background())
	require.NoError(t, err)
	require.NotNil(t, result)

	subs := f.contract.submitted()
	require.Len(t, subs, 1)
	assert.Equal(t, "arbEthFromKyberToUniswap", subs[0].method)
	assert.Equal(t, []interface{}{"T1"}, subs[0].args)
	assert.Equal(t, uint64(testGasLimitCap), subs[0].tx.GasLimit)
	assert.Equal(t, big.NewInt(10), subs[0].tx.GasPrice)

	assert.Equal(t, "T1", result.FundingToken)
	assert.Equal(t, "T1", result.Route.FundingToken)
	assert.NotEmpty(t, result.CycleID)
	assert.Equal(t, uint64(90000), result.GasUsed)
	assert.Equal(t, 0, result.Profit.Sign())
	assert.Equal(t, 0, result.Loss.Sign())

	assert.Equal(t, 3, f.contract.polls)
	assert.Equal(t, float64(3), testutil.ToFloat64(f.metrics.ReceiptPolls))
	assert.Equal(t, float64(3), testutil.ToFloat64(f.metrics.Opportunities))
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.Cycles))
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.Executions.WithLabelValues(result.Route.ID(), "success")))

	require.Len(t, f.notifier.results, 1)
	assert.Equal(t, result, f.notifier.results[0])

	got, ok := f.arb.History().Get(result.TxHash)
	require.True(t, ok)
	assert.Equal(t, result, got)
}

func TestRunCycleNoOpportunity(t *testing.T) {
	f := newArbFixture(t, stubOracle{price: big.NewInt(10)})
	for _, i := range []string{"0", "1", "2", "3"} {
		f.setPrices(i, 1000, 1000)
	}

	f.arb.Prepare(context.Background())
	result, err := f.arb.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.Empty(t, f.contract.submitted())
	assert.Zero(t, f.contract.polls)
	assert.Empty(t, f.notifier.results)
}

func TestRunCycleSkipsDisabledRoutes(t *testing.T) {
	f := newArbFixture(t, stubOracle{price: big.NewInt(10)})
	f.contract.gasErr["T1"] = errors.New("always failing transaction")
	f.contract.gas["T2"] = testGasLimitCap
	f.setPrices("0", 1000, 1100)
	f.setPrices("1", 1000, 5000)
	f.setPrices("2", 1000, 5000)
	f.setPrices("3", 1000, 900)

	cache := f.arb.Prepare(context.Background())
	assert.Equal(t, 2, cache.Failing())
	assert.Equal(t, float64(2), testutil.ToFloat64(f.metrics.DisabledRoutes))

	result, err := f.arb.RunCycle(context.Background())
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "T0", result.FundingToken)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.EvaluationFailures.WithLabelValues("arbEthFromKyberToUniswap/T1")))
}

func TestRunCycleGasPriceErrorIsReturned(t *testing.T) {
	f := newArbFixture(t, stubOracle{err: errors.New("gas station unreachable")})
	f.setPrices("0", 1000, 5000)

	f.arb.Prepare(context.Background())
	result, err := f.arb.RunCycle(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gas station unreachable")
	assert.Nil(t, result)
	assert.Empty(t, f.contract.submitted())
}

func TestRunCycleSubmitErrorIsReturned(t *testing.T) {
	f := newArbFixture(t, stubOracle{price: big.NewInt(10)})
	f.setPrices("0", 1000, 5000)
	f.contract.submitErr = errors.New("insufficient funds")

	f.arb.Prepare(context.Background())
	_, err := f.arb.RunCycle(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insufficient funds")
	assert.Empty(t, f.notifier.results)
}

func TestRunCycleReceiptErrorIsReturned(t *testing.T) {
	f := newArbFixture(t, stubOracle{price: big.NewInt(10)})
	f.setPrices("0", 1000, 5000)
	f.contract.receiptErr = errors.New("connection reset")

	f.arb.Prepare(context.Background())
	_, err := f.arb.RunCycle(context.Background())
	require.Error(t, err)
	assert.Len(t, f.contract.submitted(), 1)
	assert.Zero(t, f.arb.History().Len())
}

func TestRunCycleCapsGasPrice(t *testing.T) {
	f := newArbFixture(t, stubOracle{price: big.NewInt(5000)})
	f.setPrices("0", 1000, 5000)

	f.arb.Prepare(context.Background())
	_, err := f.arb.RunCycle(context.Background())
	require.NoError(t, err)

	subs := f.contract.submitted()
	require.Len(t, subs, 1)
	assert.Equal(t, big.NewInt(1000), subs[0].tx.GasPrice)
}

func TestRunCycleRequiresPrepare(t *testing.T) {
	f := newArbFixture(t, stubOracle{price: big.NewInt(10)})
	_, err := f.arb.RunCycle(context.Background())
	assert.ErrorIs(t, err, ErrNotPrepared)
}

func TestNewArbitratorValidates(t *testing.T) {
	_, err := NewArbitrator(Config{NativeUnitScale: big.NewInt(1)}, Deps{})
	assert.Error(t, err)

	_, err = NewArbitrator(Config{}, Deps{
		Contract: newStubContract(),
		Oracle:   stubOracle{price: big.NewInt(1)},
		Catalog:  routes.Default(),
	})
	assert.Error(t, err)
}

func TestCapGasPrice(t *testing.T) {
	assert.Equal(t, big.NewInt(5), CapGasPrice(big.NewInt(5), big.NewInt(10)))
	assert.Equal(t, big.NewInt(10), CapGasPrice(big.NewInt(50), big.NewInt(10)))
	assert.Equal(t, big.NewInt(50), CapGasPrice(big.NewInt(50), nil))
	assert.Nil(t, CapGasPrice(nil, big.NewInt(10)))
}
