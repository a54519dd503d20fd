package arbitrage

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/michaelpento.lv/ourbitrage/chain"
	"github.com/michaelpento.lv/ourbitrage/gas"
	"github.com/michaelpento.lv/ourbitrage/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrGasEstimationFailed marks routes disabled at warm-up
	ErrGasEstimationFailed = errors.New("gas estimation failed")
	// ErrBadRate is returned when getPrice yields a value that is not an integer
	ErrBadRate = errors.New("unparseable rate")
)

// PriceReader is the read-only half of chain.Contract
type PriceReader interface {
	ReadValue(ctx context.Context, method string, args ...interface{}) (interface{}, error)
}

// EvaluatorConfig holds the profitability parameters
type EvaluatorConfig struct {
	MinProfitPerArb *big.Int
	NativeUnitScale *big.Int
}

// Evaluator prices one route for the current cycle
type Evaluator struct {
	reader PriceReader
	cache  *gas.EstimateCache
	cfg    EvaluatorConfig
	logger *zap.Logger
}

// NewEvaluator creates an evaluator backed by the warm-up estimates in cache
func NewEvaluator(reader PriceReader, cache *gas.EstimateCache, cfg EvaluatorConfig, logger *zap.Logger) *Evaluator {
	if cfg.MinProfitPerArb == nil {
		cfg.MinProfitPerArb = new(big.Int)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Evaluator{
		reader: reader,
		cache:  cache,
		cfg:    cfg,
		logger: logger,
	}
}

// Evaluate prices the route at index using gasPrice. It never fails: problems
// are reported as an EvaluationFailed outcome with zero gain.
func (e *Evaluator) Evaluate(ctx context.Context, index int, route types.Route, gasPrice *big.Int) (opp *types.Opportunity) {
	opp = &types.Opportunity{
		Route:         route,
		Index:         index,
		PotentialGain: new(big.Rat),
	}
	defer func() {
		if r := recover(); r != nil {
			e.fail(opp, fmt.Errorf("evaluation panicked: %v", r))
		}
	}()

	estimate := e.cache.Get(index)
	if estimate.Failing {
		e.fail(opp, ErrGasEstimationFailed)
		return opp
	}

	buy, sell, err := e.quotes(ctx, route)
	if err != nil {
		e.fail(opp, err)
		return opp
	}
	opp.BuyRate = buy.Rate
	opp.SellRate = sell.Rate

	gain, gasInToken, gasNative := PotentialGain(buy.Rate, sell.Rate, estimate.GasUnits, gasPrice, e.cfg.NativeUnitScale)
	opp.PotentialGain = gain
	opp.GasCostInFundingToken = gasInToken
	opp.GasCostNative = gasNative

	if gain.Cmp(new(big.Rat).SetInt(e.cfg.MinProfitPerArb)) >= 0 {
		opp.Outcome = types.Profitable
	} else {
		opp.Outcome = types.NoOpportunity
	}

	e.logger.Debug("Route evaluated",
		zap.String("route", route.ID()),
		zap.String("outcome", opp.Outcome.String()),
		zap.String("buy_rate", buy.Rate.String()),
		zap.String("sell_rate", sell.Rate.String()),
		zap.String("gas_cost_wei", gasNative.String()),
		zap.String("potential_gain", gain.FloatString(0)),
	)
	return opp
}

func (e *Evaluator) fail(opp *types.Opportunity, reason error) {
	opp.Outcome = types.EvaluationFailed
	opp.Failing = true
	opp.PotentialGain = new(big.Rat)
	opp.Reason = reason
	e.logger.Warn("Route evaluation failed",
		zap.String("route", opp.Route.ID()),
		zap.Error(reason),
	)
}

// quotes fetches both legs concurrently
func (e *Evaluator) quotes(ctx context.Context, route types.Route) (buy, sell types.PriceQuote, err error) {
	var g errgroup.Group
	g.Go(func() error {
		var qerr error
		buy, qerr = e.quote(ctx, route.Buy)
		return qerr
	})
	g.Go(func() error {
		var qerr error
		sell, qerr = e.quote(ctx, route.Sell)
		return qerr
	})
	err = g.Wait()
	return buy, sell, err
}

// quote returns a zero rate when the contract call fails. Only a value that
// cannot be read as an integer is an error.
func (e *Evaluator) quote(ctx context.Context, leg types.Leg) (q types.PriceQuote, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("quote %s/%s@%s panicked: %v", leg.From, leg.To, leg.Venue, r)
		}
	}()

	q = types.PriceQuote{From: leg.From, To: leg.To, Venue: leg.Venue, Rate: new(big.Int)}
	amount := e.cfg.NativeUnitScale
	if amount == nil {
		amount = new(big.Int)
	}
	value, callErr := e.reader.ReadValue(ctx, chain.MethodGetPrice, leg.From, leg.To, leg.Venue, new(big.Int).Set(amount))
	if callErr != nil {
		e.logger.Warn("Price quote failed, using zero rate",
			zap.String("from", leg.From),
			zap.String("to", leg.To),
			zap.String("venue", leg.Venue),
			zap.Error(callErr),
		)
		q.Err = callErr
		return q, nil
	}

	rate, err := toRate(value)
	if err != nil {
		return q, fmt.Errorf("quote %s/%s@%s: %w", leg.From, leg.To, leg.Venue, err)
	}
	q.Rate = rate
	return q, nil
}

func toRate(v interface{}) (*big.Int, error) {
	switch r := v.(type) {
	case *big.Int:
		if r == nil {
			return nil, fmt.Errorf("%w: nil", ErrBadRate)
		}
		return new(big.Int).Set(r), nil
	case string:
		rate, ok := new(big.Int).SetString(r, 10)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrBadRate, r)
		}
		return rate, nil
	case uint64:
		return new(big.Int).SetUint64(r), nil
	case int64:
		return big.NewInt(r), nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrBadRate, v)
	}
}

// PotentialGain computes, without rounding,
//
//	gasCostNative         = gasUnits * gasPrice
//	gasCostInFundingToken = (buy+sell)/2 * gasCostNative / nativeUnitScale
//	gain                  = sell - (buy + gasCostInFundingToken)
func PotentialGain(buy, sell *big.Int, gasUnits uint64, gasPrice, nativeUnitScale *big.Int) (gain, gasCostInFundingToken *big.Rat, gasCostNative *big.Int) {
	gasCostNative = new(big.Int).Mul(new(big.Int).SetUint64(gasUnits), gasPrice)

	avgRate := new(big.Rat).SetFrac(new(big.Int).Add(buy, sell), big.NewInt(2))
	gasCostInFundingToken = new(big.Rat).Mul(avgRate, new(big.Rat).SetInt(gasCostNative))
	gasCostInFundingToken.Quo(gasCostInFundingToken, new(big.Rat).SetInt(nativeUnitScale))

	cost := new(big.Rat).Add(new(big.Rat).SetInt(buy), gasCostInFundingToken)
	gain = new(big.Rat).Sub(new(big.Rat).SetInt(sell), cost)
	return gain, gasCostInFundingToken, gasCostNative
}

// SelectBest returns the qualifying opportunity with the largest gain. Ties
// go to the lowest catalog index. It returns nil when nothing qualifies.
func SelectBest(opps []*types.Opportunity) *types.Opportunity {
	var best *types.Opportunity
	for _, o := range opps {
		if o == nil || !o.Qualifies() {
			continue
		}
		if best == nil {
			best = o
			continue
		}
		switch o.PotentialGain.Cmp(best.PotentialGain) {
		case 1:
			best = o
		case 0:
			if o.Index < best.Index {
				best = o
			}
		}
	}
	return best
}

// Profitable keeps the opportunities eligible for execution
func Profitable(opps []*types.Opportunity) []*types.Opportunity {
	var out []*types.Opportunity
	for _, o := range opps {
		if o != nil && o.Qualifies() {
			out = append(out, o)
		}
	}
	return out
}
