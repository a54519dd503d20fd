package types

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Leg is one price-quote request for an asset pair at a venue
type Leg struct {
	From  string `yaml:"from"`
	To    string `yaml:"to"`
	Venue string `yaml:"venue"`
}

// Route represents an arbitrage strategy tied to one funding token and two legs
type Route struct {
	Method       string `yaml:"method"`
	FundingToken string `yaml:"funding_token"`
	Buy          Leg    `yaml:"buy"`
	Sell         Leg    `yaml:"sell"`
}

// ID returns the catalog-unique identifier of the route
func (r Route) ID() string {
	return r.Method + "/" + r.FundingToken
}

// GasEstimate is the gas cost resolved for a route at startup
type GasEstimate struct {
	GasUnits uint64
	Failing  bool
}

// PriceQuote is the contract's rate for a leg. Err holds the fetch failure
// that was recovered into a zero rate, if any.
type PriceQuote struct {
	Rate  *big.Int
	From  string
	To    string
	Venue string
	Err   error
}

// Outcome tags the result of evaluating a route
type Outcome int

const (
	NoOpportunity Outcome = iota
	Profitable
	EvaluationFailed
)

func (o Outcome) String() string {
	switch o {
	case NoOpportunity:
		return "no_opportunity"
	case Profitable:
		return "profitable"
	case EvaluationFailed:
		return "evaluation_failed"
	default:
		return "unknown"
	}
}

// Opportunity is a route evaluated in the current cycle
type Opportunity struct {
	Route                 Route
	Index                 int
	Outcome               Outcome
	PotentialGain         *big.Rat
	BuyRate               *big.Int
	SellRate              *big.Int
	GasCostNative         *big.Int
	GasCostInFundingToken *big.Rat
	Failing               bool
	Reason                error
}

// FundingToken returns the funding token of the evaluated route
func (o *Opportunity) FundingToken() string {
	return o.Route.FundingToken
}

// Qualifies reports whether the opportunity may be selected for execution
func (o *Opportunity) Qualifies() bool {
	return o.Outcome == Profitable && !o.Failing && o.PotentialGain != nil && o.PotentialGain.Sign() > 0
}

// PendingTx is a transaction accepted into the node's pool but not yet mined
type PendingTx struct {
	Hash     common.Hash
	Nonce    uint64
	GasLimit uint64
	GasPrice *big.Int
}

// ArbitrationResult is produced after an arbitration has been confirmed
type ArbitrationResult struct {
	CycleID      string
	Route        Route
	FundingToken string
	TxHash       common.Hash
	Status       uint64
	BlockNumber  *big.Int
	GasUsed      uint64
	Profit       *big.Int
	Loss         *big.Int
}
