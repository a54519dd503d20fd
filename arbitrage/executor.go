package arbitrage

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/michaelpento.lv/ourbitrage/chain"
	"github.com/michaelpento.lv/ourbitrage/types"
	"go.uber.org/zap"
)

// Submitter is the write half of chain.Contract
type Submitter interface {
	SubmitTransaction(ctx context.Context, method string, key *ecdsa.PrivateKey, tx chain.TxTemplate, args ...interface{}) (*types.PendingTx, error)
}

// ExecutorConfig identifies the signer and bounds the transaction's gas
type ExecutorConfig struct {
	Owner       common.Address
	Key         *ecdsa.PrivateKey
	GasLimitCap uint64
	GasPriceCap *big.Int
}

// Executor submits the arbitration transaction of a selected route
type Executor struct {
	submitter Submitter
	cfg       ExecutorConfig
	logger    *zap.Logger
}

// NewExecutor creates an executor signing with cfg.Key
func NewExecutor(submitter Submitter, cfg ExecutorConfig, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{
		submitter: submitter,
		cfg:       cfg,
		logger:    logger,
	}
}

// Submit calls the route's contract method with its funding token. It returns
// once the node has accepted the transaction.
func (x *Executor) Submit(ctx context.Context, route types.Route, gasPrice *big.Int) (*types.PendingTx, error) {
	tx := chain.TxTemplate{
		From:     x.cfg.Owner,
		GasLimit: x.cfg.GasLimitCap,
		GasPrice: CapGasPrice(gasPrice, x.cfg.GasPriceCap),
	}

	x.logger.Info("Submitting arbitration",
		zap.String("route", route.ID()),
		zap.String("gas_price_wei", tx.GasPrice.String()),
		zap.Uint64("gas_limit", tx.GasLimit),
	)

	pending, err := x.submitter.SubmitTransaction(ctx, route.Method, x.cfg.Key, tx, route.FundingToken)
	if err != nil {
		return nil, fmt.Errorf("failed to submit %s: %w", route.ID(), err)
	}

	x.logger.Info("Arbitration submitted",
		zap.String("route", route.ID()),
		zap.String("tx_hash", pending.Hash.Hex()),
		zap.Uint64("nonce", pending.Nonce),
	)
	return pending, nil
}

// CapGasPrice returns the lower of price and limit. A nil or non-positive
// limit leaves price unchanged.
func CapGasPrice(price, limit *big.Int) *big.Int {
	if price == nil {
		return nil
	}
	if limit == nil || limit.Sign() <= 0 || price.Cmp(limit) <= 0 {
		return new(big.Int).Set(price)
	}
	return new(big.Int).Set(limit)
}
