package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/michaelpento.lv/ourbitrage/types"
)

var (
	// ErrUnknownMethod is returned when a method is not part of the contract ABI
	ErrUnknownMethod = errors.New("unknown contract method")
	// ErrEmptyResult is returned when a read returns no values
	ErrEmptyResult = errors.New("contract call returned no values")
)

// TxTemplate carries the caller-controlled fields of a contract transaction
type TxTemplate struct {
	From     common.Address
	GasLimit uint64
	GasPrice *big.Int
}

// Contract is the arbitrage contract as seen by the arbitrator
type Contract interface {
	// EstimateGas estimates the gas used by calling method with args
	EstimateGas(ctx context.Context, method string, tx TxTemplate, args ...interface{}) (uint64, error)

	// ReadValue performs a read-only call and returns its first output
	ReadValue(ctx context.Context, method string, args ...interface{}) (interface{}, error)

	// SubmitTransaction signs and broadcasts a call to method.
	// It returns once the node has accepted the transaction.
	SubmitTransaction(ctx context.Context, method string, key *ecdsa.PrivateKey, tx TxTemplate, args ...interface{}) (*types.PendingTx, error)

	// GetReceipt returns nil without error while the transaction is not mined
	GetReceipt(ctx context.Context, hash common.Hash) (*ethtypes.Receipt, error)
}
