package arbitrage

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/michaelpento.lv/ourbitrage/chain"
	"github.com/michaelpento.lv/ourbitrage/types"
	"github.com/michaelpento.lv/ourbitrage/utils/testutils"
)

type submission struct {
	method string
	tx     chain.TxTemplate
	args   []interface{}
}

// stubContract is an in-memory chain.Contract. Prices are keyed by venue.
type stubContract struct {
	mu sync.Mutex

	gas       map[string]uint64 // by funding token
	gasErr    map[string]error
	prices    map[string]interface{}
	priceErr  map[string]error
	panicRead bool

	submitErr   error
	submissions []submission

	// receipts are returned after this many empty polls
	pendingPolls int
	receiptErr   error
	polls        int
	status       uint64
}

func newStubContract() *stubContract {
	return &stubContract{
		gas:      make(map[string]uint64),
		gasErr:   make(map[string]error),
		prices:   make(map[string]interface{}),
		priceErr: make(map[string]error),
		status:   ethtypes.ReceiptStatusSuccessful,
	}
}

func (s *stubContract) EstimateGas(_ context.Context, _ string, _ chain.TxTemplate, args ...interface{}) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	token := args[0].(string)
	if err := s.gasErr[token]; err != nil {
		return 0, err
	}
	return s.gas[token], nil
}

func (s *stubContract) ReadValue(_ context.Context, method string, args ...interface{}) (interface{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.panicRead {
		panic("boom")
	}
	if method != chain.MethodGetPrice {
		return nil, chain.ErrUnknownMethod
	}
	venue := args[2].(string)
	if err := s.priceErr[venue]; err != nil {
		return nil, err
	}
	v, ok := s.prices[venue]
	if !ok {
		return nil, errors.New("no price")
	}
	return v, nil
}

func (s *stubContract) SubmitTransaction(_ context.Context, method string, _ *ecdsa.PrivateKey, tx chain.TxTemplate, args ...interface{}) (*types.PendingTx, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.submitErr != nil {
		return nil, s.submitErr
	}
	s.submissions = append(s.submissions, submission{method: method, tx: tx, args: args})
	return &types.PendingTx{
		Hash:     common.HexToHash(fmt.Sprintf("0x%x", len(s.submissions))),
		Nonce:    uint64(len(s.submissions) - 1),
		GasLimit: tx.GasLimit,
		GasPrice: tx.GasPrice,
	}, nil
}

func (s *stubContract) GetReceipt(_ context.Context, hash common.Hash) (*ethtypes.Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.polls++
	if s.receiptErr != nil {
		return nil, s.receiptErr
	}
	if s.polls <= s.pendingPolls {
		return nil, nil
	}
	receipt := testutils.MinedReceipt(hash, 100, 90000)
	receipt.Status = s.status
	return receipt, nil
}

func (s *stubContract) submitted() []submission {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]submission, len(s.submissions))
	copy(out, s.submissions)
	return out
}

type stubOracle struct {
	price *big.Int
	err   error
}

func (o stubOracle) CurrentGasPrice(context.Context) (*big.Int, error) {
	if o.err != nil {
		return nil, o.err
	}
	return new(big.Int).Set(o.price), nil
}

type recordingNotifier struct {
	mu      sync.Mutex
	results []*types.ArbitrationResult
}

func (n *recordingNotifier) NotifyArbitration(_ context.Context, r *types.ArbitrationResult) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.results = append(n.results, r)
	return nil
}
