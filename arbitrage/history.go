package arbitrage

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru"
	"github.com/michaelpento.lv/ourbitrage/types"
)

// DefaultHistorySize bounds the number of results kept in memory
const DefaultHistorySize = 128

// History remembers the most recent arbitration results by transaction hash
type History struct {
	cache *lru.Cache
}

// NewHistory creates a history holding at most size results
func NewHistory(size int) (*History, error) {
	if size <= 0 {
		size = DefaultHistorySize
	}
	cache, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("failed to create history: %w", err)
	}
	return &History{cache: cache}, nil
}

// Add records result, evicting the oldest entry when full
func (h *History) Add(result *types.ArbitrationResult) {
	if result == nil {
		return
	}
	h.cache.Add(result.TxHash, result)
}

// Get looks up the result of a transaction
func (h *History) Get(hash common.Hash) (*types.ArbitrationResult, bool) {
	v, ok := h.cache.Get(hash)
	if !ok {
		return nil, false
	}
	return v.(*types.ArbitrationResult), true
}

// Recent returns the remembered results, newest first
func (h *History) Recent() []*types.ArbitrationResult {
	keys := h.cache.Keys()
	out := make([]*types.ArbitrationResult, 0, len(keys))
	for i := len(keys) - 1; i >= 0; i-- {
		if v, ok := h.cache.Peek(keys[i]); ok {
			out = append(out, v.(*types.ArbitrationResult))
		}
	}
	return out
}

// Len returns the number of remembered results
func (h *History) Len() int {
	return h.cache.Len()
}

// Totals sums profit and loss over the remembered results
func (h *History) Totals() (profit, loss *big.Int) {
	profit, loss = new(big.Int), new(big.Int)
	for _, r := range h.Recent() {
		if r.Profit != nil {
			profit.Add(profit, r.Profit)
		}
		if r.Loss != nil {
			loss.Add(loss, r.Loss)
		}
	}
	return profit, loss
}
