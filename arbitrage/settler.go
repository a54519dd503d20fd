package arbitrage

import (
	"context"
	"math/big"

	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/michaelpento.lv/ourbitrage/types"
)

// Settler computes the realized profit and loss of a confirmed arbitration
type Settler interface {
	Settle(ctx context.Context, route types.Route, receipt *ethtypes.Receipt) (profit, loss *big.Int, err error)
}

// ZeroSettler reports no profit and no loss
type ZeroSettler struct{}

// Settle returns zero profit and zero loss
func (ZeroSettler) Settle(context.Context, types.Route, *ethtypes.Receipt) (*big.Int, *big.Int, error) {
	return new(big.Int), new(big.Int), nil
}
