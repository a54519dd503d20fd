package testutils

import (
	"crypto/ecdsa"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/michaelpento.lv/ourbitrage/types"
	"github.com/stretchr/testify/require"
)

// NewOwnerKey generates a signing key and returns it with its address
func NewOwnerKey(t *testing.T) (*ecdsa.PrivateKey, common.Address) {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return key, crypto.PubkeyToAddress(key.PublicKey)
}

// MinedReceipt creates a successful receipt for hash
func MinedReceipt(hash common.Hash, block int64, gasUsed uint64) *ethtypes.Receipt {
	return &ethtypes.Receipt{
		Status:      ethtypes.ReceiptStatusSuccessful,
		TxHash:      hash,
		BlockNumber: big.NewInt(block),
		GasUsed:     gasUsed,
	}
}

// Route creates an ETH route funded with token, bought at buyVenue and sold at sellVenue
func Route(method, token, buyVenue, sellVenue string) types.Route {
	return types.Route{
		Method:       method,
		FundingToken: token,
		Buy:          types.Leg{From: "ETH", To: token, Venue: buyVenue},
		Sell:         types.Leg{From: "ETH", To: token, Venue: sellVenue},
	}
}
