package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/michaelpento.lv/ourbitrage/types"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Backend is the part of ethclient.Client used by EthContract
type Backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	NetworkID(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SendTransaction(ctx context.Context, tx *ethtypes.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error)
}

// EthContract implements Contract on top of a JSON-RPC node
type EthContract struct {
	backend Backend
	address common.Address
	abi     abi.ABI
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewEthContract binds the contract at address. abiJSON may be empty to use OurbitrageABI.
// A nil limiter disables RPC rate limiting.
func NewEthContract(backend Backend, address common.Address, abiJSON string, limiter *rate.Limiter, logger *zap.Logger) (*EthContract, error) {
	if abiJSON == "" {
		abiJSON = OurbitrageABI
	}
	parsed, err := ParseABI(strings.NewReader(abiJSON))
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &EthContract{
		backend: backend,
		address: address,
		abi:     parsed,
		limiter: limiter,
		logger:  logger,
	}, nil
}

// ParseABI parses a contract ABI definition
func ParseABI(r io.Reader) (abi.ABI, error) {
	parsed, err := abi.JSON(r)
	if err != nil {
		return abi.ABI{}, fmt.Errorf("failed to parse contract ABI: %w", err)
	}
	return parsed, nil
}

// Address returns the bound contract address
func (c *EthContract) Address() common.Address {
	return c.address
}

// EstimateGas implements Contract
func (c *EthContract) EstimateGas(ctx context.Context, method string, tx TxTemplate, args ...interface{}) (uint64, error) {
	data, err := c.pack(method, args...)
	if err != nil {
		return 0, err
	}
	if err := c.wait(ctx); err != nil {
		return 0, err
	}

	gas, err := c.backend.EstimateGas(ctx, ethereum.CallMsg{
		From:     tx.From,
		To:       &c.address,
		Gas:      tx.GasLimit,
		GasPrice: tx.GasPrice,
		Value:    big.NewInt(0),
		Data:     data,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to estimate gas for %s: %w", method, err)
	}
	return gas, nil
}

// ReadValue implements Contract
func (c *EthContract) ReadValue(ctx context.Context, method string, args ...interface{}) (interface{}, error) {
	data, err := c.pack(method, args...)
	if err != nil {
		return nil, err
	}
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	out, err := c.backend.CallContract(ctx, ethereum.CallMsg{
		To:   &c.address,
		Data: data,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to call %s: %w", method, err)
	}

	values, err := c.abi.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s result: %w", method, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("%s: %w", method, ErrEmptyResult)
	}
	return values[0], nil
}

// SubmitTransaction implements Contract
func (c *EthContract) SubmitTransaction(ctx context.Context, method string, key *ecdsa.PrivateKey, tx TxTemplate, args ...interface{}) (*types.PendingTx, error) {
	if key == nil {
		return nil, fmt.Errorf("no signing key for %s", method)
	}
	data, err := c.pack(method, args...)
	if err != nil {
		return nil, err
	}
	if tx.GasPrice == nil {
		return nil, fmt.Errorf("no gas price for %s", method)
	}

	sender := crypto.PubkeyToAddress(key.PublicKey)
	if tx.From != (common.Address{}) && tx.From != sender {
		return nil, fmt.Errorf("signing key %s does not match owner %s", sender.Hex(), tx.From.Hex())
	}

	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	chainID, err := c.backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get chain id: %w", err)
	}

	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	nonce, err := c.backend.PendingNonceAt(ctx, sender)
	if err != nil {
		return nil, fmt.Errorf("failed to get nonce: %w", err)
	}

	unsigned := ethtypes.NewTx(&ethtypes.LegacyTx{
		Nonce:    nonce,
		GasPrice: tx.GasPrice,
		Gas:      tx.GasLimit,
		To:       &c.address,
		Value:    big.NewInt(0),
		Data:     data,
	})
	signed, err := ethtypes.SignTx(unsigned, ethtypes.LatestSignerForChainID(chainID), key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign %s transaction: %w", method, err)
	}

	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	if err := c.backend.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("failed to send %s transaction: %w", method, err)
	}

	c.logger.Debug("Transaction broadcast",
		zap.String("method", method),
		zap.String("tx_hash", signed.Hash().Hex()),
		zap.Uint64("nonce", nonce),
	)

	return &types.PendingTx{
		Hash:     signed.Hash(),
		Nonce:    nonce,
		GasLimit: tx.GasLimit,
		GasPrice: new(big.Int).Set(tx.GasPrice),
	}, nil
}

// GetReceipt implements Contract
func (c *EthContract) GetReceipt(ctx context.Context, hash common.Hash) (*ethtypes.Receipt, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	receipt, err := c.backend.TransactionReceipt(ctx, hash)
	if errors.Is(err, ethereum.NotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get receipt: %w", err)
	}
	return receipt, nil
}

// Version reads the contract's version string
func (c *EthContract) Version(ctx context.Context) (string, error) {
	v, err := c.ReadValue(ctx, MethodGetVersion)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("unexpected %s result type %T", MethodGetVersion, v)
	}
	return s, nil
}

// NetworkID returns the node's network id
func (c *EthContract) NetworkID(ctx context.Context) (*big.Int, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	return c.backend.NetworkID(ctx)
}

// ChainID returns the node's chain id
func (c *EthContract) ChainID(ctx context.Context) (*big.Int, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	return c.backend.ChainID(ctx)
}

// PeerCount returns the node's peer count when the backend exposes raw RPC
func (c *EthContract) PeerCount(ctx context.Context) (uint64, error) {
	rc, ok := c.backend.(interface{ Client() *rpc.Client })
	if !ok {
		return 0, fmt.Errorf("backend does not expose net_peerCount")
	}
	if err := c.wait(ctx); err != nil {
		return 0, err
	}
	var count hexutil.Uint64
	if err := rc.Client().CallContext(ctx, &count, "net_peerCount"); err != nil {
		return 0, fmt.Errorf("failed to get peer count: %w", err)
	}
	return uint64(count), nil
}

func (c *EthContract) pack(method string, args ...interface{}) ([]byte, error) {
	if _, ok := c.abi.Methods[method]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMethod, method)
	}
	data, err := c.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s call: %w", method, err)
	}
	return data, nil
}

func (c *EthContract) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter error: %w", err)
	}
	return nil
}
