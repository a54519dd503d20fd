package notify

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/michaelpento.lv/ourbitrage/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

type fakeSender struct {
	name     string
	err      error
	titles   []string
	messages []string
}

func (f *fakeSender) Send(_ context.Context, title, message string) error {
	f.titles = append(f.titles, title)
	f.messages = append(f.messages, message)
	return f.err
}

func (f *fakeSender) Name() string { return f.name }

func TestNotifyArbitration(t *testing.T) {
	s := &fakeSender{name: "fake"}
	n := NewNotifier([]Sender{s}, zaptest.NewLogger(t))

	err := n.NotifyArbitration(context.Background(), &types.ArbitrationResult{
		Route:        types.Route{Method: "arbEthFromKyberToUniswap", FundingToken: "DAI"},
		FundingToken: "DAI",
		TxHash:       common.HexToHash("0x01"),
		Status:       1,
		BlockNumber:  big.NewInt(42),
		GasUsed:      90000,
	})
	require.NoError(t, err)

	require.Len(t, s.titles, 1)
	assert.Equal(t, "Arbitration executed", s.titles[0])
	assert.Contains(t, s.messages[0], "route=arbEthFromKyberToUniswap/DAI")
	assert.Contains(t, s.messages[0], "block=42")
	assert.Contains(t, s.messages[0], "profit=0")
}

func TestNotifyReverted(t *testing.T) {
	s := &fakeSender{name: "fake"}
	n := NewNotifier([]Sender{s}, nil)

	require.NoError(t, n.NotifyArbitration(context.Background(), &types.ArbitrationResult{Status: 0}))
	assert.Equal(t, "Arbitration reverted", s.titles[0])
	assert.NoError(t, n.NotifyArbitration(context.Background(), nil))
	assert.Len(t, s.titles, 1)
}

func TestSendContinuesAfterFailure(t *testing.T) {
	bad := &fakeSender{name: "bad", err: errors.New("unavailable")}
	good := &fakeSender{name: "good"}
	n := NewNotifier([]Sender{bad, good}, zaptest.NewLogger(t))

	err := n.Send(context.Background(), "t", "m")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad: unavailable")
	assert.Len(t, good.titles, 1)
}

func TestLogSender(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	s := NewLogSender(zap.New(core))

	require.NoError(t, s.Send(context.Background(), "Arbitration executed", "route=x"))
	assert.Equal(t, "log", s.Name())

	entries := logs.FilterMessage("Arbitration executed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "route=x", entries[0].ContextMap()["details"])
}
