package chain

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type scriptedReceipts struct {
	responses []*ethtypes.Receipt
	errs      []error
	calls     int
}

func (s *scriptedReceipts) GetReceipt(ctx context.Context, hash common.Hash) (*ethtypes.Receipt, error) {
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	if i < len(s.responses) {
		return s.responses[i], nil
	}
	return nil, nil
}

type recordingSleeper struct {
	delays []time.Duration
}

func (r *recordingSleeper) sleep(ctx context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return ctx.Err()
}

func TestReceiptWaiterPollsUntilMined(t *testing.T) {
	mined := &ethtypes.Receipt{Status: ethtypes.ReceiptStatusSuccessful}
	source := &scriptedReceipts{responses: []*ethtypes.Receipt{nil, nil, mined}}
	sleeper := &recordingSleeper{}
	polls := 0

	w := NewReceiptWaiter(source, WaiterConfig{
		Interval: 3000 * time.Millisecond,
		Sleep:    sleeper.sleep,
		OnPoll:   func() { polls++ },
	}, zaptest.NewLogger(t))

	receipt, err := w.Wait(context.Background(), common.HexToHash("0x01"))
	require.NoError(t, err)
	assert.Same(t, mined, receipt)
	assert.Equal(t, 3, source.calls)
	assert.Equal(t, 3, polls)
	assert.Equal(t, []time.Duration{3 * time.Second, 3 * time.Second}, sleeper.delays)
}

func TestReceiptWaiterReturnsImmediatelyWhenMined(t *testing.T) {
	mined := &ethtypes.Receipt{}
	source := &scriptedReceipts{responses: []*ethtypes.Receipt{mined}}
	sleeper := &recordingSleeper{}

	w := NewReceiptWaiter(source, WaiterConfig{Interval: time.Second, Sleep: sleeper.sleep}, nil)
	receipt, err := w.Wait(context.Background(), common.Hash{})
	require.NoError(t, err)
	assert.Same(t, mined, receipt)
	assert.Empty(t, sleeper.delays)
}

func TestReceiptWaiterPropagatesRPCError(t *testing.T) {
	rpcErr := errors.New("connection refused")
	source := &scriptedReceipts{errs: []error{nil, rpcErr}}
	sleeper := &recordingSleeper{}

	w := NewReceiptWaiter(source, WaiterConfig{Interval: time.Second, Sleep: sleeper.sleep}, nil)
	_, err := w.Wait(context.Background(), common.Hash{})
	require.Error(t, err)
	assert.ErrorIs(t, err, rpcErr)
	assert.Equal(t, 2, source.calls)
	assert.Len(t, sleeper.delays, 1)
}

func TestReceiptWaiterMaxAttempts(t *testing.T) {
	source := &scriptedReceipts{}
	sleeper := &recordingSleeper{}

	w := NewReceiptWaiter(source, WaiterConfig{Interval: time.Second, MaxAttempts: 4, Sleep: sleeper.sleep}, nil)
	_, err := w.Wait(context.Background(), common.Hash{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrReceiptTimeout)
	assert.Equal(t, 4, source.calls)
	assert.Len(t, sleeper.delays, 3)
}

func TestReceiptWaiterStopsOnCancel(t *testing.T) {
	source := &scriptedReceipts{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	w := NewReceiptWaiter(source, WaiterConfig{Interval: time.Hour}, nil)
	_, err := w.Wait(ctx, common.Hash{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, source.calls)
}

func TestSleepContext(t *testing.T) {
	assert.NoError(t, SleepContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, SleepContext(ctx, time.Hour), context.Canceled)
	assert.ErrorIs(t, SleepContext(ctx, 0), context.Canceled)
}
