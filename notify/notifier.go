// Package notify delivers arbitration notifications to one or more senders.
package notify

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/michaelpento.lv/ourbitrage/types"
	"go.uber.org/zap"
)

// Sender is a notification channel
type Sender interface {
	Send(ctx context.Context, title, message string) error
	Name() string
}

// Notifier dispatches notifications to every registered sender. A failing
// sender does not prevent delivery to the others.
type Notifier struct {
	senders []Sender
	logger  *zap.Logger
}

// NewNotifier creates a notifier for the given senders
func NewNotifier(senders []Sender, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{
		senders: senders,
		logger:  logger,
	}
}

// NotifyArbitration announces a confirmed arbitration
func (n *Notifier) NotifyArbitration(ctx context.Context, result *types.ArbitrationResult) error {
	if result == nil {
		return nil
	}
	title := "Arbitration executed"
	if result.Status != 1 {
		title = "Arbitration reverted"
	}
	message := fmt.Sprintf("route=%s token=%s tx=%s block=%s gas_used=%d profit=%s loss=%s",
		result.Route.ID(),
		result.FundingToken,
		result.TxHash.Hex(),
		bigString(result.BlockNumber),
		result.GasUsed,
		bigString(result.Profit),
		bigString(result.Loss),
	)
	return n.Send(ctx, title, message)
}

// Send delivers title and message to every sender
func (n *Notifier) Send(ctx context.Context, title, message string) error {
	if len(n.senders) == 0 {
		return nil
	}

	var errs []string
	for _, s := range n.senders {
		if err := s.Send(ctx, title, message); err != nil {
			n.logger.Error("Notification sender failed",
				zap.String("sender", s.Name()),
				zap.Error(err),
			)
			errs = append(errs, fmt.Sprintf("%s: %v", s.Name(), err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("notify: %s", strings.Join(errs, "; "))
	}
	return nil
}

// LogSender writes notifications to a zap logger
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender creates a sender that logs at info level
func NewLogSender(logger *zap.Logger) *LogSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(_ context.Context, title, message string) error {
	s.logger.Info(title, zap.String("details", message))
	return nil
}

func (s *LogSender) Name() string {
	return "log"
}

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
