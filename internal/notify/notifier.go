package notify

import (
	"context"
	"errors"
	"fmt"

	log "pump-wallet-monitor/internal/infra/log"

	"go.uber.org/zap"
)

// Sender is one delivery channel.
type Sender interface {
	Send(ctx context.Context, a Alert) error
	Name() string
}

// Notifier dispatches each alert to all senders. A failing sender does not
// stop delivery to the others.
type Notifier struct {
	senders []Sender
}

func NewNotifier(senders ...Sender) *Notifier {
	return &Notifier{senders: senders}
}

func (n *Notifier) Add(s Sender) {
	n.senders = append(n.senders, s)
}

// Notify returns the joined sender errors, nil when every sender succeeded.
func (n *Notifier) Notify(ctx context.Context, a Alert) error {
	if len(n.senders) == 0 {
		return nil
	}

	var errs []error
	for _, s := range n.senders {
		if err := s.Send(ctx, a); err != nil {
			log.LogError("Alert delivery failed",
				zap.String("sender", s.Name()),
				zap.String("alert_id", a.ID.String()),
				zap.String("mint", a.Mint),
				zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}
		log.LogDebug("Alert delivered",
			zap.String("sender", s.Name()),
			zap.String("alert_id", a.ID.String()),
			zap.String("type", a.Type.String()))
	}
	return errors.Join(errs...)
}

// Close closes every sender that holds a connection.
func (n *Notifier) Close() error {
	var errs []error
	for _, s := range n.senders {
		if c, ok := s.(interface{ Close() error }); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			}
		}
	}
	return errors.Join(errs...)
}
