package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/eventfold/analytics/internal/domain"
	"github.com/eventfold/analytics/internal/logger"
)

// Config holds the configuration for the NATS connection
type Config struct {
	URL            string
	ConnectionName string
	MaxReconnects  int
	ReconnectWait  time.Duration
}

// NATSPublisher publishes event envelopes to core NATS subjects. The service
// runs fine without a bus: a failed Connect leaves the publisher in
// disconnected mode and every Publish becomes a logged no-op.
type NATSPublisher struct {
	cfg Config
	nc  *nats.Conn
}

// NewNATSPublisher constructs a publisher; no connection is made until Connect
func NewNATSPublisher(cfg Config) *NATSPublisher {
	return &NATSPublisher{cfg: cfg}
}

// Connect dials the server with exponential backoff until it answers or the
// context expires
func (p *NATSPublisher) Connect(ctx context.Context) error {
	opts := []nats.Option{
		nats.Name(p.cfg.ConnectionName),
		nats.MaxReconnects(p.cfg.MaxReconnects),
		nats.ReconnectWait(p.cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				logger.Error(err, zap.String("message", "disconnected from NATS"))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("reconnected to NATS", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Info("NATS connection closed")
		}),
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5), ctx)
	err := backoff.Retry(func() error {
		nc, err := nats.Connect(p.cfg.URL, opts...)
		if err != nil {
			return err
		}
		p.nc = nc
		return nil
	}, policy)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return nil
}

// Connected reports whether the underlying connection is live
func (p *NATSPublisher) Connected() bool {
	return p.nc != nil && p.nc.IsConnected()
}

// Publish sends one event envelope to the given subject
func (p *NATSPublisher) Publish(_ context.Context, subject string, envelope *domain.EventEnvelope) error {
	if !p.Connected() {
		logger.Debug("NATS not connected, skipping publish", zap.String("subject", subject))
		return nil
	}

	data, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}
	if err := p.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}
	return nil
}

// Close drains and closes the connection
func (p *NATSPublisher) Close() {
	if p.nc == nil {
		return
	}
	if err := p.nc.Drain(); err != nil {
		p.nc.Close()
	}
}
