// Package poller empties a shopper's cart once the order placed from it is
// confirmed.
package poller

import (
	"context"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

const (
	consumerGroup = "cart-service-consumer"

	minReadBackoff = 100 * time.Millisecond
	maxReadBackoff = 5 * time.Second
)

// CartClearer clears the cart of one session.
type CartClearer interface {
	Clear(ctx context.Context, sessionID string) error
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

type Poller struct {
	carts  CartClearer
	reader messageReader
	logger *zap.Logger

	backoff time.Duration
}

func NewPoller(carts CartClearer, logger *zap.Logger, topic string, brokers ...string) *Poller {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  consumerGroup,
		MaxBytes: 10e6, // 10MB
	})
	return &Poller{carts: carts, reader: reader, logger: logger}
}

// Run consumes until ctx is cancelled. Read failures back off exponentially
// up to maxReadBackoff; a successful read resets the delay.
func (p *Poller) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		if p.clearConfirmedCart(ctx) {
			p.backoff = 0
			continue
		}

		p.backoff = nextBackoff(p.backoff)
		select {
		case <-time.After(p.backoff):
		case <-ctx.Done():
			return
		}
	}
}

func nextBackoff(d time.Duration) time.Duration {
	if d < minReadBackoff {
		return minReadBackoff
	}
	if d *= 2; d > maxReadBackoff {
		return maxReadBackoff
	}
	return d
}

func (p *Poller) Close() {
	if err := p.reader.Close(); err != nil {
		p.logger.Warn("error closing order reader", zap.Error(err))
	}
}

// clearConfirmedCart handles one message. It reports false only when the
// read itself failed.
func (p *Poller) clearConfirmedCart(ctx context.Context) bool {
	m, err := p.reader.ReadMessage(ctx)
	if err != nil {
		if !errors.Is(err, context.Canceled) && ctx.Err() == nil {
			p.logger.Warn("error reading order message", zap.Error(err), zap.Duration("retry_in", nextBackoff(p.backoff)))
		}
		return false
	}

	if !gjson.ValidBytes(m.Value) {
		p.logger.Warn("skipping malformed order message", zap.Int64("offset", m.Offset))
		return true
	}
	sessionID := gjson.GetBytes(m.Value, "session_id")
	if sessionID.Type != gjson.String || sessionID.Str == "" {
		p.logger.Warn("order message without session_id", zap.Int64("offset", m.Offset))
		return true
	}

	if err := p.carts.Clear(ctx, sessionID.Str); err != nil {
		p.logger.Error("failed to clear cart for confirmed order",
			zap.String("session_id", sessionID.Str),
			zap.Error(err))
		return true
	}
	p.logger.Info("cart cleared for confirmed order", zap.String("session_id", sessionID.Str))
	return true
}
