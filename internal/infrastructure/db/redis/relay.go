package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/nearhelp/sos-engine/internal/infrastructure/realtime"
	"github.com/nearhelp/sos-engine/pkg/logger"
)

const defaultRelayChannel = "sos:hub"

// Relay fans hub publications out to every replica over Redis pub/sub.
// Delivery is best effort, matching the hub's own guarantee.
type Relay struct {
	client  *redis.Client
	channel string
	log     zerolog.Logger
}

// NewRelay creates a Relay on channel, or on the default channel when empty.
func NewRelay(client *redis.Client, channel string, log zerolog.Logger) *Relay {
	if channel == "" {
		channel = defaultRelayChannel
	}
	return &Relay{client: client, channel: channel, log: logger.Component(log, "relay")}
}

func (r *Relay) Publish(ctx context.Context, msg realtime.RelayMessage) error {
	payload, err := encodeRelay(msg)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, r.channel, payload).Err()
}

// Subscribe blocks delivering relayed messages to handle until ctx is done.
func (r *Relay) Subscribe(ctx context.Context, handle func(realtime.RelayMessage)) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("relay subscribe: %w", err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			msg, err := decodeRelay(m.Payload)
			if err != nil {
				r.log.Warn().Err(err).Msg("discarding malformed relay message")
				continue
			}
			handle(msg)
		}
	}
}

func encodeRelay(msg realtime.RelayMessage) ([]byte, error) {
	b, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode relay message: %w", err)
	}
	return b, nil
}

func decodeRelay(payload string) (realtime.RelayMessage, error) {
	var msg realtime.RelayMessage
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		return realtime.RelayMessage{}, fmt.Errorf("decode relay message: %w", err)
	}
	if msg.Origin == "" || len(msg.Frame) == 0 {
		return realtime.RelayMessage{}, fmt.Errorf("decode relay message: missing origin or frame")
	}
	return msg, nil
}

var _ realtime.Relay = (*Relay)(nil)
