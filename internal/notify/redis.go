package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Shivanand-hulikatti/slotswap/internal/model"
	"github.com/Shivanand-hulikatti/slotswap/internal/service"
	"github.com/redis/go-redis/v9"
)

// Deliverer hands an envelope to locally connected clients.
type Deliverer interface {
	Deliver(env model.Envelope) int
}

var _ service.Notifier = (*RedisFanout)(nil)

// RedisFanout publishes notifications on a Redis channel so that the
// instance holding the recipient's websocket can deliver them. Every
// instance runs Run to relay the channel into its local Hub.
type RedisFanout struct {
	client  *redis.Client
	channel string
	local   Deliverer
	log     *slog.Logger
	now     func() time.Time
}

// NewRedisFanout constructs a RedisFanout relaying channel into local.
func NewRedisFanout(client *redis.Client, channel string, local Deliverer, log *slog.Logger) *RedisFanout {
	return &RedisFanout{client: client, channel: channel, local: local, log: log, now: time.Now}
}

// Notify publishes the envelope. Delivery happens in Run, on whichever
// instance the recipient is connected to.
func (f *RedisFanout) Notify(ctx context.Context, userID string, kind model.NotificationKind, payload any) error {
	env, err := NewEnvelope(userID, kind, payload, f.now())
	if err != nil {
		return err
	}
	msg, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	if err := f.client.Publish(ctx, f.channel, msg).Err(); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}

// Run relays published envelopes to the local Deliverer until ctx is done.
func (f *RedisFanout) Run(ctx context.Context) error {
	sub := f.client.Subscribe(ctx, f.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", f.channel, err)
	}
	f.log.Info("relaying notifications", "channel", f.channel)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			f.relay(msg.Payload)
		}
	}
}

func (f *RedisFanout) relay(payload string) {
	var env model.Envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		f.log.Warn("discarding malformed notification", "error", err)
		return
	}
	n := f.local.Deliver(env)
	f.log.Debug("notification relayed", "user_id", env.Recipient, "type", env.Type, "connections", n)
}
