package hub

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"board-api/domain"
)

const (
	eventsChannel = "board:events"
	adminChannel  = "board:admin"
)

// Hub fans board events out to every connected viewer session through
// Redis pub/sub. Delivery is best effort: a viewer that is not
// subscribed at publish time never sees the event and must re-fetch
// the snapshot endpoints on reconnect.
type Hub struct {
	redis *redis.Client
}

// New creates a Hub using the provided Redis client.
func New(client *redis.Client) *Hub {
	if client == nil {
		panic("hub.New: redis client is nil")
	}
	return &Hub{redis: client}
}

func (h *Hub) publish(ctx context.Context, channel, eventType string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	body, err := json.Marshal(domain.Event{Type: eventType, Data: payload})
	if err != nil {
		return err
	}
	return h.redis.Publish(ctx, channel, body).Err()
}

// BroadcastTaskCreated announces a newly created task to all viewers.
func (h *Hub) BroadcastTaskCreated(ctx context.Context, t domain.Task) error {
	return h.publish(ctx, eventsChannel, domain.TaskCreated, t)
}

// BroadcastTaskMoved announces a column/order change.
func (h *Hub) BroadcastTaskMoved(ctx context.Context, id string, column domain.Column, order int) error {
	return h.publish(ctx, eventsChannel, domain.TaskMoved, domain.TaskMovedEventData{
		ID:       id,
		ColumnID: column,
		Order:    order,
	})
}

// BroadcastTaskDeleted announces a removal. The payload is the bare id.
func (h *Hub) BroadcastTaskDeleted(ctx context.Context, id string) error {
	return h.publish(ctx, eventsChannel, domain.TaskDeleted, id)
}

// BroadcastMessage announces a chat message.
func (h *Hub) BroadcastMessage(ctx context.Context, m domain.Message) error {
	return h.publish(ctx, eventsChannel, domain.MessageReceived, m)
}

// PublishPairingQR narrow-casts a pairing token to admin sessions only.
func (h *Hub) PublishPairingQR(ctx context.Context, token string) error {
	return h.publish(ctx, adminChannel, domain.AdminQR, token)
}

// PublishPairingReady narrow-casts that the external channel is linked.
func (h *Hub) PublishPairingReady(ctx context.Context) error {
	return h.publish(ctx, adminChannel, domain.AdminReady, true)
}

// Subscribe opens a viewer subscription to board events. The returned
// cancel func must be called when the session ends. Events that arrive
// faster than the viewer drains them are dropped.
func (h *Hub) Subscribe(ctx context.Context) (<-chan domain.Event, func(), error) {
	return h.subscribe(ctx, eventsChannel)
}

// SubscribeAdmin opens a subscription to the admin pairing channel.
func (h *Hub) SubscribeAdmin(ctx context.Context) (<-chan domain.Event, func(), error) {
	return h.subscribe(ctx, adminChannel)
}

func (h *Hub) subscribe(ctx context.Context, channel string) (<-chan domain.Event, func(), error) {
	sub := h.redis.Subscribe(ctx, channel)
	// Wait for the subscription confirmation so no event published after
	// this call returns is missed.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, err
	}
	out := make(chan domain.Event, 16)
	go func() {
		defer close(out)
		for msg := range sub.Channel() {
			var ev domain.Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				log.WithError(err).Warn("dropping malformed broadcast payload")
				continue
			}
			select {
			case out <- ev:
			default:
				// Slow viewer; broadcast is best effort.
			}
		}
	}()
	cancel := func() { _ = sub.Close() }
	return out, cancel, nil
}
