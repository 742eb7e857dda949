package redis

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"julianmorley.ca/con-plar/storefront/pkg/chat"
)

const channelPrefix = "storefront:"

// Relay connects the hubs of several instances through Redis pub/sub.
type Relay struct {
	client *redis.Client
	hub    *chat.Hub
	log    *logrus.Entry
}

func NewRelay(client *redis.Client, hub *chat.Hub) *Relay {
	return &Relay{
		client: client,
		hub:    hub,
		log:    logrus.WithField("component", "relay"),
	}
}

func channel(topic string) string {
	return channelPrefix + topic
}

func (r *Relay) Forward(ctx context.Context, event chat.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "encode event")
	}
	if err := r.client.Publish(ctx, channel(event.Topic), payload).Err(); err != nil {
		return errors.Wrapf(err, "publish on %s", channel(event.Topic))
	}
	return nil
}

// Run hands events from other instances to the hub until ctx is done.
func (r *Relay) Run(ctx context.Context, topics ...string) error {
	channels := make([]string, len(topics))
	for i, t := range topics {
		channels[i] = channel(t)
	}

	sub := r.client.Subscribe(ctx, channels...)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return errors.Wrap(err, "subscribe to relay channels")
	}
	r.log.WithField("channels", channels).Info("relay listening")

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			var event chat.Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				r.log.WithError(err).WithField("channel", msg.Channel).Warn("dropping malformed event")
				continue
			}
			r.hub.Receive(event)
		}
	}
}
