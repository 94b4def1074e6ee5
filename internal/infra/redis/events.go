package redis

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"adaptive-quiz-service/internal/logging"
)

const roomEventsChannel = "rooms:events"

// RoomEvents relays "room changed" notices between instances over Redis pub/sub.
// Messages carry only the room code; receivers re-read the room themselves.
type RoomEvents struct {
	client redis.UniversalClient
}

func NewRoomEvents(client redis.UniversalClient) *RoomEvents {
	return &RoomEvents{client: client}
}

func (e *RoomEvents) Publish(ctx context.Context, code string) error {
	return e.client.Publish(ctx, roomEventsChannel, code).Err()
}

// Run delivers every published code to handle until ctx is done.
func (e *RoomEvents) Run(ctx context.Context, handle func(ctx context.Context, code string)) error {
	sub := e.client.Subscribe(ctx, roomEventsChannel)
	defer sub.Close()

	// Wait for the subscription to be confirmed before consuming.
	if _, err := sub.Receive(ctx); err != nil {
		return err
	}

	log := logging.FromContext(ctx).WithFields(logrus.Fields{"channel": roomEventsChannel})
	log.Info("listening for room events")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			handle(ctx, msg.Payload)
		}
	}
}
