package notifyhub

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"campusvoice/backend/internal/models"
	"campusvoice/backend/internal/storage"
)

// listen forwards notifications published by any server instance to the hub.
func (m *ManagerService) listen(ctx context.Context) {
	pubsub := m.Subscriber.SubscribeNotifications(ctx)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			n, err := decodeNotification(msg.Channel, msg.Payload)
			if err != nil {
				log.Printf("ERROR: bad notification on %s: %v", msg.Channel, err)
				continue
			}
			select {
			case m.PubSubCh <- n:
			case <-ctx.Done():
				return
			}
		}
	}
}

// decodeNotification parses a payload received on notifications:<recipient>.
// The channel suffix is authoritative for the recipient.
func decodeNotification(channel, payload string) (models.Notification, error) {
	var n models.Notification
	recipient := strings.TrimPrefix(channel, storage.NotificationChannelPrefix)
	if recipient == channel || recipient == "" {
		return n, fmt.Errorf("unexpected channel %q", channel)
	}
	if err := json.Unmarshal([]byte(payload), &n); err != nil {
		return n, err
	}
	n.RecipientID = recipient
	return n, nil
}
