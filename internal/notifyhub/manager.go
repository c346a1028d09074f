// Package notifyhub delivers notifications to connected users in real time.
// Notifications are persisted first and then published to Redis; every server
// instance listens on the notification channels and forwards what it receives
// to the sockets it holds for the recipient.
package notifyhub

import (
	"context"
	"log"

	"campusvoice/backend/internal/models"

	"github.com/redis/go-redis/v9"
)

// Subscriber opens the Redis subscription for all recipient channels.
type Subscriber interface {
	SubscribeNotifications(ctx context.Context) *redis.PubSub
}

// ManagerService is the hub. Only the Run goroutine touches Clients.
type ManagerService struct {
	Clients map[string]map[Client]struct{}

	RegisterCh   chan Client
	UnregisterCh chan Client
	PubSubCh     chan models.Notification

	Subscriber Subscriber

	done chan struct{}
}

func NewManagerService(s Subscriber) *ManagerService {
	return &ManagerService{
		Clients:      make(map[string]map[Client]struct{}),
		RegisterCh:   make(chan Client),
		UnregisterCh: make(chan Client),
		PubSubCh:     make(chan models.Notification, 64),
		Subscriber:   s,
		done:         make(chan struct{}),
	}
}

// Run processes registrations and deliveries until ctx is done. On shutdown
// every remaining client is closed.
func (m *ManagerService) Run(ctx context.Context) {
	defer close(m.done)

	if m.Subscriber != nil {
		go m.listen(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			for _, set := range m.Clients {
				for c := range set {
					c.Close()
				}
			}
			m.Clients = make(map[string]map[Client]struct{})
			log.Println("INFO: notification hub stopped")
			return

		case c := <-m.RegisterCh:
			set, ok := m.Clients[c.GetUserID()]
			if !ok {
				set = make(map[Client]struct{})
				m.Clients[c.GetUserID()] = set
			}
			set[c] = struct{}{}
			log.Printf("INFO: live client registered for user %s (%d open)", c.GetUserID(), len(set))

		case c := <-m.UnregisterCh:
			m.remove(c)

		case n := <-m.PubSubCh:
			m.deliver(n)
		}
	}
}

// Register hands c to the hub. It reports false once the hub has stopped.
func (m *ManagerService) Register(c Client) bool {
	select {
	case m.RegisterCh <- c:
		return true
	case <-m.done:
		return false
	}
}

// Unregister asks the hub to drop c. It does not block once the hub has stopped.
func (m *ManagerService) Unregister(c Client) {
	select {
	case m.UnregisterCh <- c:
	case <-m.done:
	}
}

func (m *ManagerService) remove(c Client) {
	set, ok := m.Clients[c.GetUserID()]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(m.Clients, c.GetUserID())
	}
	c.Close()
}

func (m *ManagerService) deliver(n models.Notification) {
	set := m.Clients[n.RecipientID]
	if len(set) == 0 {
		return
	}
	msg := models.PushMessage{Type: "notification", Notification: &n}
	for c := range set {
		select {
		case c.GetSendChannel() <- msg:
		default:
			// Повільний клієнт: від'єднуємо, сповіщення лишається в інбоксі.
			log.Printf("WARNING: dropping slow live client of user %s", n.RecipientID)
			m.remove(c)
		}
	}
}
