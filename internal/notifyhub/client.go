package notifyhub

import "campusvoice/backend/internal/models"

// Client is one live connection of a signed-in user. A user may hold several
// at once (tabs, devices); the hub fans each notification out to all of them.
type Client interface {
	// GetUserID returns the user the connection was authenticated as.
	GetUserID() string

	// GetSendChannel returns the channel the hub writes push messages to.
	GetSendChannel() chan<- models.PushMessage

	// Run starts the client's read and write pumps.
	Run()
	// Close stops the write pump. The hub calls it exactly once, when it
	// forgets the client.
	Close()
}
