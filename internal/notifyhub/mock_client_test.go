package notifyhub

import "campusvoice/backend/internal/models"

type MockClient struct {
	userID      string
	RecvChannel chan models.PushMessage
	closed      chan struct{}
}

func newMockClient(userID string, buffer int) *MockClient {
	return &MockClient{
		userID:      userID,
		RecvChannel: make(chan models.PushMessage, buffer),
		closed:      make(chan struct{}),
	}
}

func (c *MockClient) GetUserID() string                         { return c.userID }
func (c *MockClient) GetSendChannel() chan<- models.PushMessage { return c.RecvChannel }
func (c *MockClient) Run()                                      {}
func (c *MockClient) Close()                                    { close(c.closed) }

func (c *MockClient) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}
