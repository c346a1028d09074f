package notifyhub

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"campusvoice/backend/internal/models"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) *ManagerService {
	hub := NewManagerService(nil)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-hub.done
	})
	return hub
}

func TestManager_FanOutToEveryConnectionOfRecipient(t *testing.T) {
	hub := startHub(t)
	tab1 := newMockClient("user_A", 4)
	tab2 := newMockClient("user_A", 4)
	other := newMockClient("user_B", 4)

	hub.RegisterCh <- tab1
	hub.RegisterCh <- tab2
	hub.RegisterCh <- other
	hub.PubSubCh <- models.Notification{ID: "n1", RecipientID: "user_A", Title: "hello"}

	for _, c := range []*MockClient{tab1, tab2} {
		select {
		case msg := <-c.RecvChannel:
			assert.Equal(t, "notification", msg.Type)
			require.NotNil(t, msg.Notification)
			assert.Equal(t, "n1", msg.Notification.ID)
		case <-time.After(time.Second):
			t.Fatal("client did not receive the notification")
		}
	}
	assert.Empty(t, other.RecvChannel)
}

func TestManager_Unregister(t *testing.T) {
	hub := startHub(t)
	c := newMockClient("user_A", 1)

	hub.RegisterCh <- c
	hub.Unregister(c)
	hub.Unregister(c) // повторний виклик нічого не робить

	assert.True(t, c.isClosed())
}

func TestManager_SlowClientIsDropped(t *testing.T) {
	hub := startHub(t)
	slow := newMockClient("user_A", 0)

	hub.RegisterCh <- slow
	hub.PubSubCh <- models.Notification{RecipientID: "user_A"}

	select {
	case <-slow.closed:
	case <-time.After(time.Second):
		t.Fatal("slow client was not closed")
	}
}

func TestManager_ShutdownClosesClients(t *testing.T) {
	hub := NewManagerService(nil)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	c := newMockClient("user_A", 1)
	hub.RegisterCh <- c
	cancel()
	<-hub.done

	assert.True(t, c.isClosed())
	assert.NotPanics(t, func() { hub.Unregister(c) })
}

func TestManager_RegisterAfterShutdownDoesNotBlock(t *testing.T) {
	hub := NewManagerService(nil)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	cancel()
	<-hub.done

	result := make(chan bool, 1)
	go func() { result <- hub.Register(newMockClient("user_A", 1)) }()

	select {
	case ok := <-result:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("Register blocked on a stopped hub")
	}
}

func TestDecodeNotification(t *testing.T) {
	n, err := decodeNotification("notifications:user_A", `{"id":"n1","recipient":"spoofed","title":"t"}`)
	require.NoError(t, err)
	assert.Equal(t, "user_A", n.RecipientID)
	assert.Equal(t, "n1", n.ID)

	_, err = decodeNotification("other:user_A", `{}`)
	assert.Error(t, err)
	_, err = decodeNotification("notifications:", `{}`)
	assert.Error(t, err)
	_, err = decodeNotification("notifications:user_A", `not json`)
	assert.Error(t, err)
}

func TestWebSocketClient_ReceivesPush(t *testing.T) {
	hub := startHub(t)
	upgrader := websocket.Upgrader{}
	registered := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client := NewWebSocketClient("user_A", conn, hub)
		if !hub.Register(client) {
			conn.Close()
			return
		}
		client.Run()
		close(registered)
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	select {
	case <-registered:
	case <-time.After(time.Second):
		t.Fatal("client was not registered")
	}
	hub.PubSubCh <- models.Notification{ID: "n1", RecipientID: "user_A", Title: "hi"}

	var msg models.PushMessage
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "notification", msg.Type)
	assert.Equal(t, "hi", msg.Notification.Title)
}
