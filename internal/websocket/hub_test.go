package websocket

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"filmsage-backend/internal/database"
	"filmsage-backend/internal/models"
)

type stubAuth map[string]uuid.UUID

func (s stubAuth) ParseToken(tok string) (uuid.UUID, error) {
	id, ok := s[tok]
	if !ok {
		return uuid.Nil, errors.New("invalid token")
	}
	return id, nil
}

func dial(t *testing.T, srv *httptest.Server, token string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=" + token
	return websocket.DefaultDialer.Dial(url, nil)
}

func TestHub_RejectsBadToken(t *testing.T) {
	hub := NewHub(nil, stubAuth{})
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer srv.Close()

	_, resp, err := dial(t, srv, "nope")
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHub_DeliversToOwnerOnly(t *testing.T) {
	alice, bob := uuid.New(), uuid.New()
	hub := NewHub(nil, stubAuth{"a": alice, "b": bob})
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer srv.Close()

	aliceConn, _, err := dial(t, srv, "a")
	require.NoError(t, err)
	defer aliceConn.Close()
	bobConn, _, err := dial(t, srv, "b")
	require.NoError(t, err)
	defer bobConn.Close()

	require.Eventually(t, func() bool {
		return hub.ConnectionCount(alice) == 1 && hub.ConnectionCount(bob) == 1
	}, time.Second, 5*time.Millisecond)

	hub.deliver(database.UserUpdatesChannel(alice), []byte(`{"type":"conversation_updated"}`))

	aliceConn.SetReadDeadline(time.Now().Add(time.Second))
	_, data, err := aliceConn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"conversation_updated"}`, string(data))

	bobConn.SetReadDeadline(time.Now().Add(50 * time.Millisecond))
	_, _, err = bobConn.ReadMessage()
	assert.Error(t, err)
}

func TestHub_SendToUserAndDisconnect(t *testing.T) {
	alice := uuid.New()
	hub := NewHub(nil, stubAuth{"a": alice})
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer srv.Close()

	conn, _, err := dial(t, srv, "a")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return hub.ConnectionCount(alice) == 1 }, time.Second, 5*time.Millisecond)

	hub.SendToUser(alice, models.WSMessage{Type: "ping", Payload: map[string]int{"n": 1}})
	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"ping","payload":{"n":1}}`, string(data))

	conn.Close()
	assert.Eventually(t, func() bool { return hub.ConnectionCount(alice) == 0 }, time.Second, 5*time.Millisecond)
}

func TestHub_IgnoresForeignChannels(t *testing.T) {
	hub := NewHub(nil, stubAuth{})
	assert.NotPanics(t, func() {
		hub.deliver("other:channel", []byte("x"))
	})
}
