package handlers

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"promptmatch-backend/internal/services"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// matchedPair signs up alice and bob and makes them match
func (a *testAPI) matchedPair(t *testing.T) string {
	t.Helper()
	a.signUp(t, "alice", "bob")
	a.do(t, http.MethodPost, "/api/v1/swipes", "alice", map[string]string{"swiped_id": "bob", "direction": "like"})
	rec := a.do(t, http.MethodPost, "/api/v1/swipes", "bob", map[string]string{"swiped_id": "alice", "direction": "like"})
	require.Equal(t, http.StatusOK, rec.Code)
	result := decode[services.SwipeResult](t, rec)
	require.True(t, result.Matched)
	return result.MatchID
}

func wsURL(server *httptest.Server, matchID, token string) string {
	return "ws" + strings.TrimPrefix(server.URL, "http") +
		"/api/v1/ws/matches/" + matchID + "?token=" + url.QueryEscape(token)
}

func readFrame(t *testing.T, conn *websocket.Conn) WSMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var frame WSMessage
	require.NoError(t, conn.ReadJSON(&frame))
	return frame
}

func TestWebSocketChat(t *testing.T) {
	api := newTestAPI(t)
	matchID := api.matchedPair(t)
	server := httptest.NewServer(api.handler)
	defer server.Close()

	alice, _, err := websocket.DefaultDialer.Dial(wsURL(server, matchID, api.token(t, "alice")), nil)
	require.NoError(t, err)
	defer alice.Close()
	bob, _, err := websocket.DefaultDialer.Dial(wsURL(server, matchID, api.token(t, "bob")), nil)
	require.NoError(t, err)
	defer bob.Close()

	require.NoError(t, alice.WriteJSON(WSMessage{Type: frameSendMessage, Content: "hi bob"}))

	// alice sees her ack and the broadcast in either order
	seen := map[string]WSMessage{}
	for range 2 {
		frame := readFrame(t, alice)
		seen[frame.Type] = frame
	}
	require.Contains(t, seen, frameMessageSent)
	require.Contains(t, seen, frameMessage)
	assert.Equal(t, int64(1), seen[frameMessageSent].Data.Position)

	frame := readFrame(t, bob)
	assert.Equal(t, frameMessage, frame.Type)
	require.NotNil(t, frame.Data)
	assert.Equal(t, "hi bob", frame.Data.Content)
	assert.Equal(t, "alice", frame.Data.SenderID)

	// messages sent over HTTP reach the socket too
	rec := api.do(t, http.MethodPost, "/api/v1/matches/"+matchID+"/messages", "bob", map[string]string{"content": "hey"})
	require.Equal(t, http.StatusCreated, rec.Code)
	frame = readFrame(t, alice)
	assert.Equal(t, frameMessage, frame.Type)
	assert.Equal(t, int64(2), frame.Data.Position)
	frame = readFrame(t, bob)
	assert.Equal(t, "hey", frame.Data.Content)

	require.NoError(t, bob.WriteJSON(WSMessage{Type: frameSendMessage, Content: "  "}))
	frame = readFrame(t, bob)
	assert.Equal(t, frameError, frame.Type)

	require.NoError(t, bob.WriteJSON(WSMessage{Type: "typing"}))
	frame = readFrame(t, bob)
	assert.Equal(t, frameError, frame.Type)
	assert.Equal(t, "Unknown message type", frame.Message)
}

func TestWebSocketRejectsBeforeUpgrade(t *testing.T) {
	api := newTestAPI(t)
	matchID := api.matchedPair(t)
	server := httptest.NewServer(api.handler)
	defer server.Close()

	tests := []struct {
		name   string
		url    string
		status int
	}{
		{name: "bad token", url: wsURL(server, matchID, "not-a-token"), status: http.StatusUnauthorized},
		{name: "not participant", url: wsURL(server, matchID, api.token(t, "carol")), status: http.StatusForbidden},
		{name: "unknown match", url: wsURL(server, "missing", api.token(t, "alice")), status: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn, resp, err := websocket.DefaultDialer.Dial(tt.url, nil)
			if conn != nil {
				conn.Close()
			}
			require.ErrorIs(t, err, websocket.ErrBadHandshake)
			require.NotNil(t, resp)
			defer resp.Body.Close()
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}
