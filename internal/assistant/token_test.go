package assistant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRoomTokenSuccess(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/voice_assistant/token/", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_ = json.NewEncoder(w).Encode(map[string]string{"url": "wss://rtc.example", "token": "jwt"})
	}))
	defer server.Close()

	c := New(server.URL, time.Second)
	creds, err := c.RoomToken(context.Background(), "storyroom")
	require.NoError(t, err)
	require.Equal(t, "wss://rtc.example", creds.URL)
	require.Equal(t, "jwt", creds.Token)

	require.Equal(t, "storyroom", gotBody["room"])
	identity, ok := gotBody["identity"].(string)
	require.True(t, ok)
	require.True(t, strings.HasPrefix(identity, "student_"))
	require.Equal(t, creds.Identity, identity)
}

func TestRoomTokenDenied(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "room is full"})
	}))
	defer server.Close()

	c := New(server.URL, time.Second)
	_, err := c.RoomToken(context.Background(), "storyroom")
	require.ErrorIs(t, err, ErrDenied)
}

func TestRoomTokenTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	server.Close()

	c := New(server.URL, time.Second)
	_, err := c.RoomToken(context.Background(), "storyroom")
	require.Error(t, err)
}
