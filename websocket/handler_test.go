package websocket

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkassem/veridian_backend/models"
)

func TestHandleSigninChannel(t *testing.T) {
	hub := NewHub()

	e := echo.New()
	e.GET("/ws/signin/:code", func(c echo.Context) error {
		return HandleSigninChannel(c, hub)
	})

	server := httptest.NewServer(e)
	defer server.Close()

	wsURL := strings.Replace(server.URL, "http", "ws", 1) + "/ws/signin/mobile-code"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// The server subscribes just after the upgrade completes; give it a beat.
	time.Sleep(50 * time.Millisecond)

	want := models.HandoffEnvelope{
		URL:   "/api/auth/signin/validate-otp",
		Email: "user@example.com",
		Code:  "web-code",
	}
	hub.Publish(ChannelKey("mobile-code"), want)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var got models.HandoffEnvelope
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, want, got)
}

func TestHandleSigninChannelOtherCodeSeesNothing(t *testing.T) {
	hub := NewHub()

	e := echo.New()
	e.GET("/ws/signin/:code", func(c echo.Context) error {
		return HandleSigninChannel(c, hub)
	})

	server := httptest.NewServer(e)
	defer server.Close()

	wsURL := strings.Replace(server.URL, "http", "ws", 1) + "/ws/signin/other-code"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	time.Sleep(50 * time.Millisecond)
	hub.Publish(ChannelKey("mobile-code"), models.HandoffEnvelope{Code: "web-code"})

	conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))

	var got models.HandoffEnvelope
	assert.Error(t, conn.ReadJSON(&got), "no envelope should arrive on an unrelated channel")
}
