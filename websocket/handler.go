package websocket

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// HandleSigninChannel upgrades the connection and streams handoff
// envelopes for the code the web session is displaying. The session must
// be subscribed before the mobile confirmation happens, so clients open
// this socket as soon as they render the code.
func HandleSigninChannel(c echo.Context, hub *Hub) error {
	code := c.Param("code")
	if code == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "code is required")
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	sub := hub.Subscribe(code)

	// Reader goroutine: the client sends nothing meaningful, but reading
	// is how we notice the peer going away.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	go func() {
		defer func() {
			hub.Unsubscribe(sub)
			conn.Close()
		}()

		for {
			select {
			case envelope, ok := <-sub.Envelopes():
				if !ok {
					return
				}
				if err := conn.WriteJSON(envelope); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}()

	return nil
}
