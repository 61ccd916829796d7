// components/contact/stream.go
//
// Websocket push of session views.
//
// Workflow
// --------
//  1. Resolve the session, upgrade the connection.
//  2. Subscribe to the controller; every View is written as one JSON frame.
//  3. Ping every pingPeriod; a missing pong for pongWait drops the socket.
//  4. The read loop only drains control frames.  Any read error ends the
//     stream and cancels the subscription.
//
// Notes
// -----
//   - All writes happen on the serving goroutine; gorilla allows a single
//     concurrent writer.
//   - The default origin check applies, so only same-origin pages connect.
package contact

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

func (c *Component) handleStream(w http.ResponseWriter, r *http.Request) {
	ctl, ok := c.controller(w, r)
	if !ok {
		return
	}
	log := c.logger(r)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		log.Debugw("websocket upgrade", "err", err)
		return
	}
	defer conn.Close()

	views, cancel := ctl.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Infow("websocket read", "err", err)
				}
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case v, open := <-views:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !open {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "session closed"))
				return
			}
			if err := conn.WriteJSON(v); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
