package infra

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

// StreamHandler writes to conn until ctx is done or it returns. It is the only writer of data frames.
type StreamHandler func(ctx context.Context, conn *websocket.Conn) error

// Websocket upgrader with heartbeat settings
type Websocket struct {
	upgrader     websocket.Upgrader
	writeWait    time.Duration
	pongWait     time.Duration
	pingInterval time.Duration
}

// NewWebsocket ...
func NewWebsocket() *Websocket {
	pongWait := 30 * time.Second
	return &Websocket{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			HandshakeTimeout: 3 * time.Second,
		},
		writeWait:    10 * time.Second,
		pongWait:     pongWait,
		pingInterval: pongWait * 9 / 10,
	}
}

// WithHeartbeat wrap handler function with ping/pong heartbeat. The handler context
// is cancelled when the peer goes away or stops answering pings.
func (ws *Websocket) WithHeartbeat(handler StreamHandler) echo.HandlerFunc {
	return func(c echo.Context) error {
		conn, err := ws.upgrader.Upgrade(c.Response(), c.Request(), nil)
		if err != nil {
			// upgrader already replied
			return nil
		}
		defer conn.Close()

		ctx, cancel := context.WithCancel(c.Request().Context())
		defer cancel()

		go ws.readRoutine(conn, cancel)
		go ws.heartbeatRoutine(ctx, conn, cancel)

		err = handler(ctx, conn)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		if err != nil {
			msg = websocket.FormatCloseMessage(websocket.CloseInternalServerErr, err.Error())
		}
		conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(ws.writeWait))
		return nil
	}
}

// readRoutine drains client frames so control frames get processed
func (ws *Websocket) readRoutine(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(ws.pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(ws.pongWait))
	})
	for {
		if _, _, err := conn.NextReader(); err != nil {
			return
		}
	}
}

func (ws *Websocket) heartbeatRoutine(ctx context.Context, conn *websocket.Conn, cancel context.CancelFunc) {
	ticker := time.NewTicker(ws.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(ws.writeWait)); err != nil {
				cancel()
				return
			}
		}
	}
}
