package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/j-jorge/bim-sub001/pkg/api"
	"github.com/j-jorge/bim-sub001/pkg/logger"
	"github.com/sirupsen/logrus"
)

// Настройки WebSocket
const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Client - посредник между WebSocket и сервисом. Каждый бинарный кадр -
// одна датаграмма протокола.
type Client struct {
	srv       *Server
	Conn      *websocket.Conn
	SessionID uint64

	frames <-chan []byte
	log    *logrus.Entry
}

// NewClient регистрирует соединение в хабе под новой сессией.
func NewClient(srv *Server, conn *websocket.Conn, sessionID uint64) *Client {
	return &Client{
		srv:       srv,
		Conn:      conn,
		SessionID: sessionID,
		frames:    srv.Hub.Register(sessionID),
		log:       logger.Component("ws").WithField("session", sessionID),
	}
}

// readPump читает датаграммы клиента и передает их в планировщик.
func (c *Client) readPump() {
	defer func() {
		c.srv.Hub.Unregister(c.SessionID)
		if err := c.Conn.Close(); err != nil {
			c.log.WithError(err).Debug("failed to close websocket connection")
		}
		session := c.SessionID
		c.srv.Scheduler.Post(func() { c.srv.Service.Disconnected(session) })
		c.log.Info("client disconnected")
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	if err := c.Conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.log.WithError(err).Warn("failed to set read deadline")
	}
	c.Conn.SetPongHandler(func(string) error {
		if err := c.Conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			c.log.WithError(err).Warn("failed to set pong read deadline")
		}
		return nil
	})

	for {
		kind, frame, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.WithError(err).Warn("websocket error")
			}
			return
		}
		if kind != websocket.BinaryMessage {
			continue
		}

		e, err := api.DecodeEnvelope(frame)
		if err != nil {
			c.log.WithError(err).Debug("bad frame")
			continue
		}
		// Сессию определяет соединение, а не клиент.
		e.SessionID = c.SessionID
		c.srv.Scheduler.Post(func() { c.srv.Service.Process(e) })
	}
}

// writePump отправляет кадры хаба клиенту + Ping
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		if err := c.Conn.Close(); err != nil {
			c.log.WithError(err).Debug("failed to close websocket connection in writePump")
		}
	}()

	for {
		select {
		case frame, ok := <-c.frames:
			if err := c.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.log.WithError(err).Warn("failed to set write deadline")
			}
			if !ok {
				if err := c.Conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
					c.log.WithError(err).Debug("write close message failed")
				}
				return
			}
			if err := c.Conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
				c.log.WithError(err).Debug("write frame failed")
				return
			}

		case <-ticker.C:
			if err := c.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.log.WithError(err).Warn("failed to set ping write deadline")
			}
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.log.WithError(err).Debug("ping failed")
				return
			}
		}
	}
}
