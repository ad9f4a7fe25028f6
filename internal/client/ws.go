package client

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/j-jorge/bim-sub001/internal/scheduler"
	"github.com/j-jorge/bim-sub001/pkg/api"
	"github.com/j-jorge/bim-sub001/pkg/logger"
	"github.com/sirupsen/logrus"
)

const (
	writeWait   = 10 * time.Second
	sendBacklog = 256
)

// WSConn - клиентский транспорт поверх WebSocket. Входящие кадры
// передаются обработчику в горутине планировщика.
type WSConn struct {
	conn    *websocket.Conn
	s       *scheduler.Scheduler
	handler func(api.Envelope)

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once

	log *logrus.Entry
}

// Dial подключается к серверу, например "ws://localhost:8080/ws".
func Dial(ctx context.Context, url string, s *scheduler.Scheduler, handler func(api.Envelope)) (*WSConn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}

	c := &WSConn{
		conn:    conn,
		s:       s,
		handler: handler,
		send:    make(chan []byte, sendBacklog),
		done:    make(chan struct{}),
		log:     logger.Component("ws_client").WithField("url", url),
	}
	go c.readLoop()
	go c.writeLoop()
	return c, nil
}

// Send ставит датаграмму в очередь. Переполненная очередь теряет кадр.
func (c *WSConn) Send(sessionID uint64, channel uint32, m api.Message) {
	frame := api.EncodeEnvelope(sessionID, channel, m)
	select {
	case <-c.done:
	case c.send <- frame:
	default:
		c.log.WithField("type", m.Type().String()).Debug("send backlog full, frame dropped")
	}
}

// Done закрывается при разрыве соединения.
func (c *WSConn) Done() <-chan struct{} { return c.done }

// Close закрывает соединение.
func (c *WSConn) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		_ = c.conn.Close()
	})
}

func (c *WSConn) readLoop() {
	defer c.Close()
	for {
		kind, frame, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
			default:
				c.log.WithError(err).Info("connection lost")
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
		c.s.Post(func() { c.handler(e) })
	}
}

func (c *WSConn) writeLoop() {
	for {
		select {
		case <-c.done:
			return
		case frame := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.log.WithError(err).Debug("failed to set write deadline")
			}
			if err := c.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
				c.log.WithError(err).Debug("write failed")
				c.Close()
				return
			}
		}
	}
}
