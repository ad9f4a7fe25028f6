package network

import (
	"math/rand/v2"
	"time"

	"github.com/j-jorge/bim-sub001/internal/scheduler"
	"github.com/j-jorge/bim-sub001/pkg/api"
	"github.com/j-jorge/bim-sub001/pkg/logger"
	"github.com/sirupsen/logrus"
)

// Loopback - транспорт в памяти поверх планировщика. Кадры проходят через
// кодек, задерживаются на Latency плюс случайный Jitter и могут теряться или
// дублироваться. Все случайные решения берутся из генератора с заданным
// зерном, так что прогон воспроизводим.
type Loopback struct {
	s      *scheduler.Scheduler
	server Handler
	conns  map[uint64]*LoopbackConn
	next   uint64
	rng    *rand.Rand

	Latency       time.Duration
	Jitter        time.Duration
	DropRate      float64
	DuplicateRate float64

	log *logrus.Entry
}

// NewLoopback создает сеть. Сервер подключается через SetServer.
func NewLoopback(s *scheduler.Scheduler, seed uint64) *Loopback {
	return &Loopback{
		s:       s,
		conns:   make(map[uint64]*LoopbackConn),
		next:    1,
		rng:     rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		Latency: 10 * time.Millisecond,
		log:     logger.Component("loopback"),
	}
}

func (l *Loopback) SetServer(h Handler) { l.server = h }

// LoopbackConn - клиентская сторона соединения.
type LoopbackConn struct {
	l       *Loopback
	session uint64
	handler func(api.Envelope)
	closed  bool

	// Muted отбрасывает все исходящие кадры клиента: молчащий, но не
	// отключенный игрок.
	Muted bool
}

// Connect подключает клиента. Сессия назначается соединению, как это делает
// websocket-сервер.
func (l *Loopback) Connect(handler func(api.Envelope)) *LoopbackConn {
	c := &LoopbackConn{l: l, session: l.next, handler: handler}
	l.conns[c.session] = c
	l.next++
	return c
}

// Session возвращает идентификатор сессии соединения.
func (c *LoopbackConn) Session() uint64 { return c.session }

// Send отправляет кадр серверу. Идентификатор сессии берется из соединения.
func (c *LoopbackConn) Send(_ uint64, channel uint32, m api.Message) {
	if c.closed || c.Muted || c.l.server == nil {
		return
	}
	frame := api.EncodeEnvelope(c.session, channel, m)
	c.l.deliver(frame, func(e api.Envelope) {
		if !c.closed {
			c.l.server.Process(e)
		}
	})
}

// Close разрывает соединение; сервер узнает об этом после задержки.
func (c *LoopbackConn) Close() {
	if c.closed {
		return
	}
	c.closed = true
	delete(c.l.conns, c.session)
	if c.l.server != nil {
		c.l.s.After(c.l.Latency, func() { c.l.server.Disconnected(c.session) })
	}
}

// Send отправляет кадр клиенту сессии.
func (l *Loopback) Send(sessionID uint64, channel uint32, m api.Message) {
	c, ok := l.conns[sessionID]
	if !ok {
		return
	}
	frame := api.EncodeEnvelope(sessionID, channel, m)
	l.deliver(frame, func(e api.Envelope) {
		if !c.closed {
			c.handler(e)
		}
	})
}

func (l *Loopback) deliver(frame []byte, to func(api.Envelope)) {
	copies := 1
	if l.DropRate > 0 && l.rng.Float64() < l.DropRate {
		copies = 0
	} else if l.DuplicateRate > 0 && l.rng.Float64() < l.DuplicateRate {
		copies = 2
	}

	for i := 0; i < copies; i++ {
		delay := l.Latency
		if l.Jitter > 0 {
			delay += time.Duration(l.rng.Int64N(int64(l.Jitter)))
		}
		l.s.After(delay, func() {
			e, err := api.DecodeEnvelope(frame)
			if err != nil {
				l.log.WithError(err).Warn("bad frame")
				return
			}
			to(e)
		})
	}
}
