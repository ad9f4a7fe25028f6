package network

import (
	"sync"
	"sync/atomic"

	"github.com/j-jorge/bim-sub001/pkg/api"
	"github.com/j-jorge/bim-sub001/pkg/logger"
	"github.com/sirupsen/logrus"
)

// Transport - исходящий путь протокола: ненадежная доставка датаграмм,
// адресованных сессии и каналу. Send никогда не блокирует.
type Transport interface {
	Send(sessionID uint64, channel uint32, m api.Message)
}

// Handler - входящий путь сервера. Вызывается в горутине планировщика.
type Handler interface {
	Process(e api.Envelope)
	Disconnected(sessionID uint64)
}

// TransportFunc позволяет использовать функцию как Transport.
type TransportFunc func(sessionID uint64, channel uint32, m api.Message)

func (f TransportFunc) Send(sessionID uint64, channel uint32, m api.Message) {
	f(sessionID, channel, m)
}

// Hub занимается только рассылкой кадров подключенным сессиям
type Hub struct {
	mu sync.RWMutex
	// Мапа: SessionID -> Личный канал кадров
	subscribers map[uint64]chan []byte

	dropped atomic.Uint64
	log     *logrus.Entry
}

func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[uint64]chan []byte),
		log:         logger.Component("hub"),
	}
}

// Register создает личный канал для сессии
func (h *Hub) Register(sessionID uint64) <-chan []byte {
	h.mu.Lock()
	defer h.mu.Unlock()

	// Если канал был, закрываем
	if old, ok := h.subscribers[sessionID]; ok {
		close(old)
	}

	ch := make(chan []byte, 256)
	h.subscribers[sessionID] = ch
	return ch
}

// Unregister удаляет подписчика
func (h *Hub) Unregister(sessionID uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if ch, ok := h.subscribers[sessionID]; ok {
		close(ch)
		delete(h.subscribers, sessionID)
	}
}

// Send отправляет сообщение конкретной сессии (Unicast).
// Переполненный канал означает потерю датаграммы, как в UDP.
func (h *Hub) Send(sessionID uint64, channel uint32, m api.Message) {
	frame := api.EncodeEnvelope(sessionID, channel, m)

	h.mu.RLock()
	defer h.mu.RUnlock()

	ch, ok := h.subscribers[sessionID]
	if !ok {
		return
	}
	select {
	case ch <- frame:
	default:
		h.dropped.Add(1)
		h.log.WithFields(logrus.Fields{
			"session": sessionID,
			"type":    m.Type().String(),
		}).Debug("channel full, frame dropped")
	}
}

// HasSubscriber проверяет, подключена ли сессия
func (h *Hub) HasSubscriber(sessionID uint64) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.subscribers[sessionID]
	return ok
}

// SubscriberCount возвращает количество активных подписчиков.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Dropped возвращает число кадров, потерянных из-за переполнения.
func (h *Hub) Dropped() uint64 { return h.dropped.Load() }
