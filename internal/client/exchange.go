package client

import (
	"fmt"
	"time"

	"github.com/j-jorge/bim-sub001/internal/domain"
	"github.com/j-jorge/bim-sub001/internal/network"
	"github.com/j-jorge/bim-sub001/internal/scheduler"
	"github.com/j-jorge/bim-sub001/pkg/api"
	"github.com/j-jorge/bim-sub001/pkg/logger"
	"github.com/sirupsen/logrus"
)

// ResendInterval - период повторной отправки неподтвержденного сообщения.
const ResendInterval = 100 * time.Millisecond

// ExchangeState - этап обмена с сервером.
type ExchangeState uint8

const (
	ExchangeIdle ExchangeState = iota
	ExchangeStarting
	ExchangePlaying
	ExchangeClosed
)

var exchangeStateNames = map[ExchangeState]string{
	ExchangeIdle:     "idle",
	ExchangeStarting: "starting",
	ExchangePlaying:  "playing",
	ExchangeClosed:   "closed",
}

func (s ExchangeState) String() string {
	if n, ok := exchangeStateNames[s]; ok {
		return n
	}
	return "unknown"
}

// Допустимые переходы. Закрыть можно из любого состояния.
var exchangeTransitions = map[ExchangeState][]ExchangeState{
	ExchangeIdle:     {ExchangeStarting, ExchangeClosed},
	ExchangeStarting: {ExchangePlaying, ExchangeClosed},
	ExchangePlaying:  {ExchangeClosed},
}

// ServerUpdate - окончательные тики, полученные от сервера.
type ServerUpdate struct {
	FromTick uint32
	Actions  [][]domain.PlayerAction
	Kicked   []uint8
}

// IsKicked сообщает, исключен ли игрок на i-м тике обновления.
func (u ServerUpdate) IsKicked(i int, player uint8) bool {
	return i < len(u.Kicked) && u.Kicked[i]&(1<<player) != 0
}

// Exchange ведет обмен действиями одной партии: отправляет локальные
// действия, пока сервер их не подтвердит, и принимает окончательные тики.
// Все методы вызываются в горутине планировщика.
type Exchange struct {
	transport   network.Transport
	session     uint64
	channel     uint32
	playerCount uint8

	scope *scheduler.Scope
	state ExchangeState

	// confirmed - число тиков, полученных от сервера. pending[0] относится
	// к тику confirmed.
	confirmed uint32
	pending   []domain.PlayerAction
	verdict   *domain.ContestResult
	coins     uint16

	// Хуки
	Started       func()
	Updated       func(ServerUpdate)
	PlayerDropped func(api.PlayerDropped)
	GameOver      func(domain.ContestResult)

	log *logrus.Entry
}

// NewExchange создает обмен для канала партии. Таймеры живут в области,
// которую закрывает Close.
func NewExchange(s *scheduler.Scheduler, t network.Transport, session uint64, channel uint32, playerCount uint8) *Exchange {
	return &Exchange{
		transport:   t,
		session:     session,
		channel:     channel,
		playerCount: playerCount,
		scope:       s.NewScope(),
		log: logger.Component("exchange").WithFields(logrus.Fields{
			"session": session,
			"channel": channel,
		}),
	}
}

func (x *Exchange) State() ExchangeState { return x.state }

// Confirmed возвращает число тиков, подтвержденных сервером.
func (x *Exchange) Confirmed() uint32 { return x.confirmed }

// PendingCount возвращает число локальных действий, ожидающих подтверждения.
func (x *Exchange) PendingCount() int { return len(x.pending) }

// Verdict возвращает результат, объявленный сервером, если он уже пришел.
func (x *Exchange) Verdict() (domain.ContestResult, bool) {
	if x.verdict == nil {
		return domain.StillRunning(), false
	}
	return *x.verdict, true
}

// Reward возвращает награду локального игрока из вердикта сервера.
func (x *Exchange) Reward() uint16 { return x.coins }

func (x *Exchange) transition(to ExchangeState) error {
	for _, allowed := range exchangeTransitions[x.state] {
		if allowed == to {
			x.log.WithFields(logrus.Fields{"from": x.state, "to": to}).Debug("state changed")
			x.state = to
			return nil
		}
	}
	return fmt.Errorf("exchange: invalid transition %s -> %s", x.state, to)
}

// Start сообщает серверу о готовности и повторяет ready до прихода start.
func (x *Exchange) Start() error {
	if err := x.transition(ExchangeStarting); err != nil {
		return err
	}
	x.send(api.Ready{})
	x.scope.Every(ResendInterval, x.resend)
	return nil
}

// Push добавляет действие локального игрока для следующего тика.
func (x *Exchange) Push(a domain.PlayerAction) {
	if x.state != ExchangePlaying {
		return
	}
	x.pending = append(x.pending, a)
	x.sendUpdate()
}

// Handle обрабатывает сообщение сервера, адресованное каналу партии.
func (x *Exchange) Handle(m api.Message) {
	switch msg := m.(type) {
	case api.Start:
		x.onStart()
	case api.GameUpdateFromServer:
		// Обновление до start означает, что start потерялся по дороге.
		if x.state == ExchangeStarting {
			x.onStart()
		}
		x.OnServerUpdate(msg)
	case api.PlayerDropped:
		x.log.WithFields(logrus.Fields{
			"player": msg.PlayerIndex,
			"tick":   msg.AtTick,
		}).Info("player dropped")
		if x.PlayerDropped != nil {
			x.PlayerDropped(msg)
		}
	case api.GameOver:
		if x.verdict != nil {
			return
		}
		r := msg.Result()
		x.verdict = &r
		x.coins = msg.CoinsReward
		x.log.WithFields(logrus.Fields{
			"result": r.String(),
			"coins":  msg.CoinsReward,
		}).Info("game over")
		if x.GameOver != nil {
			x.GameOver(r)
		}
	default:
		x.log.WithField("type", m.Type().String()).Debug("unexpected message")
	}
}

func (x *Exchange) onStart() {
	if x.state != ExchangeStarting {
		return
	}
	if err := x.transition(ExchangePlaying); err != nil {
		x.log.WithError(err).Warn("start ignored")
		return
	}
	if x.Started != nil {
		x.Started()
	}
}

// OnServerUpdate принимает окончательные тики. Сообщения, которые не
// продолжают уже полученную историю, отбрасываются.
func (x *Exchange) OnServerUpdate(m api.GameUpdateFromServer) {
	if x.state != ExchangePlaying {
		return
	}
	if m.FromTick != x.confirmed || m.PlayerCount != x.playerCount {
		x.log.WithFields(logrus.Fields{
			"from":      m.FromTick,
			"confirmed": x.confirmed,
		}).Debug("out of sequence update ignored")
		return
	}
	n := len(m.Actions)
	if n == 0 {
		return
	}

	drop := min(n, len(x.pending))
	x.pending = x.pending[drop:]
	x.confirmed += uint32(n)

	if x.Updated != nil {
		x.Updated(ServerUpdate{FromTick: m.FromTick, Actions: m.Actions, Kicked: m.Kicked})
	}
}

// Close прекращает обмен и отменяет все таймеры.
func (x *Exchange) Close() {
	if x.state == ExchangeClosed {
		return
	}
	_ = x.transition(ExchangeClosed)
	x.scope.Close()
}

func (x *Exchange) resend() {
	switch x.state {
	case ExchangeStarting:
		x.send(api.Ready{})
	case ExchangePlaying:
		// Пустое сообщение тоже полезно: сервер отвечает на него
		// накопившимися тиками.
		x.sendUpdate()
	}
}

func (x *Exchange) sendUpdate() {
	n := min(len(x.pending), api.MaxActionsPerMessage)
	x.send(api.GameUpdateFromClient{
		FromTick: x.confirmed,
		Actions:  x.pending[:n],
	})
}

func (x *Exchange) send(m api.Message) {
	x.transport.Send(x.session, x.channel, m)
}
