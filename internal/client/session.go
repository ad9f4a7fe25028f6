package client

import (
	"errors"
	"fmt"
	"time"

	"github.com/j-jorge/bim-sub001/internal/contest"
	"github.com/j-jorge/bim-sub001/internal/domain"
	"github.com/j-jorge/bim-sub001/internal/network"
	"github.com/j-jorge/bim-sub001/internal/scheduler"
	"github.com/j-jorge/bim-sub001/internal/version"
	"github.com/j-jorge/bim-sub001/pkg/api"
	"github.com/j-jorge/bim-sub001/pkg/logger"
	"github.com/j-jorge/bim-sub001/pkg/utils"
	"github.com/sirupsen/logrus"
)

const (
	// RequestInterval - период повторения запросов до ответа сервера.
	RequestInterval = 500 * time.Millisecond
	// StragglerDelay - сколько обмен живет после конца партии, чтобы сервер
	// получил последние подтверждения.
	StragglerDelay = time.Second
)

// ErrAuthenticationRejected возвращается, если сервер отклонил клиента.
var ErrAuthenticationRejected = errors.New("session: authentication rejected")

// SessionState - этап жизни клиентской сессии.
type SessionState uint8

const (
	SessionIdle SessionState = iota
	SessionAuthenticating
	SessionHello
	SessionSearching
	SessionOnHold
	SessionPlaying
	SessionFinished
	SessionFailed
)

var sessionStateNames = map[SessionState]string{
	SessionIdle:           "idle",
	SessionAuthenticating: "authenticating",
	SessionHello:          "hello",
	SessionSearching:      "searching",
	SessionOnHold:         "on_hold",
	SessionPlaying:        "playing",
	SessionFinished:       "finished",
	SessionFailed:         "failed",
}

func (s SessionState) String() string {
	if n, ok := sessionStateNames[s]; ok {
		return n
	}
	return "unknown"
}

// Session проводит клиента от подключения до конца партии:
// authentication, hello, new_game_request, launch_game, затем обмен
// действиями и исполнитель партии. Работает в горутине планировщика.
type Session struct {
	s         *scheduler.Scheduler
	transport network.Transport
	features  domain.FeatureFlags

	state      SessionState
	sessionID  uint64
	token      uint32
	encounter  uint32
	stats      api.ServerStats
	serverName string

	// Таймер повторения текущего запроса.
	requests *scheduler.Scope

	launch   api.LaunchGame
	game     *scheduler.Scope
	linger   *scheduler.Scope
	exchange *Exchange
	runner   *Runner
	lastRun  time.Time
	result   domain.ContestResult

	input     domain.PlayerAction
	bombArmed bool

	// Хуки
	Launched func(api.LaunchGame, *SnapshotBuffer)
	Finished func(domain.ContestResult)
	Failed   func(error)

	log *logrus.Entry
}

// NewSession создает сессию. Сообщения сервера передаются в Deliver.
func NewSession(s *scheduler.Scheduler, t network.Transport, features domain.FeatureFlags) *Session {
	return &Session{
		s:         s,
		transport: t,
		features:  features,
		token:     utils.NewRequestToken(),
		result:    domain.StillRunning(),
		requests:  s.NewScope(),
		log:       logger.Component("session"),
	}
}

func (c *Session) State() SessionState { return c.state }
func (c *Session) SessionID() uint64 { return c.sessionID }
func (c *Session) Stats() api.ServerStats { return c.stats }
func (c *Session) Result() domain.ContestResult { return c.result }
func (c *Session) Runner() *Runner { return c.runner }
func (c *Session) Exchange() *Exchange { return c.exchange }

// Reward возвращает награду, объявленную сервером в конце партии.
func (c *Session) Reward() uint16 {
	if c.exchange == nil {
		return 0
	}
	return c.exchange.Reward()
}

// Start начинает аутентификацию.
func (c *Session) Start() {
	if c.state != SessionIdle {
		return
	}
	c.setState(SessionAuthenticating)
	c.repeat(func() api.Message {
		return api.Authentication{ProtocolVersion: version.ProtocolVersion, RequestToken: c.token}
	})
}

// SetMovement задает перемещение, которое повторяется каждый тик до
// следующего вызова.
func (c *Session) SetMovement(m domain.Movement) { c.input.Movement = m }

// DropBomb сбрасывает бомбу на ближайшем тике.
func (c *Session) DropBomb() { c.bombArmed = true }

// Deliver обрабатывает датаграмму сервера.
func (c *Session) Deliver(e api.Envelope) {
	m, err := e.Message()
	if err != nil {
		c.log.WithError(err).Debug("bad message dropped")
		return
	}

	if e.Channel != 0 {
		if c.exchange != nil && e.Channel == c.launch.GameChannel {
			c.exchange.Handle(m)
		}
		return
	}

	switch msg := m.(type) {
	case api.AuthenticationOK:
		c.onAuthenticated(msg)
	case api.AuthenticationKO:
		if msg.RequestToken == c.token && c.state == SessionAuthenticating {
			c.fail(fmt.Errorf("%w: %s", ErrAuthenticationRejected, msg.Reason))
		}
	case api.HelloOK:
		c.onHello(msg)
	case api.GameOnHold:
		c.onHold(msg)
	case api.LaunchGame:
		c.onLaunch(msg)
	default:
		c.log.WithField("type", m.Type().String()).Debug("unexpected message")
	}
}

// Close останавливает все таймеры сессии.
func (c *Session) Close() {
	c.requests.Close()
	if c.game != nil {
		c.game.Close()
	}
	if c.linger != nil {
		c.linger.Close()
	}
	if c.exchange != nil {
		c.exchange.Close()
	}
}

func (c *Session) onAuthenticated(m api.AuthenticationOK) {
	if m.RequestToken != c.token || c.state != SessionAuthenticating {
		return
	}
	c.sessionID = m.SessionID
	c.log = c.log.WithField("session", m.SessionID)
	c.setState(SessionHello)
	c.repeat(func() api.Message { return api.Hello{RequestToken: c.token} })
}

func (c *Session) onHello(m api.HelloOK) {
	if m.RequestToken != c.token || c.state != SessionHello {
		return
	}
	c.stats = m.Stats
	c.serverName = m.Name
	c.log.WithFields(logrus.Fields{
		"server":   m.Name,
		"version":  m.Version,
		"games":    m.Stats.GamesNow,
		"sessions": m.Stats.SessionsNow,
	}).Info("connected")

	c.setState(SessionSearching)
	c.repeat(func() api.Message {
		return api.NewGameRequest{RequestToken: c.token, Features: c.features}
	})
}

func (c *Session) onHold(m api.GameOnHold) {
	if c.state != SessionSearching && c.state != SessionOnHold {
		return
	}
	if c.state == SessionOnHold && m.EncounterID == c.encounter {
		return
	}
	c.encounter = m.EncounterID
	c.log.WithFields(logrus.Fields{
		"encounter": m.EncounterID,
		"players":   m.PlayerCount,
	}).Debug("game on hold")

	c.setState(SessionOnHold)
	c.repeat(func() api.Message { return api.AcceptGame{EncounterID: c.encounter} })
}

func (c *Session) onLaunch(m api.LaunchGame) {
	if m.RequestToken != c.token {
		return
	}
	if c.state != SessionSearching && c.state != SessionOnHold {
		return
	}
	c.requests.Close()

	c.launch = m
	c.log = c.log.WithFields(logrus.Fields{
		"channel": m.GameChannel,
		"player":  m.PlayerIndex,
	})

	c.exchange = NewExchange(c.s, c.transport, c.sessionID, m.GameChannel, m.Fingerprint.PlayerCount)
	runner, err := NewRunner(contest.New(m.Fingerprint), m.PlayerIndex, c.exchange, c.nextAction)
	if err != nil {
		c.fail(err)
		return
	}
	c.runner = runner
	c.game = c.s.NewScope()

	c.exchange.Started = c.onStarted
	c.exchange.Updated = func(u ServerUpdate) {
		if err := c.runner.QueueUpdates(u); err != nil {
			c.fail(fmt.Errorf("server update: %w", err))
		}
	}
	c.exchange.GameOver = c.finish

	c.setState(SessionPlaying)
	c.log.WithField("seed", m.Fingerprint.Seed).Info("game launched")
	if c.Launched != nil {
		c.Launched(m, runner.Snapshots())
	}
	if err := c.exchange.Start(); err != nil {
		c.fail(err)
	}
}

func (c *Session) onStarted() {
	c.lastRun = c.s.Now()
	c.game.Every(domain.TickInterval, c.step)
}

func (c *Session) step() {
	if c.state != SessionPlaying {
		return
	}
	now := c.s.Now()
	elapsed := now.Sub(c.lastRun)
	c.lastRun = now

	if _, err := c.runner.Run(elapsed); err != nil {
		c.fail(err)
		return
	}
	if r := c.runner.ConfirmedResult(); !r.StillRunning() {
		c.finish(r)
	}
}

// nextAction отдает ввод игрока исполнителю: перемещение сохраняется,
// бомба сбрасывается один раз.
func (c *Session) nextAction() domain.PlayerAction {
	a := c.input
	a.DropBomb = c.bombArmed
	c.bombArmed = false
	return a
}

func (c *Session) finish(r domain.ContestResult) {
	if c.state != SessionPlaying {
		return
	}
	c.result = r
	c.setState(SessionFinished)
	c.log.WithField("result", r.String()).Info("game finished")

	c.game.Close()
	// Обмен живет еще StragglerDelay, пока Close не отменит ожидание.
	c.linger = c.s.NewScope()
	c.linger.After(StragglerDelay, c.exchange.Close)
	if c.Finished != nil {
		c.Finished(r)
	}
}

func (c *Session) fail(err error) {
	if c.state == SessionFailed {
		return
	}
	c.log.WithError(err).Error("session failed")
	c.setState(SessionFailed)
	c.Close()
	if c.Failed != nil {
		c.Failed(err)
	}
}

// repeat отправляет запрос сразу и повторяет его, пока состояние не сменится.
func (c *Session) repeat(build func() api.Message) {
	c.requests.Close()
	c.requests = c.s.NewScope()

	send := func() { c.transport.Send(c.sessionID, 0, build()) }
	send()
	c.requests.Every(RequestInterval, send)
}

func (c *Session) setState(s SessionState) {
	c.log.WithFields(logrus.Fields{"from": c.state, "to": s}).Debug("session state")
	c.state = s
}
