package engine

import (
	"time"

	"github.com/j-jorge/bim-sub001/internal/network"
	"github.com/j-jorge/bim-sub001/internal/scheduler"
	"github.com/j-jorge/bim-sub001/internal/version"
	"github.com/j-jorge/bim-sub001/pkg/api"
	"github.com/j-jorge/bim-sub001/pkg/logger"
	"github.com/sirupsen/logrus"
)

// SessionService проверяет версию протокола клиентов и отвечает на hello.
// Идентификатор сессии назначает транспорт при подключении.
type SessionService struct {
	cfg       Config
	s         *scheduler.Scheduler
	transport network.Transport

	sessions map[uint64]time.Time // сессия -> время аутентификации

	sessionEvents *eventCounter
	gameEvents    *eventCounter
	gamesNow      func() int
	karma         *KarmaService

	log *logrus.Entry
}

// NewSessionService создает сервис. karma может быть nil: все клиенты
// допускаются.
func NewSessionService(cfg Config, s *scheduler.Scheduler, t network.Transport, gamesNow func() int, karma *KarmaService) *SessionService {
	return &SessionService{
		cfg:           cfg,
		s:             s,
		transport:     t,
		karma:         karma,
		sessions:      make(map[uint64]time.Time),
		sessionEvents: newEventCounter(24 * time.Hour),
		gameEvents:    newEventCounter(24 * time.Hour),
		gamesNow:      gamesNow,
		log:           logger.Component("session_service"),
	}
}

// Authenticate принимает или отклоняет клиента. Повторная аутентификация
// той же сессии повторяет ответ.
func (ss *SessionService) Authenticate(session uint64, m api.Authentication) {
	log := ss.log.WithFields(logrus.Fields{
		"session":  session,
		"protocol": m.ProtocolVersion,
	})

	if m.ProtocolVersion != version.ProtocolVersion {
		log.Info("bad protocol version")
		ss.reply(session, api.AuthenticationKO{RequestToken: m.RequestToken, Reason: api.AuthErrorBadProtocol})
		return
	}

	if !ss.Allowed(session) {
		log.Info("client blacklisted")
		ss.reply(session, api.AuthenticationKO{RequestToken: m.RequestToken, Reason: api.AuthErrorBlacklisted})
		return
	}

	if _, ok := ss.sessions[session]; !ok {
		if ss.cfg.MaxSessions > 0 && len(ss.sessions) >= ss.cfg.MaxSessions {
			log.Warn("server full")
			ss.reply(session, api.AuthenticationKO{RequestToken: m.RequestToken, Reason: api.AuthErrorServerFull})
			return
		}
		now := ss.s.Now()
		ss.sessions[session] = now
		ss.sessionEvents.Add(now)
		log.Info("session authenticated")
	}
	ss.reply(session, api.AuthenticationOK{RequestToken: m.RequestToken, SessionID: session})
}

// IsAuthenticated проверяет, прошла ли сессия аутентификацию.
func (ss *SessionService) IsAuthenticated(session uint64) bool {
	_, ok := ss.sessions[session]
	return ok
}

// Allowed проверяет карму клиента сессии.
func (ss *SessionService) Allowed(session uint64) bool {
	return ss.karma == nil || ss.karma.Allowed(session)
}

// SessionCount возвращает число аутентифицированных сессий.
func (ss *SessionService) SessionCount() int { return len(ss.sessions) }

// Hello отвечает статистикой сервера.
func (ss *SessionService) Hello(session uint64, m api.Hello) {
	ss.reply(session, api.HelloOK{
		RequestToken: m.RequestToken,
		Version:      version.ProtocolVersion,
		Name:         ss.cfg.ServerName,
		Stats:        ss.Stats(),
	})
}

// GameLaunched учитывает новую партию в статистике.
func (ss *SessionService) GameLaunched() {
	ss.gameEvents.Add(ss.s.Now())
}

// Stats собирает текущую статистику.
func (ss *SessionService) Stats() api.ServerStats {
	now := ss.s.Now()
	st := api.ServerStats{
		SessionsNow:      uint32(len(ss.sessions)),
		GamesLastHour:    ss.gameEvents.Since(now, time.Hour),
		SessionsLastHour: ss.sessionEvents.Since(now, time.Hour),
		GamesLastDay:     ss.gameEvents.Since(now, 24*time.Hour),
		SessionsLastDay:  ss.sessionEvents.Since(now, 24*time.Hour),
	}
	if ss.gamesNow != nil {
		st.GamesNow = uint32(ss.gamesNow())
	}
	return st
}

// Remove забывает сессию.
func (ss *SessionService) Remove(session uint64) {
	if _, ok := ss.sessions[session]; ok {
		delete(ss.sessions, session)
		ss.log.WithField("session", session).Debug("session removed")
	}
}

// CleanUp забывает устаревшие события статистики.
func (ss *SessionService) CleanUp() {
	now := ss.s.Now()
	ss.sessionEvents.Prune(now)
	ss.gameEvents.Prune(now)
}

func (ss *SessionService) reply(session uint64, m api.Message) {
	ss.transport.Send(session, 0, m)
}
