package engine

import (
	"slices"
	"time"

	"github.com/j-jorge/bim-sub001/internal/domain"
	"github.com/j-jorge/bim-sub001/internal/network"
	"github.com/j-jorge/bim-sub001/internal/scheduler"
	"github.com/j-jorge/bim-sub001/pkg/api"
	"github.com/j-jorge/bim-sub001/pkg/logger"
	"github.com/j-jorge/bim-sub001/pkg/utils"
	"github.com/sirupsen/logrus"
)

type member struct {
	session  uint64
	token    uint32
	lastSeen time.Time
}

// encounter - встреча игроков, ожидающих партию с одинаковыми режимами.
type encounter struct {
	id       uint32
	features domain.FeatureFlags
	members  []member
}

// MatchmakingService собирает игроков в порядке прихода и запускает партию,
// как только встреча заполнена.
type MatchmakingService struct {
	cfg       Config
	s         *scheduler.Scheduler
	transport network.Transport
	games     *GameService
	sessions  *SessionService

	open      []*encounter
	bySession map[uint64]*encounter
	launched  map[uint64]api.LaunchGame
	nextID    uint32

	// Seed выдает зерно новой партии.
	Seed func() uint64

	log *logrus.Entry
}

func NewMatchmakingService(cfg Config, s *scheduler.Scheduler, t network.Transport, games *GameService, sessions *SessionService) *MatchmakingService {
	return &MatchmakingService{
		cfg:       cfg,
		s:         s,
		transport: t,
		games:     games,
		sessions:  sessions,
		bySession: make(map[uint64]*encounter),
		launched:  make(map[uint64]api.LaunchGame),
		nextID:    1,
		Seed:      utils.NewSeed,
		log:       logger.Component("matchmaking"),
	}
}

// WaitingCount возвращает число игроков во встречах.
func (ms *MatchmakingService) WaitingCount() int { return len(ms.bySession) }

// NewGameRequest ставит сессию во встречу или повторяет ответ на уже
// обработанный запрос.
func (ms *MatchmakingService) NewGameRequest(session uint64, m api.NewGameRequest) {
	// 1. Запуск уже состоялся: launch_game мог потеряться.
	if lm, ok := ms.launched[session]; ok {
		if lm.RequestToken == m.RequestToken {
			ms.reply(session, lm)
			return
		}
		if ms.games.InGame(session) {
			ms.log.WithField("session", session).Debug("new game request while playing")
			return
		}
		delete(ms.launched, session)
	}

	// 2. Клиент с отрицательной кармой не играет
	if !ms.sessions.Allowed(session) {
		ms.log.WithField("session", session).Info("new game request refused by karma")
		ms.Remove(session)
		return
	}

	// 3. Сессия уже ждет
	now := ms.s.Now()
	if e, ok := ms.bySession[session]; ok {
		if i := e.indexOf(session); i >= 0 {
			e.members[i].token = m.RequestToken
			e.members[i].lastSeen = now
		}
		ms.reply(session, api.GameOnHold{EncounterID: e.id, PlayerCount: uint8(len(e.members))})
		return
	}

	// 4. Первая подходящая встреча или новая
	var e *encounter
	for _, candidate := range ms.open {
		if candidate.features == m.Features {
			e = candidate
			break
		}
	}
	if e == nil {
		e = &encounter{id: ms.nextID, features: m.Features}
		ms.nextID++
		ms.open = append(ms.open, e)
	}
	e.members = append(e.members, member{session: session, token: m.RequestToken, lastSeen: now})
	ms.bySession[session] = e

	ms.log.WithFields(logrus.Fields{
		"session":   session,
		"encounter": e.id,
		"players":   len(e.members),
		"features":  m.Features.String(),
	}).Debug("joined encounter")

	if len(e.members) >= int(ms.cfg.PlayersPerGame) {
		ms.launch(e)
		return
	}
	ms.reply(session, api.GameOnHold{EncounterID: e.id, PlayerCount: uint8(len(e.members))})
}

// AcceptGame подтверждает, что игрок все еще ждет.
func (ms *MatchmakingService) AcceptGame(session uint64, m api.AcceptGame) {
	if lm, ok := ms.launched[session]; ok {
		ms.reply(session, lm)
		return
	}
	e, ok := ms.bySession[session]
	if !ok || e.id != m.EncounterID {
		return
	}
	if i := e.indexOf(session); i >= 0 {
		e.members[i].lastSeen = ms.s.Now()
	}
	ms.reply(session, api.GameOnHold{EncounterID: e.id, PlayerCount: uint8(len(e.members))})
}

func (ms *MatchmakingService) launch(e *encounter) {
	ms.removeEncounter(e)

	fp := ms.cfg.fingerprint(ms.Seed(), e.features)
	sessions := make([]uint64, len(e.members))
	for i, mb := range e.members {
		sessions[i] = mb.session
		delete(ms.bySession, mb.session)
	}

	channel := ms.games.NewGame(fp, sessions)
	ms.sessions.GameLaunched()

	for i, mb := range e.members {
		lm := api.LaunchGame{
			RequestToken: mb.token,
			Fingerprint:  fp,
			GameChannel:  channel,
			PlayerIndex:  uint8(i),
		}
		ms.launched[mb.session] = lm
		ms.reply(mb.session, lm)
	}
	ms.log.WithFields(logrus.Fields{
		"encounter": e.id,
		"channel":   channel,
	}).Info("game launched")
}

// Remove забывает отключившуюся сессию.
func (ms *MatchmakingService) Remove(session uint64) {
	delete(ms.launched, session)
	e, ok := ms.bySession[session]
	if !ok {
		return
	}
	delete(ms.bySession, session)
	if i := e.indexOf(session); i >= 0 {
		e.members = slices.Delete(e.members, i, i+1)
	}
	if len(e.members) == 0 {
		ms.removeEncounter(e)
	}
}

// GameEnded забывает ответы launch_game завершенной партии.
func (ms *MatchmakingService) GameEnded(_ uint32, sessions []uint64) {
	for _, s := range sessions {
		delete(ms.launched, s)
	}
}

// CleanUp убирает игроков, переставших подтверждать ожидание.
func (ms *MatchmakingService) CleanUp() {
	now := ms.s.Now()
	for _, e := range slices.Clone(ms.open) {
		for _, mb := range slices.Clone(e.members) {
			if now.Sub(mb.lastSeen) >= ms.cfg.EncounterTimeout {
				ms.log.WithFields(logrus.Fields{
					"session":   mb.session,
					"encounter": e.id,
				}).Debug("encounter member timed out")
				ms.Remove(mb.session)
			}
		}
	}
}

func (ms *MatchmakingService) removeEncounter(e *encounter) {
	if i := slices.Index(ms.open, e); i >= 0 {
		ms.open = slices.Delete(ms.open, i, i+1)
	}
}

func (e *encounter) indexOf(session uint64) int {
	return slices.IndexFunc(e.members, func(m member) bool { return m.session == session })
}

func (ms *MatchmakingService) reply(session uint64, m api.Message) {
	ms.transport.Send(session, 0, m)
}
