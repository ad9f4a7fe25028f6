package engine

import (
	"time"

	"github.com/google/uuid"
	"github.com/j-jorge/bim-sub001/internal/contest"
	"github.com/j-jorge/bim-sub001/internal/domain"
	"github.com/j-jorge/bim-sub001/internal/infrastructure/storage"
	"github.com/j-jorge/bim-sub001/internal/network"
	"github.com/j-jorge/bim-sub001/internal/scheduler"
	"github.com/j-jorge/bim-sub001/pkg/api"
	"github.com/j-jorge/bim-sub001/pkg/logger"
	"github.com/sirupsen/logrus"
)

// TimelineOpener открывает запись новой партии.
type TimelineOpener interface {
	Open(channel uint32, fp domain.Fingerprint) (*storage.TimelineWriter, error)
}

type seat struct {
	channel uint32
	index   uint8
}

// GameService ведет все запущенные партии: собирает действия игроков,
// объявляет тики окончательными, моделирует их на реплике и рассылает.
// Все методы вызываются в горутине планировщика.
type GameService struct {
	cfg       Config
	s         *scheduler.Scheduler
	transport network.Transport
	timelines TimelineOpener

	games       map[uint32]*game
	seats       map[uint64]seat
	nextChannel uint32

	// GameEnded вызывается после удаления партии.
	GameEnded func(channel uint32, sessions []uint64)
	// Karma учитывает исключения игроков и короткие партии. Может быть nil.
	Karma *KarmaService

	log *logrus.Entry
}

// NewGameService создает сервис. timelines может быть nil: партии не
// записываются.
func NewGameService(cfg Config, s *scheduler.Scheduler, t network.Transport, timelines TimelineOpener) *GameService {
	return &GameService{
		cfg:         cfg,
		s:           s,
		transport:   t,
		timelines:   timelines,
		games:       make(map[uint32]*game),
		seats:       make(map[uint64]seat),
		nextChannel: 1,
		log:         logger.Component("game_service"),
	}
}

// GameCount возвращает число партий в памяти.
func (gs *GameService) GameCount() int { return len(gs.games) }

// InGame проверяет, сидит ли сессия в какой-либо партии.
func (gs *GameService) InGame(session uint64) bool {
	_, ok := gs.seats[session]
	return ok
}

// Games возвращает сводку по всем партиям.
func (gs *GameService) Games() []GameInfo {
	out := make([]GameInfo, 0, len(gs.games))
	for _, g := range gs.games {
		out = append(out, g.info())
	}
	return out
}

// NewGame создает партию для сессий в порядке индексов игроков и
// возвращает ее канал.
func (gs *GameService) NewGame(fp domain.Fingerprint, sessions []uint64) uint32 {
	if int(fp.PlayerCount) != len(sessions) {
		panic("game service: player count does not match sessions")
	}

	channel := gs.allocateChannel()
	now := gs.s.Now()
	g := &game{
		channel: channel,
		traceID: uuid.NewString(),
		fp:      fp,
		replica: contest.New(fp),
		result:  domain.StillRunning(),
		scope:   gs.s.NewScope(),
	}
	g.log = gs.log.WithFields(logrus.Fields{
		"channel": channel,
		"trace":   g.traceID,
	})

	for i, session := range sessions {
		g.players = append(g.players, &playerSlot{session: session, lastActivity: now})
		gs.seats[session] = seat{channel: channel, index: uint8(i)}
	}

	if gs.timelines != nil {
		tw, err := gs.timelines.Open(channel, fp)
		if err != nil {
			g.log.WithError(err).Error("timeline not recorded")
		} else {
			g.timeline = tw
		}
	}

	gs.games[channel] = g
	g.scope.Every(domain.TickInterval, func() { gs.update(g) })

	gs.addEvent(g, "game created", "INFO", logrus.Fields{"fingerprint": fp.String()})
	return channel
}

func (gs *GameService) allocateChannel() uint32 {
	for {
		c := gs.nextChannel
		gs.nextChannel++
		if c == 0 {
			continue
		}
		if _, used := gs.games[c]; !used {
			return c
		}
	}
}

// Process обрабатывает сообщение игрока в канале партии.
func (gs *GameService) Process(session uint64, channel uint32, m api.Message) {
	g, ok := gs.games[channel]
	if !ok {
		gs.log.WithFields(logrus.Fields{"session": session, "channel": channel}).Debug("unknown game")
		return
	}
	index, ok := g.indexOf(session)
	if !ok || g.players[index].dropped {
		g.log.WithField("session", session).Debug("message from a stranger")
		return
	}
	g.players[index].lastActivity = gs.s.Now()

	switch msg := m.(type) {
	case api.Ready:
		gs.markAsReady(g, index)
	case api.GameUpdateFromClient:
		gs.onUpdate(g, index, msg)
	default:
		g.log.WithField("type", m.Type().String()).Debug("unexpected message")
	}
}

// Disconnected исключает игрока, потерявшего соединение.
func (gs *GameService) Disconnected(session uint64) {
	st, ok := gs.seats[session]
	if !ok {
		return
	}
	if g, ok := gs.games[st.channel]; ok {
		gs.dropPlayer(g, st.index, "disconnected")
	}
}

func (gs *GameService) markAsReady(g *game, index uint8) {
	g.players[index].ready = true

	if g.started {
		// start потерялся: повторяем только этому игроку.
		gs.send(g, index, api.Start{})
		return
	}
	gs.startIfReady(g)
}

// startIfReady запускает партию, когда все оставшиеся игроки готовы.
func (gs *GameService) startIfReady(g *game) {
	if g.started || !g.allReady() {
		return
	}

	g.started = true
	g.startedAt = gs.s.Now()
	gs.addEvent(g, "game started", "INFO", nil)
	for i, p := range g.players {
		if !p.dropped {
			gs.send(g, uint8(i), api.Start{})
		}
	}
}

func (gs *GameService) onUpdate(g *game, index uint8, m api.GameUpdateFromClient) {
	if !g.started {
		return
	}

	// 1. Проверка и постановка в очередь
	count, err := g.validateMessage(index, m)
	if err != nil {
		g.log.WithError(err).WithFields(logrus.Fields{
			"player": index,
			"from":   m.FromTick,
			"tick":   g.simulationTick,
		}).Debug("update dropped")
		return
	}
	g.queueActions(index, m, count)

	// 2. Окончательные тики
	for !g.over && g.complete() {
		gs.finalizeTick(g)
	}
	g.dropOldActions()

	// 3. Ответ отправителю
	gs.sendActions(g, index)
	if g.over {
		gs.send(g, index, api.GameOverFor(g.result, g.rewards[index]))
	}
}

// finalizeTick объявляет следующий тик окончательным, моделирует его на
// реплике и записывает.
func (gs *GameService) finalizeTick(g *game) {
	t := g.nextTick()
	g.history = append(g.history, t)
	g.simulationTick++

	g.replica.SetActions(t.actions)
	for i := range g.players {
		if t.kicked&(1<<i) != 0 {
			g.replica.KickPlayer(uint8(i))
		}
	}
	if g.timeline != nil {
		if err := g.timeline.Push(g.replica); err != nil {
			g.log.WithError(err).Error("timeline write failed")
			gs.closeTimeline(g)
		}
	}

	if r := g.replica.Tick(); !r.StillRunning() {
		gs.gameOver(g, r)
	}
}

func (gs *GameService) sendActions(g *game, index uint8) {
	if m, ok := g.update(index); ok {
		gs.send(g, index, m)
	}
}

// update - периодическая работа партии: пустые действия для отстающих и
// исключение рассинхронизированных игроков.
func (gs *GameService) update(g *game) {
	if g.over {
		return
	}
	now := gs.s.Now()

	// 1. Ожидание отстающих
	if g.started && g.waiting() {
		if g.waitingSince.IsZero() {
			g.waitingSince = now
		} else if now.Sub(g.waitingSince) >= gs.cfg.LockstepMaxWait {
			g.log.WithField("tick", g.simulationTick).Debug("idle fallback")
			gs.finalizeTick(g)
			for !g.over && g.complete() {
				gs.finalizeTick(g)
			}
			// Следующий тик без ожидающих - через один интервал.
			g.waitingSince = now.Add(domain.TickInterval - gs.cfg.LockstepMaxWait)
		}
	} else {
		g.waitingSince = time.Time{}
	}

	// 2. Рассинхронизация
	gs.checkDropDesynchronizedPlayers(g, now)
}

func (gs *GameService) checkDropDesynchronizedPlayers(g *game, now time.Time) {
	for i, p := range g.players {
		if p.dropped || g.over {
			continue
		}
		if now.Sub(p.lastActivity) >= gs.cfg.InactivityDelay {
			gs.dropPlayer(g, uint8(i), "inactive")
			continue
		}
		if !g.started {
			continue
		}

		if !g.desynchronized(p, gs.cfg) {
			p.desyncSince = time.Time{}
			continue
		}
		if p.desyncSince.IsZero() {
			p.desyncSince = now
		} else if now.Sub(p.desyncSince) >= gs.cfg.DropGrace {
			gs.dropPlayer(g, uint8(i), "desynchronized")
		}
	}
}

// dropPlayer исключает игрока: его действия с текущего тика пустые, а
// исключение попадает в поток окончательных тиков.
func (gs *GameService) dropPlayer(g *game, index uint8, reason string) {
	p := g.players[index]
	if p.dropped {
		return
	}
	p.dropped = true
	p.queued = nil
	p.kickTick = g.simulationTick
	delete(gs.seats, p.session)

	gs.addEvent(g, "player dropped", "WARN", logrus.Fields{
		"player":   index,
		"session":  p.session,
		"received": p.received,
		"reason":   reason,
	})
	if gs.Karma != nil && !g.over {
		gs.Karma.Disconnection(p.session)
	}

	msg := api.PlayerDropped{PlayerIndex: index, AtTick: p.kickTick}
	for i := range g.players {
		gs.send(g, uint8(i), msg)
	}

	if g.activeCount() == 0 {
		gs.cleanUp(g)
		return
	}
	// Исключение могло разблокировать ожидающий тик.
	if g.started && !g.over {
		for g.complete() && !g.over {
			gs.finalizeTick(g)
		}
	} else {
		gs.startIfReady(g)
	}
}

func (gs *GameService) gameOver(g *game, r domain.ContestResult) {
	g.over = true
	g.result = r
	short := isShortGame(g.simulationTick, gs.cfg.ShortGameDuration)
	gs.addEvent(g, "game over", "INFO", logrus.Fields{
		"result":   r.String(),
		"ticks":    g.simulationTick,
		"short":    short,
		"duration": gs.s.Now().Sub(g.startedAt).String(),
	})

	gs.closeTimeline(g)
	g.rewards = make([]uint16, len(g.players))
	for i, p := range g.players {
		g.rewards[i] = gs.cfg.Rewards.For(r, uint8(i), short)
		if !p.dropped {
			gs.send(g, uint8(i), api.GameOverFor(r, g.rewards[i]))
		}
	}
	gs.updateKarma(g, short)
	g.scope.After(gs.cfg.GameOverGrace, func() { gs.cleanUp(g) })
}

// updateKarma оценивает оставшихся игроков. Короткая партия без исключений
// наказывает всех, иначе доигравшие получают бонус. Исключенные игроки уже
// наказаны в dropPlayer.
func (gs *GameService) updateKarma(g *game, short bool) {
	if gs.Karma == nil {
		return
	}
	penalty := short
	for _, p := range g.players {
		if p.dropped {
			penalty = false
		}
	}
	for _, p := range g.players {
		switch {
		case p.dropped:
		case penalty:
			gs.Karma.ShortGame(p.session)
		default:
			gs.Karma.GoodBehavior(p.session)
		}
	}
}

func (gs *GameService) closeTimeline(g *game) {
	if g.timeline == nil {
		return
	}
	ticks := g.timeline.TickCount()
	if err := g.timeline.Close(); err != nil {
		g.log.WithError(err).Error("timeline close failed")
	} else {
		g.log.WithField("ticks", ticks).Debug("timeline closed")
	}
	g.timeline = nil
}

// cleanUp удаляет партию и освобождает места игроков.
func (gs *GameService) cleanUp(g *game) {
	if _, ok := gs.games[g.channel]; !ok {
		return
	}
	g.scope.Close()
	gs.closeTimeline(g)

	sessions := make([]uint64, 0, len(g.players))
	for _, p := range g.players {
		sessions = append(sessions, p.session)
		if st, ok := gs.seats[p.session]; ok && st.channel == g.channel {
			delete(gs.seats, p.session)
		}
	}
	delete(gs.games, g.channel)
	g.log.Info("game closed")

	if gs.GameEnded != nil {
		gs.GameEnded(g.channel, sessions)
	}
}

// Close закрывает все партии, например при остановке сервера.
func (gs *GameService) Close() {
	for _, g := range gs.games {
		gs.cleanUp(g)
	}
}

func (gs *GameService) send(g *game, index uint8, m api.Message) {
	gs.transport.Send(g.players[index].session, g.channel, m)
}
