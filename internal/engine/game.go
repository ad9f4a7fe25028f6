package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/j-jorge/bim-sub001/internal/contest"
	"github.com/j-jorge/bim-sub001/internal/domain"
	"github.com/j-jorge/bim-sub001/internal/infrastructure/storage"
	"github.com/j-jorge/bim-sub001/internal/scheduler"
	"github.com/j-jorge/bim-sub001/pkg/api"
	"github.com/sirupsen/logrus"
)

// Причины отказа в обработке обновления клиента.
var (
	errStaleUpdate  = errors.New("update starts before the last confirmed tick")
	errFutureUpdate = errors.New("update starts after the simulation tick")
	errTooLarge     = errors.New("too many actions")
)

// playerSlot - место игрока в партии.
type playerSlot struct {
	session uint64
	ready   bool

	// confirmed - FromTick последнего сообщения: клиент получил все тики
	// до него.
	confirmed uint32
	// queued - действия тиков simulationTick и далее, еще не окончательные.
	queued []domain.PlayerAction
	// received - конец самой дальней полученной последовательности.
	received uint32

	lastActivity time.Time
	desyncSince  time.Time

	dropped  bool
	kickTick uint32
}

// finalTick - окончательный тик, как его видят все игроки.
type finalTick struct {
	actions []domain.PlayerAction
	kicked  uint8
}

// game - одна партия на сервере: lockstep-буферы, реплика партии и запись.
type game struct {
	channel uint32
	traceID string
	fp      domain.Fingerprint
	players []*playerSlot

	started   bool
	startedAt time.Time

	// simulationTick - число окончательных тиков.
	simulationTick uint32
	// history хранит окончательные тики начиная с historyStart, пока их
	// не получат все игроки.
	history      []finalTick
	historyStart uint32
	waitingSince time.Time

	replica  *contest.Contest
	timeline *storage.TimelineWriter

	over    bool
	result  domain.ContestResult
	rewards []uint16
	events  []GameEvent

	scope *scheduler.Scope
	log   *logrus.Entry
}

func (g *game) indexOf(session uint64) (uint8, bool) {
	for i, p := range g.players {
		if p.session == session {
			return uint8(i), true
		}
	}
	return 0, false
}

func (g *game) playerCount() uint8 { return uint8(len(g.players)) }

// allReady истинно, когда каждый оставшийся игрок прислал ready.
func (g *game) allReady() bool {
	for _, p := range g.players {
		if !p.dropped && !p.ready {
			return false
		}
	}
	return true
}

// activeCount возвращает число не исключенных игроков.
func (g *game) activeCount() int {
	n := 0
	for _, p := range g.players {
		if !p.dropped {
			n++
		}
	}
	return n
}

// validateMessage проверяет обновление игрока и возвращает число новых
// действий в нем. Повтор уже полученных действий дает ноль.
func (g *game) validateMessage(index uint8, m api.GameUpdateFromClient) (int, error) {
	p := g.players[index]

	if len(m.Actions) > api.MaxActionsPerMessage {
		return 0, errTooLarge
	}
	if m.FromTick < p.confirmed {
		return 0, errStaleUpdate
	}
	if m.FromTick > g.simulationTick {
		return 0, errFutureUpdate
	}

	end := m.FromTick + uint32(len(m.Actions))
	stored := g.simulationTick + uint32(len(p.queued))
	if end <= stored {
		return 0, nil
	}
	return int(end - stored), nil
}

// queueActions добавляет последние count действий сообщения.
func (g *game) queueActions(index uint8, m api.GameUpdateFromClient, count int) {
	p := g.players[index]
	p.confirmed = m.FromTick
	p.queued = append(p.queued, m.Actions[len(m.Actions)-count:]...)

	if end := m.FromTick + uint32(len(m.Actions)); end > p.received {
		p.received = end
	}
}

// complete истинно, если у каждого оставшегося игрока есть действие для
// следующего тика.
func (g *game) complete() bool {
	for _, p := range g.players {
		if !p.dropped && len(p.queued) == 0 {
			return false
		}
	}
	return true
}

// waiting истинно, если одни игроки уже прислали следующий тик, а другие нет.
func (g *game) waiting() bool {
	some := false
	for _, p := range g.players {
		if !p.dropped && len(p.queued) > 0 {
			some = true
			break
		}
	}
	return some && !g.complete()
}

// nextTick извлекает действия следующего тика. Недостающие действия пустые.
func (g *game) nextTick() finalTick {
	t := finalTick{actions: make([]domain.PlayerAction, len(g.players))}
	for i, p := range g.players {
		if p.dropped {
			if p.kickTick == g.simulationTick {
				t.kicked |= 1 << i
			}
			continue
		}
		if len(p.queued) > 0 {
			t.actions[i] = p.queued[0]
			p.queued = p.queued[1:]
		}
	}
	return t
}

// update строит сообщение для игрока: все окончательные тики начиная с его
// подтвержденного тика, сколько поместится.
func (g *game) update(index uint8) (api.GameUpdateFromServer, bool) {
	p := g.players[index]
	if p.confirmed >= g.simulationTick || p.confirmed < g.historyStart {
		return api.GameUpdateFromServer{}, false
	}

	count := min(int(g.simulationTick-p.confirmed), api.MaxUpdateTicks(len(g.players)))
	first := int(p.confirmed - g.historyStart)

	m := api.GameUpdateFromServer{
		FromTick:    p.confirmed,
		PlayerCount: g.playerCount(),
		Actions:     make([][]domain.PlayerAction, count),
	}
	for i := 0; i < count; i++ {
		t := g.history[first+i]
		m.Actions[i] = t.actions
		if t.kicked != 0 {
			if m.Kicked == nil {
				m.Kicked = make([]uint8, count)
			}
			m.Kicked[i] = t.kicked
		}
	}
	return m, true
}

// dropOldActions забывает тики, которые получили все оставшиеся игроки.
func (g *game) dropOldActions() {
	oldest := g.simulationTick
	for _, p := range g.players {
		if !p.dropped && p.confirmed < oldest {
			oldest = p.confirmed
		}
	}
	if oldest <= g.historyStart {
		return
	}
	n := int(oldest - g.historyStart)
	g.history = append(g.history[:0], g.history[n:]...)
	g.historyStart = oldest
}

// desynchronized проверяет пороги отставания и опережения игрока.
func (g *game) desynchronized(p *playerSlot, cfg Config) bool {
	if g.simulationTick > p.received && g.simulationTick-p.received > cfg.LatenessThreshold {
		return true
	}
	return p.received > g.simulationTick && p.received-g.simulationTick > cfg.EarlinessThreshold
}

// GameInfo - сводка партии для отладочных ручек.
type GameInfo struct {
	Channel        uint32             `json:"channel"`
	TraceID        string             `json:"trace_id"`
	Fingerprint    domain.Fingerprint `json:"fingerprint"`
	Started        bool               `json:"started"`
	SimulationTick uint32             `json:"simulation_tick"`
	History        int                `json:"history"`
	Players        []PlayerInfo       `json:"players"`
	Over           bool               `json:"over"`
	Result         string             `json:"result"`
	Events         []GameEvent        `json:"events"`
}

// PlayerInfo - состояние места игрока.
type PlayerInfo struct {
	Session   uint64 `json:"session"`
	Ready     bool   `json:"ready"`
	Confirmed uint32 `json:"confirmed"`
	Queued    int    `json:"queued"`
	Received  uint32 `json:"received"`
	Dropped   bool   `json:"dropped"`
	Reward    uint16 `json:"reward"`
}

func (g *game) info() GameInfo {
	gi := GameInfo{
		Channel:        g.channel,
		TraceID:        g.traceID,
		Fingerprint:    g.fp,
		Started:        g.started,
		SimulationTick: g.simulationTick,
		History:        len(g.history),
		Over:           g.over,
		Result:         g.result.String(),
		Events:         append([]GameEvent(nil), g.events...),
	}
	for i, p := range g.players {
		pi := PlayerInfo{
			Session:   p.session,
			Ready:     p.ready,
			Confirmed: p.confirmed,
			Queued:    len(p.queued),
			Received:  p.received,
			Dropped:   p.dropped,
		}
		if i < len(g.rewards) {
			pi.Reward = g.rewards[i]
		}
		gi.Players = append(gi.Players, pi)
	}
	return gi
}

func (g *game) String() string {
	return fmt.Sprintf("game %d (%s) tick=%d", g.channel, g.traceID, g.simulationTick)
}
