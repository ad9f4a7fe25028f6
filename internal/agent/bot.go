// Package agent содержит компьютерного игрока.
//
// Bot - внешний клиент: он подключается к серверу так же, как обычный игрок,
// через Transport, и играет через client.Session. Вместо клавиатуры решения
// принимает think по предсказанному состоянию партии.
//
// Жизненный цикл:
//  1. NewBot -> создание сессии, сообщения сервера передаются в Deliver.
//  2. Start -> аутентификация, поиск партии и периодическое обдумывание.
//  3. think -> выбор перемещения и бомбы по миру из Runner.Contest().
package agent

import (
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/j-jorge/bim-sub001/internal/client"
	"github.com/j-jorge/bim-sub001/internal/domain"
	"github.com/j-jorge/bim-sub001/internal/network"
	"github.com/j-jorge/bim-sub001/internal/scheduler"
	"github.com/j-jorge/bim-sub001/pkg/api"
	"github.com/j-jorge/bim-sub001/pkg/logger"
	"github.com/sirupsen/logrus"
)

// ThinkInterval - период принятия решений ботом.
const ThinkInterval = 200 * time.Millisecond

var directions = []domain.Movement{domain.MoveUp, domain.MoveDown, domain.MoveLeft, domain.MoveRight}

// Bot представляет собой "Игрока-компьютера" (Headless Agent).
type Bot struct {
	Name    string
	Session *client.Session

	s        *scheduler.Scheduler
	thinking *scheduler.Scope
	rng      *rand.Rand
	heading  domain.Movement
	log      *logrus.Entry
}

// NewBot создает бота. Работает в горутине планировщика s.
func NewBot(s *scheduler.Scheduler, t network.Transport, features domain.FeatureFlags, seed uint64) *Bot {
	name := "bot-" + uuid.NewString()[:8]
	return &Bot{
		Name:     name,
		Session:  client.NewSession(s, t, features),
		s:        s,
		thinking: s.NewScope(),
		rng:      rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		log:      logger.Component("agent").WithField("bot", name),
	}
}

// Deliver передает сообщение сервера сессии бота.
func (b *Bot) Deliver(e api.Envelope) { b.Session.Deliver(e) }

// Start запускает сессию и цикл решений.
func (b *Bot) Start() {
	b.log.Info("bot started")
	b.Session.Start()
	b.thinking.Every(ThinkInterval, b.think)
}

// Done истинно, когда партия бота закончена или сессия сломалась.
func (b *Bot) Done() bool {
	st := b.Session.State()
	return st == client.SessionFinished || st == client.SessionFailed
}

// Stop останавливает бота и его сессию.
func (b *Bot) Stop() {
	b.thinking.Close()
	b.Session.Close()
}

func (b *Bot) think() {
	if b.Done() {
		b.log.WithField("result", b.Session.Result().String()).Info("bot finished")
		b.thinking.Close()
		return
	}
	runner := b.Session.Runner()
	if b.Session.State() != client.SessionPlaying || runner == nil {
		return
	}

	m, bomb := b.decide(runner.Contest().World(), runner.Local())
	b.heading = m
	b.Session.SetMovement(m)
	if bomb {
		b.Session.DropBomb()
	}
}

// decide выбирает перемещение и необходимость сбросить бомбу.
func (b *Bot) decide(w *domain.World, local uint8) (domain.Movement, bool) {
	// 1. ШАГ: Найти себя
	e, ok := w.FindPlayer(local)
	if !ok || w.Registry.Dead.Has(e) {
		return domain.MoveIdle, false
	}
	pos := w.Registry.Positions.Get(e)
	x, y := int(pos.X), int(pos.Y)

	// 2. ШАГ: Собрать безопасные направления
	var open []domain.Movement
	nearCrate := false
	for _, m := range directions {
		dx, dy := m.Delta()
		switch {
		case hasCrate(w, x+dx, y+dy):
			nearCrate = true
		case walkable(w, x+dx, y+dy) && !burning(w, x+dx, y+dy):
			open = append(open, m)
		}
	}
	if len(open) == 0 {
		return domain.MoveIdle, false
	}

	// 3. ШАГ: Бомба у ящика, если есть куда уйти
	p := w.Registry.Players.Get(e)
	bomb := nearCrate && p.BombAvailable > 0 && b.rng.IntN(3) == 0

	// 4. ШАГ: Держать курс, иногда меняя его
	for _, m := range open {
		if m == b.heading && b.rng.IntN(4) != 0 {
			return m, bomb
		}
	}
	return open[b.rng.IntN(len(open))], bomb
}

func walkable(w *domain.World, x, y int) bool {
	a := w.Arena
	if !a.Contains(x, y) || a.IsStaticWall(x, y) || a.IsSolid(x, y) {
		return false
	}
	for _, e := range a.EntitiesAt(x, y) {
		if w.IsBlocking(e) {
			return false
		}
	}
	return true
}

func hasCrate(w *domain.World, x, y int) bool {
	if !w.Arena.Contains(x, y) {
		return false
	}
	for _, e := range w.Arena.EntitiesAt(x, y) {
		if w.Registry.Crates.Has(e) {
			return true
		}
	}
	return false
}

func burning(w *domain.World, x, y int) bool {
	for _, e := range w.Arena.EntitiesAt(x, y) {
		if w.Registry.Flames.Has(e) {
			return true
		}
	}
	return false
}
