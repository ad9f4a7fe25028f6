package client

import (
	"errors"
	"fmt"
	"time"

	"github.com/j-jorge/bim-sub001/internal/contest"
	"github.com/j-jorge/bim-sub001/internal/domain"
	"github.com/j-jorge/bim-sub001/pkg/logger"
	"github.com/sirupsen/logrus"
)

var (
	// ErrRollbackDesync - нет подтвержденного состояния, к которому можно откатиться.
	ErrRollbackDesync = errors.New("runner: no confirmed archive to roll back to")
	// ErrUnexpectedUpdate - обновление не продолжает историю сервера.
	ErrUnexpectedUpdate = errors.New("runner: update does not follow the server history")
)

// ActionPusher получает локальное действие каждого смоделированного тика.
type ActionPusher interface {
	Push(a domain.PlayerAction)
}

// Runner продвигает партию в реальном времени, предсказывая действия других
// игроков, и откатывается к подтвержденному состоянию при каждом обновлении
// от сервера.
type Runner struct {
	contest *contest.Contest
	local   uint8
	players uint8
	out     ActionPusher
	input   func() domain.PlayerAction

	counter domain.TickCounter

	// Подтвержденное состояние и число тиков в нем.
	confirmedArchive contest.Archive
	confirmedTick    uint32
	confirmedResult  domain.ContestResult

	// Тики сервера, еще не примененные к подтвержденному состоянию.
	pending []serverTick
	// Локальные действия тиков confirmedTick..completedTick-1.
	unconfirmed []domain.PlayerAction
	// Последнее действие каждого игрока по данным сервера.
	lastServer []domain.PlayerAction

	snapshots *SnapshotBuffer
	log       *logrus.Entry
}

type serverTick struct {
	actions []domain.PlayerAction
	kicked  uint8
}

// NewRunner создает исполнителя партии для локального игрока. input
// вызывается один раз на каждый новый тик.
func NewRunner(c *contest.Contest, local uint8, out ActionPusher, input func() domain.PlayerAction) (*Runner, error) {
	players := c.Fingerprint().PlayerCount
	if local >= players {
		return nil, fmt.Errorf("runner: player %d out of %d", local, players)
	}
	r := &Runner{
		contest:         c,
		local:           local,
		players:         players,
		out:             out,
		input:           input,
		confirmedTick:   c.TickIndex(),
		confirmedResult: c.Result(),
		lastServer:      make([]domain.PlayerAction, players),
		snapshots:       &SnapshotBuffer{},
		log: logger.Component("runner").WithFields(logrus.Fields{
			"player": local,
		}),
	}
	if err := c.Save(&r.confirmedArchive); err != nil {
		return nil, err
	}
	r.publish()
	return r, nil
}

// Contest возвращает текущее (предсказанное) состояние партии.
func (r *Runner) Contest() *contest.Contest { return r.contest }

// Local возвращает индекс локального игрока.
func (r *Runner) Local() uint8 { return r.local }

// Snapshots возвращает буфер снимков для отрисовки.
func (r *Runner) Snapshots() *SnapshotBuffer { return r.snapshots }

// ConfirmedTick возвращает число тиков, подтвержденных и примененных.
func (r *Runner) ConfirmedTick() uint32 { return r.confirmedTick }

// CompletedTick возвращает число смоделированных тиков.
func (r *Runner) CompletedTick() uint32 { return r.contest.TickIndex() }

// ConfirmedResult возвращает результат по подтвержденным тикам.
func (r *Runner) ConfirmedResult() domain.ContestResult { return r.confirmedResult }

// ConfirmedArchive возвращает подтвержденное состояние.
func (r *Runner) ConfirmedArchive() *contest.Archive { return &r.confirmedArchive }

// QueueUpdates добавляет окончательные тики сервера. Они применяются при
// следующем Run.
func (r *Runner) QueueUpdates(u ServerUpdate) error {
	if expected := r.confirmedTick + uint32(len(r.pending)); u.FromTick != expected {
		return fmt.Errorf("%w: from %d, expected %d", ErrUnexpectedUpdate, u.FromTick, expected)
	}
	for i, actions := range u.Actions {
		if len(actions) != int(r.players) {
			return fmt.Errorf("%w: tick %d has %d actions", ErrUnexpectedUpdate, u.FromTick+uint32(i), len(actions))
		}
	}

	for i, actions := range u.Actions {
		var kicked uint8
		if i < len(u.Kicked) {
			kicked = u.Kicked[i]
		}
		r.pending = append(r.pending, serverTick{actions: actions, kicked: kicked})
	}
	return nil
}

// Run применяет полученные тики сервера и моделирует тики, накопившиеся за
// elapsed. Возвращает текущий, возможно предсказанный, результат.
func (r *Runner) Run(elapsed time.Duration) (domain.ContestResult, error) {
	ticks := r.counter.Add(elapsed)
	synced := len(r.pending) > 0

	// 1. Синхронизация с сервером
	if synced {
		if err := r.syncWithServer(); err != nil {
			return r.contest.Result(), err
		}
	}

	// 2. Новые тики с локальным вводом
	for i := 0; i < ticks && r.contest.Result().StillRunning(); i++ {
		a := domain.IdleAction
		if r.input != nil {
			a = r.input()
		}
		r.simulate(a)
		r.unconfirmed = append(r.unconfirmed, a)
		if r.out != nil {
			r.out.Push(a)
		}
	}

	// 3. Снимок для отрисовки
	if synced || ticks > 0 {
		r.publish()
	}
	return r.contest.Result(), nil
}

// syncWithServer откатывается к подтвержденному состоянию, применяет тики
// сервера, сохраняет новое подтвержденное состояние и заново моделирует
// неподтвержденные локальные действия.
func (r *Runner) syncWithServer() error {
	if r.confirmedArchive.IsEmpty() {
		return ErrRollbackDesync
	}
	if err := r.contest.Restore(&r.confirmedArchive); err != nil {
		return fmt.Errorf("%w: %v", ErrRollbackDesync, err)
	}

	// 1. Окончательные тики
	for _, t := range r.pending {
		r.contest.SetActions(t.actions)
		for p := uint8(0); p < r.players; p++ {
			if t.kicked&(1<<p) != 0 {
				r.contest.KickPlayer(p)
			}
		}
		r.contest.Tick()
		copy(r.lastServer, t.actions)
	}
	applied := len(r.pending)
	r.confirmedTick += uint32(applied)
	r.pending = r.pending[:0]

	// 2. Новое подтвержденное состояние
	if err := r.contest.Save(&r.confirmedArchive); err != nil {
		return err
	}
	r.confirmedResult = r.contest.Result()

	// 3. Неподтвержденные действия. Если сервер ушел дальше локальной
	// модели, предсказывать нечего.
	if applied >= len(r.unconfirmed) {
		r.unconfirmed = r.unconfirmed[:0]
	} else {
		r.unconfirmed = append(r.unconfirmed[:0], r.unconfirmed[applied:]...)
	}
	for _, a := range r.unconfirmed {
		if !r.contest.Result().StillRunning() {
			break
		}
		r.simulate(a)
	}

	r.log.WithFields(logrus.Fields{
		"confirmed": r.confirmedTick,
		"predicted": len(r.unconfirmed),
	}).Trace("rolled back")
	return nil
}

// simulate моделирует один тик: локальное действие и предсказанные действия
// остальных игроков. Предсказание повторяет последнее движение, но не бомбу.
func (r *Runner) simulate(local domain.PlayerAction) {
	for p := uint8(0); p < r.players; p++ {
		if p == r.local {
			r.contest.SetAction(p, local)
			continue
		}
		predicted := r.lastServer[p]
		predicted.DropBomb = false
		r.contest.SetAction(p, predicted)
	}
	r.contest.Tick()
}

func (r *Runner) publish() {
	r.snapshots.Publish(NewSnapshot(r.contest, r.local))
}
