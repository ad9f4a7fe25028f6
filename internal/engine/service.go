// Package engine is the authoritative side of the protocol: sessions,
// matchmaking and the lockstep game service. Everything runs on a single
// scheduler goroutine; I/O goroutines hand frames over with Scheduler.Post.
package engine

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/j-jorge/bim-sub001/internal/infrastructure/storage"
	"github.com/j-jorge/bim-sub001/internal/network"
	"github.com/j-jorge/bim-sub001/internal/scheduler"
	"github.com/j-jorge/bim-sub001/pkg/api"
	"github.com/j-jorge/bim-sub001/pkg/logger"
	"github.com/sirupsen/logrus"
)

// ErrStopped возвращается, если планировщик уже не обрабатывает события.
var ErrStopped = errors.New("engine: scheduler stopped")

// Service разбирает датаграммы клиентов и передает их сервисам:
// канал 0 - сессии и подбор игры, остальные каналы - партии.
type Service struct {
	Config      Config
	Sessions    *SessionService
	Matchmaking *MatchmakingService
	Games       *GameService
	Karma       *KarmaService

	s     *scheduler.Scheduler
	scope *scheduler.Scope
	log   *logrus.Entry
}

// NewService собирает сервисы поверх транспорта. Если задан каталог
// записей, партии записываются в него.
func NewService(cfg Config, s *scheduler.Scheduler, t network.Transport) (*Service, error) {
	var timelines TimelineOpener
	if cfg.TimelineDir != "" {
		ts, err := storage.NewTimelineService(cfg.TimelineDir)
		if err != nil {
			return nil, err
		}
		timelines = ts
	}
	return NewServiceWithTimelines(cfg, s, t, timelines), nil
}

// NewServiceWithTimelines позволяет подставить свой источник записей.
func NewServiceWithTimelines(cfg Config, s *scheduler.Scheduler, t network.Transport, timelines TimelineOpener) *Service {
	karma := NewKarmaService(cfg.Karma, s)
	games := NewGameService(cfg, s, t, timelines)
	games.Karma = karma
	sessions := NewSessionService(cfg, s, t, games.GameCount, karma)
	mm := NewMatchmakingService(cfg, s, t, games, sessions)
	games.GameEnded = mm.GameEnded
	karma.KickedOut = func(session uint64) {
		mm.Remove(session)
		sessions.Remove(session)
	}

	return &Service{
		Config:      cfg,
		Sessions:    sessions,
		Matchmaking: mm,
		Games:       games,
		Karma:       karma,
		s:           s,
		scope:       s.NewScope(),
		log:         logger.Component("service"),
	}
}

// Start запускает периодическую уборку.
func (sv *Service) Start() {
	sv.scope.Every(sv.Config.CleanUpInterval, func() {
		sv.Matchmaking.CleanUp()
		sv.Sessions.CleanUp()
	})
	if sv.Config.Karma.Enabled {
		sv.scope.Every(sv.Config.Karma.ReviewInterval, sv.Karma.Review)
	}
	sv.log.WithFields(logrus.Fields{
		"players_per_game": sv.Config.PlayersPerGame,
		"timelines":        sv.Config.TimelineDir,
	}).Info("service started")
}

// Process обрабатывает одну датаграмму клиента.
func (sv *Service) Process(e api.Envelope) {
	m, err := e.Message()
	if err != nil {
		sv.log.WithError(err).WithField("session", e.SessionID).Debug("bad message dropped")
		return
	}

	if auth, ok := m.(api.Authentication); ok && e.Channel == 0 {
		sv.Sessions.Authenticate(e.SessionID, auth)
		return
	}
	if !sv.Sessions.IsAuthenticated(e.SessionID) {
		sv.log.WithFields(logrus.Fields{
			"session": e.SessionID,
			"type":    m.Type().String(),
		}).Debug("message before authentication")
		return
	}

	if e.Channel != 0 {
		sv.Games.Process(e.SessionID, e.Channel, m)
		return
	}

	switch msg := m.(type) {
	case api.Hello:
		sv.Sessions.Hello(e.SessionID, msg)
	case api.NewGameRequest:
		sv.Matchmaking.NewGameRequest(e.SessionID, msg)
	case api.AcceptGame:
		sv.Matchmaking.AcceptGame(e.SessionID, msg)
	default:
		sv.log.WithFields(logrus.Fields{
			"session": e.SessionID,
			"type":    m.Type().String(),
		}).Debug("unexpected message")
	}
}

// Disconnected освобождает все, что принадлежало сессии.
func (sv *Service) Disconnected(session uint64) {
	sv.Matchmaking.Remove(session)
	sv.Games.Disconnected(session)
	sv.Sessions.Remove(session)
	sv.Karma.Forget(session)
}

// Identify сообщает адрес клиента сессии. Карма ведется по адресу.
func (sv *Service) Identify(session uint64, address string) {
	sv.Karma.Identify(session, address)
}

// Inspect выполняет fn в горутине планировщика и ждет результата. Для
// чтения состояния из HTTP-обработчиков. Если Inspect вернул ошибку, fn не
// выполнялся и уже не выполнится.
func (sv *Service) Inspect(ctx context.Context, fn func(*Service)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// 0 - ожидает, 1 - выполняется, 2 - отменен
	var state atomic.Int32
	done := make(chan struct{})
	sv.s.Post(func() {
		if ctx.Err() != nil || !state.CompareAndSwap(0, 1) {
			return
		}
		fn(sv)
		close(done)
	})

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		if state.CompareAndSwap(0, 2) {
			return ctx.Err()
		}
		// fn уже начал работу: ждем, пока он отпустит данные вызывающего.
		<-done
		return nil
	}
}

// Close закрывает партии и записи.
func (sv *Service) Close() {
	sv.scope.Close()
	sv.Games.Close()
	sv.log.Info("service closed")
}
