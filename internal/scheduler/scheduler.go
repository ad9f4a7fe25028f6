// Package scheduler runs delayed calls and posted events serially on a single
// goroutine. The simulation and the protocol state machines are only touched
// from scheduler callbacks, so they need no locking of their own.
package scheduler

import (
	"container/heap"
	"context"
	"sync"
	"time"
)

// Scheduler - кооперативный планировщик: куча таймеров плюс очередь событий
// от горутин ввода-вывода. After, Cancel и RunDue вызываются только из
// горутины планировщика; Post безопасен из любой горутины.
type Scheduler struct {
	queue timerQueue
	seq   uint64

	now    func() time.Time
	manual *time.Time

	mu     sync.Mutex
	posted []func()
	wake   chan struct{}
}

// New создает планировщик на системных часах.
func New() *Scheduler {
	return &Scheduler{
		now:  time.Now,
		wake: make(chan struct{}, 1),
	}
}

// NewManual создает планировщик на виртуальных часах: время идет только через
// Advance. Используется в тестах, чтобы сценарии были детерминированными.
func NewManual(start time.Time) *Scheduler {
	clock := start
	s := New()
	s.manual = &clock
	s.now = func() time.Time { return *s.manual }
	return s
}

// Now возвращает текущее время планировщика.
func (s *Scheduler) Now() time.Time { return s.now() }

// Pending возвращает число ожидающих таймеров.
func (s *Scheduler) Pending() int { return s.queue.Len() }

// After планирует вызов fn через d.
func (s *Scheduler) After(d time.Duration, fn func()) *Timer {
	return s.schedule(d, 0, fn, nil)
}

// Every планирует вызов fn каждые d, пока таймер не отменен.
func (s *Scheduler) Every(d time.Duration, fn func()) *Timer {
	if d <= 0 {
		panic("scheduler: non-positive period")
	}
	return s.schedule(d, d, fn, nil)
}

func (s *Scheduler) schedule(d, period time.Duration, fn func(), scope *Scope) *Timer {
	if d < 0 {
		d = 0
	}
	t := &Timer{
		due:    s.now().Add(d),
		seq:    s.seq,
		period: period,
		fn:     fn,
		index:  -1,
		s:      s,
		scope:  scope,
	}
	s.seq++
	heap.Push(&s.queue, t)
	return t
}

// Post ставит fn в очередь на выполнение в горутине планировщика.
func (s *Scheduler) Post(fn func()) {
	s.mu.Lock()
	s.posted = append(s.posted, fn)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Scheduler) drainPosted() int {
	s.mu.Lock()
	posted := s.posted
	s.posted = nil
	s.mu.Unlock()

	for _, fn := range posted {
		fn()
	}
	return len(posted)
}

// RunDue выполняет события и все таймеры, срок которых наступил.
// Таймеры, запланированные во время этого прохода, ждут следующего.
// Возвращает число выполненных вызовов.
func (s *Scheduler) RunDue() int {
	n := s.drainPosted()
	now := s.now()
	limit := s.seq

	for {
		t := s.queue.peek()
		if t == nil || t.due.After(now) || t.seq >= limit {
			return n
		}
		s.fire(t)
		n++
	}
}

func (s *Scheduler) fire(t *Timer) {
	heap.Pop(&s.queue)
	fn := t.fn
	if t.period == 0 {
		t.fn = nil
		if t.scope != nil {
			delete(t.scope.timers, t)
		}
	}

	fn()

	// Периодический таймер возвращается в очередь, если его не отменили.
	if t.period > 0 && t.fn != nil {
		t.due = t.due.Add(t.period)
		if now := s.now(); t.due.Before(now) {
			t.due = now
		}
		t.seq = s.seq
		s.seq++
		heap.Push(&s.queue, t)
	}
}

// Advance сдвигает виртуальные часы на d, выполняя таймеры в порядке их
// сроков. Только для планировщика из NewManual.
func (s *Scheduler) Advance(d time.Duration) int {
	if s.manual == nil {
		panic("scheduler: Advance on a real-time scheduler")
	}
	target := s.manual.Add(d)
	n := s.drainPosted()

	for {
		t := s.queue.peek()
		if t == nil || t.due.After(target) {
			break
		}
		if t.due.After(*s.manual) {
			*s.manual = t.due
		}
		s.fire(t)
		n++
		n += s.drainPosted()
	}

	*s.manual = target
	return n + s.drainPosted()
}

// Run обслуживает очередь до отмены контекста.
func (s *Scheduler) Run(ctx context.Context) error {
	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	for {
		s.RunDue()

		wait := time.Hour
		if t := s.queue.peek(); t != nil {
			wait = t.due.Sub(s.now())
			if wait < 0 {
				wait = 0
			}
		}
		timer.Reset(wait)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.wake:
		case <-timer.C:
		}
	}
}
