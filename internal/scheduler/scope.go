package scheduler

import "time"

// Scope владеет таймерами одного компонента. Close отменяет все, что было
// запланировано через него, так что ни один вызов не дойдет до уничтоженного
// владельца.
type Scope struct {
	s      *Scheduler
	timers map[*Timer]struct{}
	closed bool
}

// NewScope создает область таймеров на планировщике.
func (s *Scheduler) NewScope() *Scope {
	return &Scope{s: s, timers: make(map[*Timer]struct{})}
}

// After планирует вызов fn через d. После Close возвращает неактивный таймер.
func (sc *Scope) After(d time.Duration, fn func()) *Timer {
	return sc.add(d, 0, fn)
}

// Every планирует вызов fn каждые d.
func (sc *Scope) Every(d time.Duration, fn func()) *Timer {
	if d <= 0 {
		panic("scheduler: non-positive period")
	}
	return sc.add(d, d, fn)
}

func (sc *Scope) add(d, period time.Duration, fn func()) *Timer {
	if sc.closed {
		return &Timer{index: -1}
	}
	t := sc.s.schedule(d, period, fn, sc)
	sc.timers[t] = struct{}{}
	return t
}

// Len возвращает число активных таймеров области.
func (sc *Scope) Len() int { return len(sc.timers) }

// Closed истинно после Close.
func (sc *Scope) Closed() bool { return sc.closed }

// Close отменяет все таймеры области. Повторный вызов ничего не делает.
func (sc *Scope) Close() {
	if sc.closed {
		return
	}
	sc.closed = true
	for t := range sc.timers {
		t.Cancel()
	}
}
