package engine

import "time"

// eventCounter считает события за скользящее окно.
type eventCounter struct {
	times  []time.Time
	window time.Duration
}

func newEventCounter(window time.Duration) *eventCounter {
	return &eventCounter{window: window}
}

func (c *eventCounter) Add(at time.Time) {
	c.times = append(c.times, at)
}

// Since возвращает число событий не старше d.
func (c *eventCounter) Since(now time.Time, d time.Duration) uint32 {
	from := now.Add(-d)
	n := uint32(0)
	// События добавляются по возрастанию времени.
	for i := len(c.times) - 1; i >= 0 && !c.times[i].Before(from); i-- {
		n++
	}
	return n
}

// Prune забывает события старше окна.
func (c *eventCounter) Prune(now time.Time) {
	from := now.Add(-c.window)
	i := 0
	for i < len(c.times) && c.times[i].Before(from) {
		i++
	}
	if i > 0 {
		c.times = append(c.times[:0], c.times[i:]...)
	}
}
