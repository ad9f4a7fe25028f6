package scheduler

import (
	"container/heap"
	"time"
)

// Timer - отложенный вызов. Принадлежит планировщику, отменяется через Cancel.
type Timer struct {
	due    time.Time
	seq    uint64 // порядок постановки: при равном due раньше тот, кто раньше запланирован
	period time.Duration
	fn     func()
	index  int // индекс в куче, -1 если таймер не в очереди

	s     *Scheduler
	scope *Scope
}

// Cancel снимает таймер. Отмененный таймер никогда не сработает.
// Возвращает false, если таймер уже сработал или был отменен.
func (t *Timer) Cancel() bool {
	if t == nil || t.fn == nil {
		return false
	}
	t.fn = nil
	if t.scope != nil {
		delete(t.scope.timers, t)
	}
	if t.index >= 0 {
		heap.Remove(&t.s.queue, t.index)
		return true
	}
	// Периодический таймер во время своего вызова уже снят с кучи.
	return t.period > 0
}

// Active истинно, пока таймер ожидает срабатывания.
func (t *Timer) Active() bool {
	return t != nil && t.fn != nil
}

// timerQueue реализует heap.Interface и хранит таймеры
type timerQueue []*Timer

func (q timerQueue) Len() int { return len(q) }

func (q timerQueue) Less(i, j int) bool {
	// MinHeap по времени срабатывания, затем по порядку постановки
	if !q[i].due.Equal(q[j].due) {
		return q[i].due.Before(q[j].due)
	}
	return q[i].seq < q[j].seq
}

func (q timerQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *timerQueue) Push(x interface{}) {
	item := x.(*Timer)
	item.index = len(*q)
	*q = append(*q, item)
}

func (q *timerQueue) Pop() interface{} {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil  // избегаем утечки памяти
	item.index = -1 // для безопасности
	*q = old[0 : n-1]
	return item
}

func (q timerQueue) peek() *Timer {
	if len(q) == 0 {
		return nil
	}
	return q[0]
}
