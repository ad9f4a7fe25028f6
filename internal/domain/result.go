package domain

import (
	"fmt"
	"time"
)

// ContestResult - исход партии: еще идет, победитель или ничья.
type ContestResult struct {
	Concluded bool `json:"concluded"`
	Winner    int8 `json:"winner"`
}

// StillRunning - результат незавершенной партии.
func StillRunning() ContestResult { return ContestResult{Winner: -1} }

// WinnerIs - результат с победителем.
func WinnerIs(index uint8) ContestResult {
	return ContestResult{Concluded: true, Winner: int8(index)}
}

// Draw - ничья.
func Draw() ContestResult { return ContestResult{Concluded: true, Winner: -1} }

func (r ContestResult) StillRunning() bool { return !r.Concluded }
func (r ContestResult) HasAWinner() bool   { return r.Concluded && r.Winner >= 0 }
func (r ContestResult) IsDraw() bool       { return r.Concluded && r.Winner < 0 }

// WinningPlayer возвращает индекс победителя. Вызывать только при HasAWinner.
func (r ContestResult) WinningPlayer() uint8 {
	if !r.HasAWinner() {
		panic("contest result: no winner")
	}
	return uint8(r.Winner)
}

func (r ContestResult) String() string {
	switch {
	case r.StillRunning():
		return "running"
	case r.HasAWinner():
		return fmt.Sprintf("winner=%d", r.Winner)
	default:
		return "draw"
	}
}

// TickCounter переводит прошедшее время в целое число тиков, сохраняя остаток.
type TickCounter struct {
	remainder time.Duration
}

// Add добавляет прошедшее время и возвращает число полных тиков.
func (c *TickCounter) Add(elapsed time.Duration) int {
	if elapsed < 0 {
		elapsed = 0
	}
	total := c.remainder + elapsed
	n := total / TickInterval
	c.remainder = total - n*TickInterval
	return int(n)
}

// Reset сбрасывает накопленный остаток.
func (c *TickCounter) Reset() {
	c.remainder = 0
}
