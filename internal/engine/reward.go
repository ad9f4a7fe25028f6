package engine

import (
	"time"

	"github.com/j-jorge/bim-sub001/internal/domain"
)

// For возвращает награду игрока index за партию с результатом r.
func (rw Rewards) For(r domain.ContestResult, index uint8, short bool) uint16 {
	switch {
	case r.IsDraw() && short:
		return rw.ShortGameDraw
	case r.IsDraw():
		return rw.Draw
	case r.WinningPlayer() == index && short:
		return rw.ShortGameVictory
	case r.WinningPlayer() == index:
		return rw.Victory
	case short:
		return rw.ShortGameDefeat
	default:
		return rw.Defeat
	}
}

// isShortGame сравнивает длину партии в окончательных тиках с порогом.
func isShortGame(ticks uint32, limit time.Duration) bool {
	return time.Duration(ticks)*domain.TickInterval < limit
}
