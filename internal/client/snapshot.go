package client

import (
	"sync"

	"github.com/j-jorge/bim-sub001/internal/contest"
	"github.com/j-jorge/bim-sub001/internal/domain"
)

// Snapshot - неизменяемая копия состояния партии для отрисовки в другой
// горутине.
type Snapshot struct {
	Tick      uint32
	Remaining uint32
	Result    domain.ContestResult
	Local     uint8
	World     *domain.World
	Fog       *domain.FogOfWar
}

// NewSnapshot копирует текущее состояние партии.
func NewSnapshot(c *contest.Contest, local uint8) *Snapshot {
	s := &Snapshot{
		Tick:      c.TickIndex(),
		Remaining: c.RemainingTicks(),
		Result:    c.Result(),
		Local:     local,
		World:     c.World().Clone(),
	}
	if f := c.Fog(); f != nil {
		s.Fog = f.Clone()
	}
	return s
}

// SnapshotBuffer - двойной буфер: симуляция публикует, отрисовка читает
// последний опубликованный снимок.
type SnapshotBuffer struct {
	mu      sync.Mutex
	latest  *Snapshot
	version uint64
}

// Publish заменяет последний снимок.
func (b *SnapshotBuffer) Publish(s *Snapshot) {
	b.mu.Lock()
	b.latest = s
	b.version++
	b.mu.Unlock()
}

// Latest возвращает последний снимок и его номер. Номер растет с каждой
// публикацией, что позволяет не перерисовывать экран без изменений.
func (b *SnapshotBuffer) Latest() (*Snapshot, uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.latest, b.version
}
