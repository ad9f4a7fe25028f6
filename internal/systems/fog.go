package systems

import (
	"github.com/j-jorge/bim-sub001/internal/domain"
)

// UpdateFogOfWar открывает клетки вокруг каждого живого игрока (3x3).
// В партиях на двоих пламя временно открывает свои клетки для всех игроков.
func UpdateFogOfWar(w *domain.World, fog *domain.FogOfWar) {
	r := w.Registry
	blowFlames := len(fog.Cells) <= 2

	// 1. Временно открытые клетки снова закрываются.
	for _, cells := range fog.Cells {
		for i, s := range cells {
			if s == domain.FogBlown {
				cells[i] = domain.FogHidden
			}
		}
	}

	// 2. Вокруг игроков.
	r.Players.Each(func(e domain.Entity, p *domain.Player) {
		if r.Dead.Has(e) {
			return
		}
		pos := r.Positions.Get(e)
		if pos == nil {
			return
		}
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				fog.Set(p.Index, int(pos.X)+dx, int(pos.Y)+dy, domain.FogRevealed)
			}
		}
	})

	if !blowFlames {
		return
	}

	// 3. Пламя.
	r.Flames.Each(func(e domain.Entity, _ *domain.Flame) {
		if r.Dead.Has(e) {
			return
		}
		pos := r.Positions.Get(e)
		for i := range fog.Cells {
			player := uint8(i)
			if fog.At(player, int(pos.X), int(pos.Y)) == domain.FogHidden {
				fog.Set(player, int(pos.X), int(pos.Y), domain.FogBlown)
			}
		}
	})
}
