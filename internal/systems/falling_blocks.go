package systems

import (
	"github.com/j-jorge/bim-sub001/internal/domain"
)

// FallOrder вычисляет порядок обрушения клеток: кольцами снаружи внутрь,
// по часовой стрелке, пропуская статические стены.
func FallOrder(a *domain.Arena) []domain.Position {
	var order []domain.Position
	add := func(x, y int) {
		if !a.IsStaticWall(x, y) {
			order = append(order, domain.Position{X: uint8(x), Y: uint8(y)})
		}
	}

	left, top := 0, 0
	right, bottom := a.Width()-1, a.Height()-1

	for left <= right && top <= bottom {
		for x := left; x <= right; x++ {
			add(x, top)
		}
		for y := top + 1; y <= bottom; y++ {
			add(right, y)
		}
		if top < bottom {
			for x := right - 1; x >= left; x-- {
				add(x, bottom)
			}
		}
		if left < right {
			for y := bottom - 1; y > top; y-- {
				add(left, y)
			}
		}
		left++
		top++
		right--
		bottom--
	}

	return order
}

// UpdateArenaReduction запускает падение следующего блока, когда истекает таймер обрушения.
func UpdateArenaReduction(w *domain.World, order []domain.Position) {
	r := w.Registry

	r.Reductions.Each(func(e domain.Entity, state *domain.ArenaReduction) {
		t := r.Timers.Get(e)
		if t == nil || !t.Tick() {
			return
		}

		for state.NextFall < len(order) {
			p := order[state.NextFall]
			state.NextFall++

			if w.Arena.IsSolid(int(p.X), int(p.Y)) {
				continue
			}

			block := w.Spawn(int(p.X), int(p.Y), true)
			r.FallingBlocks.Set(block, domain.Tag{})
			r.Timers.Set(block, domain.Timer{Remaining: domain.FallingBlockFallTicks})
			break
		}

		// Timers мог перераспределиться после Spawn.
		r.Timers.Set(e, domain.Timer{Remaining: domain.FallingBlockDelayTicks})
	})
}

// UpdateFallingBlocks приземляет блоки: клетка становится твердой,
// игроки в ней раздавлены, остальные сущности уничтожены.
func UpdateFallingBlocks(w *domain.World) {
	r := w.Registry

	r.FallingBlocks.Each(func(e domain.Entity, _ *domain.Tag) {
		if r.Dead.Has(e) {
			return
		}
		t := r.Timers.Get(e)
		if t != nil && !t.Tick() {
			return
		}

		pos := *r.Positions.Get(e)
		x, y := int(pos.X), int(pos.Y)

		occupants := append([]domain.Entity(nil), w.Arena.EntitiesAt(x, y)...)
		for _, other := range occupants {
			kill(w, other)
		}
		w.Arena.SetSolid(x, y)

		for _, player := range w.PlayersAt(x, y) {
			r.Crushed.Set(player, domain.Tag{})
		}
	})
}
