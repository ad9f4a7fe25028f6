package systems

import (
	"github.com/j-jorge/bim-sub001/internal/domain"
)

// MovementResult - результат вычисления движения
type MovementResult struct {
	NewX, NewY int
	HasMoved   bool
	BlockedBy  domain.Entity // Сущность в целевой клетке (бомба, ящик, падающий блок)
	IsWall     bool          // Граница поля, стена, твердая клетка или ограждение
}

// edgeTowards возвращает ограждение, которое пересекается при выходе из клетки.
func edgeTowards(m domain.Movement) (leaving, entering domain.CellEdge) {
	switch m {
	case domain.MoveUp:
		return domain.EdgeUp, domain.EdgeDown
	case domain.MoveDown:
		return domain.EdgeDown, domain.EdgeUp
	case domain.MoveLeft:
		return domain.EdgeLeft, domain.EdgeRight
	case domain.MoveRight:
		return domain.EdgeRight, domain.EdgeLeft
	}
	return domain.EdgeNone, domain.EdgeNone
}

// CalculateMove вычисляет новую позицию на одну клетку. Не меняет состояние мира!
func CalculateMove(w *domain.World, x, y int, m domain.Movement) MovementResult {
	dx, dy := m.Delta()
	res := MovementResult{NewX: x + dx, NewY: y + dy}

	if m == domain.MoveIdle {
		res.NewX, res.NewY = x, y
		return res
	}

	// 1. Проверка границ
	if !w.Arena.Contains(res.NewX, res.NewY) {
		res.IsWall = true
		return res
	}

	// 2. Проверка стен и твердых клеток
	if w.Arena.IsStaticWall(res.NewX, res.NewY) || w.Arena.IsSolid(res.NewX, res.NewY) {
		res.IsWall = true
		return res
	}

	// 3. Ограждения на пересекаемых краях
	leaving, entering := edgeTowards(m)
	if w.Arena.Fences(x, y)&leaving != 0 || w.Arena.Fences(res.NewX, res.NewY)&entering != 0 {
		res.IsWall = true
		return res
	}

	// 4. Проверка сущностей
	for _, e := range w.Arena.EntitiesAt(res.NewX, res.NewY) {
		if w.IsBlocking(e) && !w.Registry.Dead.Has(e) {
			res.BlockedBy = e
			return res
		}
	}

	res.HasMoved = true
	return res
}

var movementFacing = map[domain.Movement]domain.Direction{
	domain.MoveUp:    domain.DirectionUp,
	domain.MoveDown:  domain.DirectionDown,
	domain.MoveLeft:  domain.DirectionLeft,
	domain.MoveRight: domain.DirectionRight,
}

// ApplyPlayerActions перемещает игроков на одну клетку и сбрасывает бомбы.
func ApplyPlayerActions(w *domain.World) {
	r := w.Registry

	r.Players.Each(func(e domain.Entity, player *domain.Player) {
		if r.Dead.Has(e) {
			return
		}
		action := r.Actions.Get(e)
		pos := r.Positions.Get(e)
		if action == nil || pos == nil {
			return
		}

		// 1. Перемещение
		if facing, ok := movementFacing[action.Movement]; ok {
			player.Facing = facing

			res := CalculateMove(w, int(pos.X), int(pos.Y), action.Movement)
			if res.HasMoved {
				pos.X, pos.Y = uint8(res.NewX), uint8(res.NewY)
			}
		}

		// 2. Бомба в клетке игрока, если клетка свободна
		if action.DropBomb {
			dropBomb(w, player, int(pos.X), int(pos.Y))
		}
	})
}

func dropBomb(w *domain.World, player *domain.Player, x, y int) {
	if player.BombAvailable == 0 || !w.Arena.IsEmpty(x, y) || w.Arena.IsSolid(x, y) {
		return
	}

	bomb := w.Spawn(x, y, true)
	w.Registry.Bombs.Set(bomb, domain.Bomb{Strength: player.BombStrength, Owner: player.Index})
	w.Registry.Timers.Set(bomb, domain.Timer{Remaining: domain.BombTimerTicks})
	player.BombAvailable--
}

// RefreshBombInventory возвращает игрокам бомбы, которые уже взорвались.
func RefreshBombInventory(w *domain.World) {
	r := w.Registry

	var live [domain.MaxPlayerCount]int
	r.Bombs.Each(func(e domain.Entity, b *domain.Bomb) {
		if !r.Dead.Has(e) && int(b.Owner) < len(live) {
			live[b.Owner]++
		}
	})

	r.Players.Each(func(_ domain.Entity, p *domain.Player) {
		n := int(p.BombCapacity) - live[p.Index]
		if n < 0 {
			n = 0
		}
		p.BombAvailable = uint8(n)
	})
}
