package systems

import (
	"github.com/j-jorge/bim-sub001/internal/domain"
)

// UpdateBombs отсчитывает таймеры бомб и взрывает бомбы с истекшим таймером.
// Горящая бомба (задетая чужим пламенем) получает нулевой таймер. Бомбы,
// подожженные взрывами этого вызова, взрываются при следующем вызове.
func UpdateBombs(w *domain.World) {
	r := w.Registry

	// 1. Горящие бомбы и отсчет таймеров
	var expired []domain.Entity
	r.Bombs.Each(func(e domain.Entity, _ *domain.Bomb) {
		if r.Dead.Has(e) {
			return
		}

		t := r.Timers.Get(e)
		if r.Burning.Has(e) {
			if t != nil {
				t.Remaining = 0
			}
			expired = append(expired, e)
			return
		}
		if t != nil && t.Tick() {
			expired = append(expired, e)
		}
	})

	// 2. Взрывы
	for _, e := range expired {
		pos := *r.Positions.Get(e)
		strength := r.Bombs.Get(e).Strength

		w.Arena.EraseEntity(e, int(pos.X), int(pos.Y))
		r.Dead.Set(e, domain.Tag{})

		createFlames(w, int(pos.X), int(pos.Y), strength)
	}
}

type flameRay struct {
	dx, dy    int
	direction domain.Direction
}

var flameRays = []flameRay{
	{-1, 0, domain.DirectionLeft},
	{1, 0, domain.DirectionRight},
	{0, -1, domain.DirectionUp},
	{0, 1, domain.DirectionDown},
}

func createFlames(w *domain.World, x, y int, strength uint8) {
	// Блокиратор в центре: пламя других бомб этого тика не проходит через центр.
	blocker := w.Spawn(x, y, false)
	w.Registry.FlameBlockers.Set(blocker, domain.Tag{})
	w.Registry.Timers.Set(blocker, domain.Timer{Remaining: domain.FlameBlockerTicks})

	for _, ray := range flameRays {
		for offset := 1; offset <= int(strength); offset++ {
			segment := domain.FlameArm
			if offset == int(strength) {
				segment = domain.FlameTip
			}
			if !burn(w, x+ray.dx*offset, y+ray.dy*offset, ray.direction, segment) {
				break
			}
		}
	}

	// Центр взрыва, направление не имеет значения.
	spawnFlame(w, x, y, domain.DirectionUp, domain.FlameOrigin)
}

// burn распространяет пламя в клетку. Возвращает false, если распространение
// в этом направлении должно остановиться.
func burn(w *domain.World, x, y int, dir domain.Direction, segment domain.FlameSegment) bool {
	if !w.Arena.Contains(x, y) || w.Arena.IsSolid(x, y) {
		return false
	}

	r := w.Registry
	stopped := false
	var existing domain.Entity

	for _, e := range w.Arena.EntitiesAt(x, y) {
		if r.Dead.Has(e) {
			continue
		}
		if w.StopsFlame(e) {
			r.Burning.Set(e, domain.Tag{})
			stopped = true
		} else if r.Flames.Has(e) && existing.IsNil() {
			existing = e
		}
	}

	if stopped {
		return false
	}

	if !existing.IsNil() {
		r.Timers.Set(existing, domain.Timer{Remaining: domain.FlameTimerTicks})
		return true
	}

	spawnFlame(w, x, y, dir, segment)
	return true
}

func spawnFlame(w *domain.World, x, y int, dir domain.Direction, segment domain.FlameSegment) {
	e := w.Spawn(x, y, false)
	w.Registry.Flames.Set(e, domain.Flame{Direction: dir, Segment: segment})
	w.Registry.Timers.Set(e, domain.Timer{Remaining: domain.FlameTimerTicks})
}

// UpdateFlames поджигает игроков в клетках с пламенем и гасит истекшее пламя.
func UpdateFlames(w *domain.World) {
	r := w.Registry

	// 1. Игроки в пламени
	r.Players.Each(func(e domain.Entity, _ *domain.Player) {
		if r.Dead.Has(e) {
			return
		}
		pos := r.Positions.Get(e)
		if pos == nil {
			return
		}
		for _, other := range w.Arena.EntitiesAt(int(pos.X), int(pos.Y)) {
			if r.Flames.Has(other) && !r.Dead.Has(other) {
				r.Burning.Set(e, domain.Tag{})
				return
			}
		}
	})

	// 2. Истекшие языки пламени и блокираторы
	expire := func(e domain.Entity) {
		if r.Dead.Has(e) {
			return
		}
		t := r.Timers.Get(e)
		if t == nil || t.Tick() {
			pos := r.Positions.Get(e)
			w.Arena.EraseEntity(e, int(pos.X), int(pos.Y))
			r.Dead.Set(e, domain.Tag{})
		}
	}

	r.Flames.Each(func(e domain.Entity, _ *domain.Flame) { expire(e) })
	r.FlameBlockers.Each(func(e domain.Entity, _ *domain.Tag) { expire(e) })
}
