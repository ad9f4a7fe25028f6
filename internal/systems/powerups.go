package systems

import (
	"github.com/j-jorge/bim-sub001/internal/domain"
)

// kill помечает сущность мертвой и убирает ее с арены.
func kill(w *domain.World, e domain.Entity) {
	if pos := w.Registry.Positions.Get(e); pos != nil {
		w.Arena.EraseEntity(e, int(pos.X), int(pos.Y))
	}
	w.Registry.Dead.Set(e, domain.Tag{})
}

// UpdateBrickWalls разрушает горящие ящики. Ящик с генератором оставляет бонус.
func UpdateBrickWalls(w *domain.World) {
	r := w.Registry

	r.Crates.Each(func(e domain.Entity, _ *domain.Tag) {
		if !r.Burning.Has(e) || r.Dead.Has(e) {
			return
		}

		pos := *r.Positions.Get(e)
		kill(w, e)

		if spawner := r.PowerUpSpawners.Get(e); spawner != nil {
			kind := spawner.Kind
			p := w.Spawn(int(pos.X), int(pos.Y), false)
			r.PowerUps.Set(p, domain.PowerUp{Kind: kind})
		}
	})
}

// UpdatePowerUps уничтожает горящие бонусы и отдает бонусы игрокам в их клетке.
func UpdatePowerUps(w *domain.World) {
	r := w.Registry

	r.PowerUps.Each(func(e domain.Entity, _ *domain.PowerUp) {
		if r.Burning.Has(e) && !r.Dead.Has(e) {
			kill(w, e)
		}
	})

	r.Players.Each(func(e domain.Entity, player *domain.Player) {
		if r.Dead.Has(e) {
			return
		}
		pos := r.Positions.Get(e)
		if pos == nil {
			return
		}

		// Копия: kill меняет список сущностей клетки.
		occupants := append([]domain.Entity(nil), w.Arena.EntitiesAt(int(pos.X), int(pos.Y))...)
		for _, other := range occupants {
			pu := r.PowerUps.Get(other)
			if pu == nil || r.Dead.Has(other) {
				continue
			}
			applyPowerUp(w, e, player, pu.Kind)
			kill(w, other)
		}
	})
}

func applyPowerUp(w *domain.World, e domain.Entity, player *domain.Player, kind domain.PowerUpKind) {
	r := w.Registry

	switch kind {
	case domain.PowerUpBomb:
		if player.BombCapacity < domain.MaxBombCapacity {
			player.BombCapacity++
			player.BombAvailable++
		}
	case domain.PowerUpFlame:
		if player.BombStrength < domain.MaxBombStrength {
			player.BombStrength++
		}
	case domain.PowerUpShield:
		r.Shields.Set(e, domain.Tag{})
	case domain.PowerUpInvisibility:
		r.Invisibility.Set(e, domain.Tag{})
		r.Timers.Set(e, domain.Timer{Remaining: domain.InvisibilityTicks})
	}
}
