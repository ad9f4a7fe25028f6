package systems

import (
	"github.com/j-jorge/bim-sub001/internal/domain"
)

// UpdatePlayers убивает горящих игроков. Щит поглощает один удар.
// Здесь же истекает невидимость.
func UpdatePlayers(w *domain.World) {
	r := w.Registry

	r.Players.Each(func(e domain.Entity, _ *domain.Player) {
		if r.Burning.Has(e) && !r.Dead.Has(e) {
			if r.Shields.Has(e) {
				r.Shields.Remove(e)
				r.Burning.Remove(e)
			} else {
				r.Dead.Set(e, domain.Tag{})
			}
		}

		if r.Invisibility.Has(e) {
			if t := r.Timers.Get(e); t == nil || t.Tick() {
				r.Invisibility.Remove(e)
				r.Timers.Remove(e)
			}
		}
	})
}

// RemoveDeadObjects удаляет из реестра и арены сущности с тегами dead и crushed.
func RemoveDeadObjects(w *domain.World) {
	r := w.Registry

	for _, e := range r.Dead.Entities() {
		w.Remove(e)
	}
	for _, e := range r.Crushed.Entities() {
		w.Remove(e)
	}
}

// AlivePlayers возвращает индексы оставшихся игроков в порядке реестра.
func AlivePlayers(w *domain.World) []uint8 {
	var out []uint8
	w.Registry.Players.Each(func(e domain.Entity, p *domain.Player) {
		if !w.Registry.Dead.Has(e) && !w.Registry.Crushed.Has(e) {
			out = append(out, p.Index)
		}
	})
	return out
}

// CheckGameOver: ни одного игрока - ничья, один - победитель,
// иначе партия идет, пока не истек общий таймер.
func CheckGameOver(w *domain.World, timerExpired bool) domain.ContestResult {
	alive := AlivePlayers(w)

	switch {
	case len(alive) == 0:
		return domain.Draw()
	case len(alive) == 1:
		return domain.WinnerIs(alive[0])
	case timerExpired:
		return domain.Draw()
	}
	return domain.StillRunning()
}

// KickPlayer исключает игрока: он будет удален в конце тика.
func KickPlayer(w *domain.World, index uint8) bool {
	e, ok := w.FindPlayer(index)
	if !ok {
		return false
	}
	w.Registry.Kicked.Set(e, domain.Tag{})
	w.Registry.Dead.Set(e, domain.Tag{})
	return true
}
