package ui

import (
	"github.com/j-jorge/bim-sub001/internal/client"
	"github.com/j-jorge/bim-sub001/internal/domain"
)

// Cue - событие партии, которое стоит озвучить.
type Cue uint8

const (
	CueExplosion Cue = iota + 1
	CuePowerUp
	CueDeath
	CueVictory
	CueDefeat
	CueDraw
)

var cueNames = map[Cue]string{
	CueExplosion: "explosion",
	CuePowerUp:   "power_up",
	CueDeath:     "death",
	CueVictory:   "victory",
	CueDefeat:    "defeat",
	CueDraw:      "draw",
}

func (c Cue) String() string {
	if n, ok := cueNames[c]; ok {
		return n
	}
	return "unknown"
}

// Cues сравнивает два последовательных снимка. После отката предсказанное
// событие может прозвучать повторно; это допустимо.
func Cues(prev, cur *client.Snapshot) []Cue {
	if prev == nil || cur == nil {
		return nil
	}
	var out []Cue

	// 1. Новые взрывы
	pr, cr := prev.World.Registry, cur.World.Registry
	exploded := false
	cr.Flames.Each(func(e domain.Entity, f *domain.Flame) {
		if f.Segment == domain.FlameOrigin && !pr.Flames.Has(e) {
			exploded = true
		}
	})
	if exploded {
		out = append(out, CueExplosion)
	}

	// 2. Локальный игрок
	before, wasAlive := playerState(prev)
	after, isAlive := playerState(cur)
	switch {
	case wasAlive && !isAlive:
		out = append(out, CueDeath)
	case wasAlive && isAlive:
		if after.BombCapacity > before.BombCapacity || after.BombStrength > before.BombStrength {
			out = append(out, CuePowerUp)
		}
	}

	// 3. Конец партии
	if prev.Result.StillRunning() && !cur.Result.StillRunning() {
		switch {
		case cur.Result.IsDraw():
			out = append(out, CueDraw)
		case cur.Result.WinningPlayer() == cur.Local:
			out = append(out, CueVictory)
		default:
			out = append(out, CueDefeat)
		}
	}
	return out
}

func playerState(s *client.Snapshot) (domain.Player, bool) {
	w := s.World
	e, ok := w.FindPlayer(s.Local)
	if !ok || w.Registry.Dead.Has(e) {
		return domain.Player{}, false
	}
	return *w.Registry.Players.Get(e), true
}
