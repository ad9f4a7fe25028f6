// Package ui draws client snapshots on a terminal with tcell and turns
// snapshot differences into sound cues.
package ui

import (
	"github.com/j-jorge/bim-sub001/internal/client"
	"github.com/j-jorge/bim-sub001/internal/domain"
)

// CellKind - что видно в клетке.
type CellKind uint8

const (
	CellEmpty CellKind = iota
	CellFog
	CellWall
	CellSolid
	CellFalling
	CellCrate
	CellPowerUp
	CellBomb
	CellFlame
	CellPlayer
)

// Glyph - содержимое клетки для отрисовки.
type Glyph struct {
	Kind    CellKind
	Player  uint8
	PowerUp domain.PowerUpKind
	Local   bool
}

// Board раскладывает снимок в сетку клеток с точки зрения локального игрока.
// Скрытые туманом клетки и невидимые соперники не показываются.
func Board(s *client.Snapshot) [][]Glyph {
	w := s.World
	a := w.Arena
	r := w.Registry

	board := make([][]Glyph, a.Height())
	for y := range board {
		board[y] = make([]Glyph, a.Width())
		for x := range board[y] {
			board[y][x] = glyphAt(s, r, x, y)
		}
	}
	return board
}

func glyphAt(s *client.Snapshot, r *domain.Registry, x, y int) Glyph {
	a := s.World.Arena

	// 1. Туман и стены
	if s.Fog != nil && !s.Fog.Visible(s.Local, x, y) {
		return Glyph{Kind: CellFog}
	}
	if a.IsStaticWall(x, y) {
		return Glyph{Kind: CellWall}
	}
	if a.IsSolid(x, y) {
		return Glyph{Kind: CellSolid}
	}

	// 2. Игроки не хранятся в арене
	for _, e := range s.World.PlayersAt(x, y) {
		p := r.Players.Get(e)
		if r.Dead.Has(e) || (p.Index != s.Local && r.Invisibility.Has(e)) {
			continue
		}
		return Glyph{Kind: CellPlayer, Player: p.Index, Local: p.Index == s.Local}
	}

	// 3. Остальные сущности по приоритету отрисовки
	best := Glyph{Kind: CellEmpty}
	for _, e := range a.EntitiesAt(x, y) {
		var g Glyph
		switch {
		case r.Flames.Has(e):
			g = Glyph{Kind: CellFlame}
		case r.Bombs.Has(e):
			g = Glyph{Kind: CellBomb, Player: r.Bombs.Get(e).Owner}
		case r.Crates.Has(e):
			g = Glyph{Kind: CellCrate}
		case r.FallingBlocks.Has(e):
			g = Glyph{Kind: CellFalling}
		case r.PowerUps.Has(e):
			g = Glyph{Kind: CellPowerUp, PowerUp: r.PowerUps.Get(e).Kind}
		default:
			continue
		}
		if g.Kind > best.Kind {
			best = g
		}
	}
	return best
}
