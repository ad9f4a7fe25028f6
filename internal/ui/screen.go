package ui

import (
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/j-jorge/bim-sub001/internal/client"
	"github.com/j-jorge/bim-sub001/internal/domain"
)

var playerColors = [domain.MaxPlayerCount]tcell.Color{
	tcell.ColorWhite,
	tcell.ColorAqua,
	tcell.ColorFuchsia,
	tcell.ColorLime,
}

var powerUpRunes = map[domain.PowerUpKind]rune{
	domain.PowerUpBomb:         'B',
	domain.PowerUpFlame:        'F',
	domain.PowerUpShield:       'S',
	domain.PowerUpInvisibility: 'I',
}

// Renderer рисует снимки партии на экране tcell. Каждая клетка занимает
// две колонки терминала.
type Renderer struct {
	screen tcell.Screen
}

func NewRenderer(screen tcell.Screen) *Renderer {
	return &Renderer{screen: screen}
}

// cell возвращает два символа и стиль клетки.
func cell(g Glyph) ([2]rune, tcell.Style) {
	st := tcell.StyleDefault
	switch g.Kind {
	case CellFog:
		return [2]rune{'░', '░'}, st.Foreground(tcell.ColorDarkSlateGray)
	case CellWall:
		return [2]rune{'█', '█'}, st.Foreground(tcell.ColorGray)
	case CellSolid, CellFalling:
		return [2]rune{'▓', '▓'}, st.Foreground(tcell.ColorDarkGray)
	case CellCrate:
		return [2]rune{'▒', '▒'}, st.Foreground(tcell.ColorOlive)
	case CellPowerUp:
		return [2]rune{'[', powerUpRunes[g.PowerUp]}, st.Foreground(tcell.ColorGreen).Bold(true)
	case CellBomb:
		return [2]rune{'(', ')'}, st.Foreground(playerColors[g.Player%domain.MaxPlayerCount])
	case CellFlame:
		return [2]rune{'*', '*'}, st.Foreground(tcell.ColorRed).Bold(true)
	case CellPlayer:
		st = st.Foreground(playerColors[g.Player%domain.MaxPlayerCount]).Bold(true)
		if g.Local {
			st = st.Reverse(true)
		}
		return [2]rune{'P', rune('1' + g.Player)}, st
	}
	return [2]rune{' ', ' '}, st
}

// Draw рисует поле и строку состояния.
func (r *Renderer) Draw(s *client.Snapshot, status string) {
	r.screen.Clear()
	if s == nil {
		r.text(0, 0, status, tcell.StyleDefault)
		r.screen.Show()
		return
	}

	for y, row := range Board(s) {
		for x, g := range row {
			runes, st := cell(g)
			r.screen.SetContent(2*x, y, runes[0], nil, st)
			r.screen.SetContent(2*x+1, y, runes[1], nil, st)
		}
	}

	h := s.World.Arena.Height()
	r.text(0, h+1, HUD(s), tcell.StyleDefault)
	r.text(0, h+2, status, tcell.StyleDefault.Foreground(tcell.ColorYellow))
	r.screen.Show()
}

func (r *Renderer) text(x, y int, s string, st tcell.Style) {
	for _, c := range s {
		r.screen.SetContent(x, y, c, nil, st)
		x++
	}
}

// HUD возвращает строку с таймером и запасами локального игрока.
func HUD(s *client.Snapshot) string {
	left := time.Duration(s.Remaining) * domain.TickInterval
	line := fmt.Sprintf("P%d  %d:%02d", s.Local+1, int(left.Minutes()), int(left.Seconds())%60)

	w := s.World
	if e, ok := w.FindPlayer(s.Local); ok && !w.Registry.Dead.Has(e) {
		p := w.Registry.Players.Get(e)
		line += fmt.Sprintf("  bombs %d/%d  flame %d", p.BombAvailable, p.BombCapacity, p.BombStrength)
		if w.Registry.Shields.Has(e) {
			line += "  shield"
		}
		if w.Registry.Invisibility.Has(e) {
			line += "  invisible"
		}
	} else {
		line += "  out"
	}
	return line
}
