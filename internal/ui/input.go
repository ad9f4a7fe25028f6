package ui

import (
	"github.com/gdamore/tcell/v2"
	"github.com/j-jorge/bim-sub001/internal/domain"
)

// Command - действие, полученное с клавиатуры.
type Command struct {
	// Move истинно, если клавиша задает новое перемещение.
	Move     bool
	Movement domain.Movement
	Bomb     bool
	Quit     bool
}

// Терминал не сообщает об отпускании клавиш, поэтому перемещение
// сохраняется до следующей клавиши направления или остановки.
var keyMovements = map[tcell.Key]domain.Movement{
	tcell.KeyUp:    domain.MoveUp,
	tcell.KeyDown:  domain.MoveDown,
	tcell.KeyLeft:  domain.MoveLeft,
	tcell.KeyRight: domain.MoveRight,
	tcell.KeyEnter: domain.MoveIdle,
}

var runeMovements = map[rune]domain.Movement{
	'w': domain.MoveUp,
	's': domain.MoveDown,
	'a': domain.MoveLeft,
	'd': domain.MoveRight,
	'x': domain.MoveIdle,
}

// Translate переводит нажатие клавиши в команду.
func Translate(ev *tcell.EventKey) (Command, bool) {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return Command{Quit: true}, true
	case tcell.KeyRune:
		switch r := ev.Rune(); r {
		case ' ':
			return Command{Bomb: true}, true
		case 'q':
			return Command{Quit: true}, true
		default:
			if m, ok := runeMovements[r]; ok {
				return Command{Move: true, Movement: m}, true
			}
		}
	default:
		if m, ok := keyMovements[ev.Key()]; ok {
			return Command{Move: true, Movement: m}, true
		}
	}
	return Command{}, false
}
