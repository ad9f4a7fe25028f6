package domain

import "strings"

// Movement - перемещение игрока за тик.
type Movement uint8

const (
	MoveIdle Movement = iota
	MoveUp
	MoveDown
	MoveLeft
	MoveRight
)

// MaxMovement - наибольшее допустимое значение в 3 битах полубайта действия.
const MaxMovement = MoveRight

// Маппинг для разбора ввода String -> Domain
var movementStringToCmd = map[string]Movement{
	"IDLE":  MoveIdle,
	"UP":    MoveUp,
	"DOWN":  MoveDown,
	"LEFT":  MoveLeft,
	"RIGHT": MoveRight,
}

// Маппинг для логов Domain -> String
var movementCmdToString = map[Movement]string{
	MoveIdle:  "IDLE",
	MoveUp:    "UP",
	MoveDown:  "DOWN",
	MoveLeft:  "LEFT",
	MoveRight: "RIGHT",
}

// ParseMovement конвертирует строку в Movement. Неизвестная строка - MoveIdle, false.
func ParseMovement(s string) (Movement, bool) {
	m, ok := movementStringToCmd[strings.ToUpper(s)]
	return m, ok
}

// String реализует интерфейс Stringer (для fmt.Printf)
func (m Movement) String() string {
	if val, ok := movementCmdToString[m]; ok {
		return val
	}
	return "UNKNOWN"
}

// Delta возвращает смещение клетки для перемещения.
func (m Movement) Delta() (dx, dy int) {
	switch m {
	case MoveUp:
		return 0, -1
	case MoveDown:
		return 0, 1
	case MoveLeft:
		return -1, 0
	case MoveRight:
		return 1, 0
	}
	return 0, 0
}

// PlayerAction - единственный недетерминированный вход симуляции:
// перемещение и признак сброса бомбы, на одного игрока за тик.
type PlayerAction struct {
	Movement Movement `json:"movement"`
	DropBomb bool     `json:"bomb,omitempty"`
}

// IdleAction - действие по умолчанию.
var IdleAction = PlayerAction{}

// KickNibble - зарезервированное значение полубайта: событие исключения игрока.
const KickNibble byte = 0xf

// Nibble упаковывает действие: 3 бита перемещения, затем 1 бит бомбы.
func (a PlayerAction) Nibble() byte {
	b := byte(a.Movement&0x7) << 1
	if a.DropBomb {
		b |= 1
	}
	return b
}

// ActionFromNibble распаковывает действие. Возвращает false для недопустимого
// перемещения и для зарезервированного значения KickNibble.
func ActionFromNibble(n byte) (PlayerAction, bool) {
	n &= 0xf
	if n == KickNibble {
		return PlayerAction{}, false
	}
	m := Movement(n >> 1)
	if m > MaxMovement {
		return PlayerAction{}, false
	}
	return PlayerAction{Movement: m, DropBomb: n&1 != 0}, true
}

// PackActions упаковывает действия попарно в байты: четный индекс в младшем
// полубайте, нечетный в старшем. Для нечетного количества старший полубайт
// последнего байта равен нулю.
func PackActions(dst []byte, actions []PlayerAction) []byte {
	for i := 0; i < len(actions); i += 2 {
		b := actions[i].Nibble()
		if i+1 < len(actions) {
			b |= actions[i+1].Nibble() << 4
		}
		dst = append(dst, b)
	}
	return dst
}

// PackedSize возвращает число байт для n упакованных действий.
func PackedSize(n int) int {
	return (n + 1) / 2
}

// UnpackActions распаковывает n действий из src.
func UnpackActions(src []byte, n int) ([]PlayerAction, bool) {
	if len(src) < PackedSize(n) {
		return nil, false
	}
	out := make([]PlayerAction, n)
	for i := 0; i < n; i++ {
		nib := src[i/2]
		if i%2 == 1 {
			nib >>= 4
		}
		a, ok := ActionFromNibble(nib)
		if !ok {
			return nil, false
		}
		out[i] = a
	}
	return out, true
}

func (a PlayerAction) String() string {
	if a.DropBomb {
		return a.Movement.String() + "+BOMB"
	}
	return a.Movement.String()
}
