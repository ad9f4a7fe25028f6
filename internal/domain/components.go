package domain

// Компоненты сущностей. Все поля экспортируются: архив партии
// сериализует реестр целиком.

// Tag - компонент без данных (burning, dead, crushed, ...).
type Tag struct{}

// Direction - направление взгляда игрока и направление языка пламени.
type Direction uint8

const (
	DirectionUp Direction = iota
	DirectionDown
	DirectionLeft
	DirectionRight
)

var directionNames = map[Direction]string{
	DirectionUp:    "up",
	DirectionDown:  "down",
	DirectionLeft:  "left",
	DirectionRight: "right",
}

func (d Direction) String() string {
	if s, ok := directionNames[d]; ok {
		return s
	}
	return "unknown"
}

// Player - игрок с индексом 0..3 и запасом бомб.
type Player struct {
	Index         uint8     `json:"index"`
	BombCapacity  uint8     `json:"capacity"`
	BombAvailable uint8     `json:"available"`
	BombStrength  uint8     `json:"strength"`
	Facing        Direction `json:"facing"`
}

// Position - клетка, в которой находится сущность.
type Position struct {
	X uint8 `json:"x"`
	Y uint8 `json:"y"`
}

// Bomb - бомба. Обратный отсчет хранится в компоненте Timer.
type Bomb struct {
	Strength uint8 `json:"strength"`
	Owner    uint8 `json:"owner"`
}

// FlameSegment - часть взрыва: центр, промежуточный участок или кончик.
type FlameSegment uint8

const (
	FlameOrigin FlameSegment = iota
	FlameArm
	FlameTip
)

// Flame - клетка пламени. Время жизни в Timer.
type Flame struct {
	Direction Direction    `json:"direction"`
	Segment   FlameSegment `json:"segment"`
}

// PowerUpKind - вид бонуса.
type PowerUpKind uint8

const (
	PowerUpBomb PowerUpKind = iota
	PowerUpFlame
	PowerUpShield
	PowerUpInvisibility
)

var powerUpNames = map[PowerUpKind]string{
	PowerUpBomb:         "bomb",
	PowerUpFlame:        "flame",
	PowerUpShield:       "shield",
	PowerUpInvisibility: "invisibility",
}

func (k PowerUpKind) String() string {
	if s, ok := powerUpNames[k]; ok {
		return s
	}
	return "unknown"
}

// PowerUp - бонус, лежащий на поле.
type PowerUp struct {
	Kind PowerUpKind `json:"kind"`
}

// PowerUpSpawner помечает ящик, из которого выпадет бонус.
type PowerUpSpawner struct {
	Kind PowerUpKind `json:"kind"`
}

// Timer - универсальный обратный отсчет в тиках.
type Timer struct {
	Remaining uint32 `json:"remaining"`
}

// Tick уменьшает таймер и сообщает, истек ли он.
func (t *Timer) Tick() bool {
	if t.Remaining > 0 {
		t.Remaining--
	}
	return t.Remaining == 0
}

// ArenaReduction - состояние обрушения арены: индекс следующей клетки в порядке падения.
type ArenaReduction struct {
	NextFall int `json:"next"`
}
