package domain

import (
	"encoding/json"
	"fmt"
)

// CellEdge - битовая маска ограждений клетки.
type CellEdge uint8

const (
	EdgeNone  CellEdge = 0
	EdgeUp    CellEdge = 1 << 0
	EdgeDown  CellEdge = 1 << 1
	EdgeLeft  CellEdge = 1 << 2
	EdgeRight CellEdge = 1 << 3
)

type cell struct {
	StaticWall bool     `json:"w,omitempty"`
	Solid      bool     `json:"s,omitempty"`
	Fences     CellEdge `json:"f,omitempty"`
	Entities   []Entity `json:"e,omitempty"`
}

// Arena - сетка клеток партии. Клетка знает, стена ли она, твердая ли,
// какие у нее ограждения, и хранит идентификаторы занимающих ее сущностей.
// Арена не владеет сущностями: время жизни управляется реестром.
//
// Координаты вне поля - ошибка программиста, методы паникуют.
type Arena struct {
	width  int
	height int
	cells  []cell
}

// NewArena создает пустую арену. Размеры от 1 до 255.
func NewArena(width, height int) *Arena {
	if width <= 0 || height <= 0 || width > 255 || height > 255 {
		panic(fmt.Sprintf("arena: invalid size %dx%d", width, height))
	}
	return &Arena{
		width:  width,
		height: height,
		cells:  make([]cell, width*height),
	}
}

func (a *Arena) Width() int  { return a.width }
func (a *Arena) Height() int { return a.height }

// Contains проверяет, что координаты внутри поля.
func (a *Arena) Contains(x, y int) bool {
	return x >= 0 && x < a.width && y >= 0 && y < a.height
}

func (a *Arena) at(x, y int) *cell {
	if !a.Contains(x, y) {
		panic(fmt.Sprintf("arena: (%d, %d) out of %dx%d", x, y, a.width, a.height))
	}
	return &a.cells[y*a.width+x]
}

func (a *Arena) IsStaticWall(x, y int) bool { return a.at(x, y).StaticWall }

// IsSolid истинно для статических стен и клеток, занятых упавшим блоком.
func (a *Arena) IsSolid(x, y int) bool { return a.at(x, y).Solid }

func (a *Arena) Fences(x, y int) CellEdge { return a.at(x, y).Fences }

// SetStaticWall делает клетку неразрушаемой стеной. Стена всегда твердая.
func (a *Arena) SetStaticWall(x, y int, fences CellEdge) {
	c := a.at(x, y)
	c.StaticWall = true
	c.Solid = true
	c.Fences = fences
}

// SetSolid делает клетку твердой (обрушение арены).
func (a *Arena) SetSolid(x, y int) {
	a.at(x, y).Solid = true
}

// SetFences задает ограждения клетки.
func (a *Arena) SetFences(x, y int, fences CellEdge) {
	a.at(x, y).Fences = fences
}

// EntitiesAt возвращает сущности клетки. Срез принадлежит арене.
func (a *Arena) EntitiesAt(x, y int) []Entity {
	return a.at(x, y).Entities
}

// EntityAt возвращает первую сущность клетки.
func (a *Arena) EntityAt(x, y int) (Entity, bool) {
	es := a.at(x, y).Entities
	if len(es) == 0 {
		return NilEntity, false
	}
	return es[0], true
}

// IsEmpty истинно, если в клетке нет ни одной сущности.
func (a *Arena) IsEmpty(x, y int) bool {
	return len(a.at(x, y).Entities) == 0
}

// PutEntity добавляет сущность в клетку. Повторное добавление - no-op.
func (a *Arena) PutEntity(e Entity, x, y int) {
	c := a.at(x, y)
	for _, other := range c.Entities {
		if other == e {
			return
		}
	}
	c.Entities = append(c.Entities, e)
}

// EraseEntity убирает сущность из клетки. Отсутствующая сущность - no-op.
// Порядок оставшихся сохраняется: от него зависит EntityAt.
func (a *Arena) EraseEntity(e Entity, x, y int) {
	c := a.at(x, y)
	for i, other := range c.Entities {
		if other == e {
			c.Entities = append(c.Entities[:i], c.Entities[i+1:]...)
			if len(c.Entities) == 0 {
				c.Entities = nil
			}
			return
		}
	}
}

// Clone возвращает глубокую копию арены.
func (a *Arena) Clone() *Arena {
	c := &Arena{width: a.width, height: a.height, cells: make([]cell, len(a.cells))}
	for i, src := range a.cells {
		c.cells[i] = src
		if src.Entities != nil {
			c.cells[i].Entities = append([]Entity(nil), src.Entities...)
		}
	}
	return c
}

type arenaJSON struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Cells  []cell `json:"cells"`
}

func (a *Arena) MarshalJSON() ([]byte, error) {
	return json.Marshal(arenaJSON{Width: a.width, Height: a.height, Cells: a.cells})
}

func (a *Arena) UnmarshalJSON(b []byte) error {
	var raw arenaJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if raw.Width <= 0 || raw.Height <= 0 || raw.Width > 255 || raw.Height > 255 ||
		len(raw.Cells) != raw.Width*raw.Height {
		return fmt.Errorf("arena: inconsistent archive %dx%d with %d cells", raw.Width, raw.Height, len(raw.Cells))
	}
	a.width, a.height, a.cells = raw.Width, raw.Height, raw.Cells
	return nil
}
