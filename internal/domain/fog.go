package domain

// FogState - видимость клетки для одного игрока.
type FogState uint8

const (
	FogHidden   FogState = iota
	FogRevealed          // открыта навсегда
	FogBlown             // временно открыта пламенем
)

// FogOfWar хранит видимость клеток для каждого игрока.
type FogOfWar struct {
	Width  int          `json:"width"`
	Height int          `json:"height"`
	Cells  [][]FogState `json:"cells"`
}

// NewFogOfWar создает туман, закрывающий все, кроме внешней рамки.
func NewFogOfWar(width, height int, playerCount int) *FogOfWar {
	f := &FogOfWar{Width: width, Height: height, Cells: make([][]FogState, playerCount)}
	for i := range f.Cells {
		cells := make([]FogState, width*height)
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				if x == 0 || y == 0 || x == width-1 || y == height-1 {
					cells[y*width+x] = FogRevealed
				}
			}
		}
		f.Cells[i] = cells
	}
	return f
}

// At возвращает состояние клетки для игрока. Вне поля клетка открыта.
func (f *FogOfWar) At(player uint8, x, y int) FogState {
	if int(player) >= len(f.Cells) || x < 0 || y < 0 || x >= f.Width || y >= f.Height {
		return FogRevealed
	}
	return f.Cells[player][y*f.Width+x]
}

// Visible истинно, если игрок видит клетку.
func (f *FogOfWar) Visible(player uint8, x, y int) bool {
	return f.At(player, x, y) != FogHidden
}

// Set меняет состояние клетки. Координаты вне поля игнорируются.
func (f *FogOfWar) Set(player uint8, x, y int, s FogState) {
	if int(player) >= len(f.Cells) || x < 0 || y < 0 || x >= f.Width || y >= f.Height {
		return
	}
	f.Cells[player][y*f.Width+x] = s
}

// Clone возвращает глубокую копию тумана.
func (f *FogOfWar) Clone() *FogOfWar {
	c := &FogOfWar{Width: f.Width, Height: f.Height, Cells: make([][]FogState, len(f.Cells))}
	for i, cells := range f.Cells {
		c.Cells[i] = append([]FogState(nil), cells...)
	}
	return c
}
