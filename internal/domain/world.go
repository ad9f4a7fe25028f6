package domain

import "fmt"

// Registry владеет всеми сущностями партии: по одному Store на тип компонента.
// Системы - обычные функции над подмножеством хранилищ.
type Registry struct {
	NextID Entity `json:"next"`

	Players         *Store[Player]         `json:"players"`
	Positions       *Store[Position]       `json:"positions"`
	Actions         *Store[PlayerAction]   `json:"actions"`
	Bombs           *Store[Bomb]           `json:"bombs"`
	Flames          *Store[Flame]          `json:"flames"`
	FlameBlockers   *Store[Tag]            `json:"flameBlockers"`
	Crates          *Store[Tag]            `json:"crates"`
	PowerUps        *Store[PowerUp]        `json:"powerUps"`
	PowerUpSpawners *Store[PowerUpSpawner] `json:"spawners"`
	Timers          *Store[Timer]          `json:"timers"`
	FallingBlocks   *Store[Tag]            `json:"fallingBlocks"`
	Reductions      *Store[ArenaReduction] `json:"reductions"`

	Burning      *Store[Tag] `json:"burning"`
	Dead         *Store[Tag] `json:"dead"`
	Crushed      *Store[Tag] `json:"crushed"`
	Kicked       *Store[Tag] `json:"kicked"`
	Shields      *Store[Tag] `json:"shields"`
	Invisibility *Store[Tag] `json:"invisibility"`
}

// NewRegistry создает пустой реестр.
func NewRegistry() *Registry {
	return &Registry{
		NextID:          NilEntity + 1,
		Players:         NewStore[Player](),
		Positions:       NewStore[Position](),
		Actions:         NewStore[PlayerAction](),
		Bombs:           NewStore[Bomb](),
		Flames:          NewStore[Flame](),
		FlameBlockers:   NewStore[Tag](),
		Crates:          NewStore[Tag](),
		PowerUps:        NewStore[PowerUp](),
		PowerUpSpawners: NewStore[PowerUpSpawner](),
		Timers:          NewStore[Timer](),
		FallingBlocks:   NewStore[Tag](),
		Reductions:      NewStore[ArenaReduction](),
		Burning:         NewStore[Tag](),
		Dead:            NewStore[Tag](),
		Crushed:         NewStore[Tag](),
		Kicked:          NewStore[Tag](),
		Shields:         NewStore[Tag](),
		Invisibility:    NewStore[Tag](),
	}
}

// Create выдает новый идентификатор.
func (r *Registry) Create() Entity {
	e := r.NextID
	r.NextID++
	return e
}

type remover interface {
	Remove(Entity)
}

func (r *Registry) stores() []remover {
	return []remover{
		r.Players, r.Positions, r.Actions, r.Bombs, r.Flames, r.FlameBlockers,
		r.Crates, r.PowerUps, r.PowerUpSpawners, r.Timers, r.FallingBlocks,
		r.Reductions, r.Burning, r.Dead, r.Crushed, r.Kicked, r.Shields,
		r.Invisibility,
	}
}

// Destroy удаляет все компоненты сущности.
func (r *Registry) Destroy(e Entity) {
	for _, s := range r.stores() {
		s.Remove(e)
	}
}

// Clone возвращает независимую копию реестра.
func (r *Registry) Clone() *Registry {
	return &Registry{
		NextID:          r.NextID,
		Players:         r.Players.Clone(),
		Positions:       r.Positions.Clone(),
		Actions:         r.Actions.Clone(),
		Bombs:           r.Bombs.Clone(),
		Flames:          r.Flames.Clone(),
		FlameBlockers:   r.FlameBlockers.Clone(),
		Crates:          r.Crates.Clone(),
		PowerUps:        r.PowerUps.Clone(),
		PowerUpSpawners: r.PowerUpSpawners.Clone(),
		Timers:          r.Timers.Clone(),
		FallingBlocks:   r.FallingBlocks.Clone(),
		Reductions:      r.Reductions.Clone(),
		Burning:         r.Burning.Clone(),
		Dead:            r.Dead.Clone(),
		Crushed:         r.Crushed.Clone(),
		Kicked:          r.Kicked.Clone(),
		Shields:         r.Shields.Clone(),
		Invisibility:    r.Invisibility.Clone(),
	}
}

// Validate проверяет, что архив восстановил все хранилища.
func (r *Registry) Validate() error {
	if r.Players == nil || r.Positions == nil || r.Actions == nil || r.Bombs == nil ||
		r.Flames == nil || r.FlameBlockers == nil || r.Crates == nil || r.PowerUps == nil ||
		r.PowerUpSpawners == nil || r.Timers == nil || r.FallingBlocks == nil ||
		r.Reductions == nil || r.Burning == nil || r.Dead == nil || r.Crushed == nil ||
		r.Kicked == nil || r.Shields == nil || r.Invisibility == nil {
		return fmt.Errorf("registry: incomplete archive")
	}
	return nil
}

// World - реестр вместе с ареной. Единственный владелец состояния партии.
type World struct {
	Registry *Registry `json:"registry"`
	Arena    *Arena    `json:"arena"`
}

// NewWorld создает пустой мир заданного размера.
func NewWorld(width, height int) *World {
	return &World{
		Registry: NewRegistry(),
		Arena:    NewArena(width, height),
	}
}

// Clone возвращает глубокую копию мира.
func (w *World) Clone() *World {
	return &World{Registry: w.Registry.Clone(), Arena: w.Arena.Clone()}
}

// Spawn создает сущность в клетке и регистрирует ее на арене.
// Блокирующая сущность не может появиться в твердой клетке.
func (w *World) Spawn(x, y int, blocking bool) Entity {
	if blocking && w.Arena.IsSolid(x, y) {
		panic(fmt.Sprintf("world: blocking entity in solid cell (%d, %d)", x, y))
	}
	e := w.Registry.Create()
	w.Registry.Positions.Set(e, Position{X: uint8(x), Y: uint8(y)})
	w.Arena.PutEntity(e, x, y)
	return e
}

// Remove удаляет сущность из арены и реестра.
func (w *World) Remove(e Entity) {
	if p := w.Registry.Positions.Get(e); p != nil {
		w.Arena.EraseEntity(e, int(p.X), int(p.Y))
	}
	w.Registry.Destroy(e)
}

// PlayersAt возвращает игроков в клетке. Игроки не хранятся в арене:
// они "неглубокие" и не останавливают пламя.
func (w *World) PlayersAt(x, y int) []Entity {
	var out []Entity
	for _, e := range w.Registry.Players.entities {
		p := w.Registry.Positions.Get(e)
		if p != nil && int(p.X) == x && int(p.Y) == y {
			out = append(out, e)
		}
	}
	return out
}

// FindPlayer ищет сущность игрока по индексу.
func (w *World) FindPlayer(index uint8) (Entity, bool) {
	for i, e := range w.Registry.Players.entities {
		if w.Registry.Players.data[i].Index == index {
			return e, true
		}
	}
	return NilEntity, false
}

// IsBlocking истинно для сущностей, через которые игрок не проходит.
func (w *World) IsBlocking(e Entity) bool {
	r := w.Registry
	return r.Bombs.Has(e) || r.Crates.Has(e) || r.FallingBlocks.Has(e)
}

// StopsFlame истинно для "глубоких" сущностей: пламя помечает их горящими и
// дальше не идет.
func (w *World) StopsFlame(e Entity) bool {
	r := w.Registry
	return r.Bombs.Has(e) || r.Crates.Has(e) || r.PowerUps.Has(e) || r.FlameBlockers.Has(e)
}
