package domain

import (
	"encoding/json"
	"testing"
	"time"
)

func TestArena_PutEraseEntity(t *testing.T) {
	arena := NewArena(5, 4)

	arena.PutEntity(Entity(1), 2, 3)
	arena.PutEntity(Entity(2), 2, 3)
	arena.PutEntity(Entity(1), 2, 3)

	if got := len(arena.EntitiesAt(2, 3)); got != 2 {
		t.Fatalf("EntitiesAt() has %d entities, want 2", got)
	}
	if e, ok := arena.EntityAt(2, 3); !ok || e != Entity(1) {
		t.Errorf("EntityAt() = %v, %v; want [1], true", e, ok)
	}

	arena.EraseEntity(Entity(3), 2, 3) // отсутствующая сущность
	arena.EraseEntity(Entity(1), 2, 3)

	if e, ok := arena.EntityAt(2, 3); !ok || e != Entity(2) {
		t.Errorf("EntityAt() after erase = %v, %v; want [2], true", e, ok)
	}

	arena.EraseEntity(Entity(2), 2, 3)
	if !arena.IsEmpty(2, 3) {
		t.Error("cell should be empty")
	}
}

func TestArena_StaticWallIsSolid(t *testing.T) {
	arena := NewArena(3, 3)
	arena.SetStaticWall(1, 1, EdgeUp|EdgeLeft)

	if !arena.IsStaticWall(1, 1) || !arena.IsSolid(1, 1) {
		t.Error("static wall must be solid")
	}
	if arena.Fences(1, 1) != EdgeUp|EdgeLeft {
		t.Errorf("Fences() = %b", arena.Fences(1, 1))
	}

	arena.SetSolid(0, 0)
	if arena.IsStaticWall(0, 0) || !arena.IsSolid(0, 0) {
		t.Error("SetSolid must not create a static wall")
	}
}

func TestArena_OutOfRangePanics(t *testing.T) {
	tests := []struct {
		name string
		x, y int
	}{
		{"negative x", -1, 0},
		{"x too large", 3, 0},
		{"y too large", 0, 3},
	}

	arena := NewArena(3, 3)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Errorf("IsSolid(%d, %d) did not panic", tt.x, tt.y)
				}
			}()
			arena.IsSolid(tt.x, tt.y)
		})
	}
}

func TestStore_SwapRemove(t *testing.T) {
	s := NewStore[Player]()
	s.Set(1, Player{Index: 0})
	s.Set(2, Player{Index: 1})
	s.Set(3, Player{Index: 2})

	s.Remove(1)
	s.Remove(42)

	if s.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", s.Len())
	}
	if got := s.Entities(); got[0] != 3 || got[1] != 2 {
		t.Errorf("Entities() = %v, want [3 2]", got)
	}
	if p := s.Get(3); p == nil || p.Index != 2 {
		t.Errorf("Get(3) = %+v", p)
	}
	if s.Has(1) {
		t.Error("entity 1 should be removed")
	}
}

func TestStore_EachSkipsRemoved(t *testing.T) {
	s := NewStore[Tag]()
	s.Set(1, Tag{})
	s.Set(2, Tag{})
	s.Set(3, Tag{})

	var visited []Entity
	s.Each(func(e Entity, _ *Tag) {
		visited = append(visited, e)
		if e == 1 {
			s.Remove(3)
		}
	})

	if len(visited) != 2 || visited[0] != 1 || visited[1] != 2 {
		t.Errorf("visited = %v, want [1 2]", visited)
	}
}

func TestWorld_JSONRoundTrip(t *testing.T) {
	w := NewWorld(7, 5)
	w.Arena.SetStaticWall(0, 0, EdgeNone)
	crate := w.Spawn(2, 2, true)
	w.Registry.Crates.Set(crate, Tag{})
	w.Registry.PowerUpSpawners.Set(crate, PowerUpSpawner{Kind: PowerUpFlame})

	b, err := json.Marshal(w)
	if err != nil {
		t.Fatal(err)
	}

	var back World
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatal(err)
	}
	if err := back.Registry.Validate(); err != nil {
		t.Fatal(err)
	}

	if !back.Arena.IsStaticWall(0, 0) {
		t.Error("static wall lost")
	}
	if e, ok := back.Arena.EntityAt(2, 2); !ok || e != crate {
		t.Errorf("EntityAt(2, 2) = %v, %v", e, ok)
	}
	if s := back.Registry.PowerUpSpawners.Get(crate); s == nil || s.Kind != PowerUpFlame {
		t.Errorf("spawner = %+v", s)
	}
	if next := back.Registry.Create(); next != crate+1 {
		t.Errorf("Create() after restore = %v, want %v", next, crate+1)
	}
}

func TestWorld_SpawnBlockingInSolidCellPanics(t *testing.T) {
	w := NewWorld(3, 3)
	w.Arena.SetSolid(1, 1)

	defer func() {
		if recover() == nil {
			t.Error("Spawn() did not panic")
		}
	}()
	w.Spawn(1, 1, true)
}

func TestTickCounter(t *testing.T) {
	var c TickCounter

	tests := []struct {
		elapsed time.Duration
		want    int
	}{
		{10 * time.Millisecond, 0},
		{10 * time.Millisecond, 1},
		{45 * time.Millisecond, 2},
		{15 * time.Millisecond, 1},
		{-time.Second, 0},
	}

	for i, tt := range tests {
		if got := c.Add(tt.elapsed); got != tt.want {
			t.Errorf("step %d: Add(%v) = %d, want %d", i, tt.elapsed, got, tt.want)
		}
	}
}

func TestContestResult(t *testing.T) {
	if r := StillRunning(); !r.StillRunning() || r.HasAWinner() || r.IsDraw() {
		t.Errorf("StillRunning() = %+v", r)
	}
	if r := WinnerIs(2); !r.HasAWinner() || r.WinningPlayer() != 2 {
		t.Errorf("WinnerIs(2) = %+v", r)
	}
	if r := Draw(); !r.IsDraw() || r.StillRunning() {
		t.Errorf("Draw() = %+v", r)
	}
}
