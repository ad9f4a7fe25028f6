package systems

import (
	"testing"

	"github.com/j-jorge/bim-sub001/internal/domain"
)

func TestCalculateMove(t *testing.T) {
	// 7x7 с рамкой, стена в (3,2), ящик в (2,3), ограждение справа у (4,4)
	w := createTestWorld(7, 7)
	w.Arena.SetStaticWall(3, 2, domain.EdgeNone)
	crate := addCrate(w, 2, 3)
	w.Arena.SetFences(4, 4, domain.EdgeRight)

	tests := []struct {
		name      string
		x, y      int
		m         domain.Movement
		moved     bool
		wall      bool
		blockedBy domain.Entity
		newX      int
		newY      int
	}{
		{name: "idle", x: 3, y: 3, m: domain.MoveIdle, newX: 3, newY: 3},
		{name: "free cell", x: 3, y: 3, m: domain.MoveDown, moved: true, newX: 3, newY: 4},
		{name: "static wall", x: 3, y: 3, m: domain.MoveUp, wall: true, newX: 3, newY: 2},
		{name: "border", x: 1, y: 1, m: domain.MoveLeft, wall: true, newX: 0, newY: 1},
		{name: "crate", x: 3, y: 3, m: domain.MoveLeft, blockedBy: crate, newX: 2, newY: 3},
		{name: "fence when leaving", x: 4, y: 4, m: domain.MoveRight, wall: true, newX: 5, newY: 4},
		{name: "fence when entering", x: 5, y: 4, m: domain.MoveLeft, wall: true, newX: 4, newY: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := CalculateMove(w, tt.x, tt.y, tt.m)

			if res.HasMoved != tt.moved || res.IsWall != tt.wall || res.BlockedBy != tt.blockedBy {
				t.Errorf("CalculateMove() = %+v", res)
			}
			if res.NewX != tt.newX || res.NewY != tt.newY {
				t.Errorf("target = (%d,%d), want (%d,%d)", res.NewX, res.NewY, tt.newX, tt.newY)
			}
		})
	}
}

func TestApplyPlayerActions_MoveThenDropBomb(t *testing.T) {
	w := createTestWorld(7, 7)
	p := addPlayer(w, 0, 1, 1)
	w.Registry.Actions.Set(p, domain.PlayerAction{Movement: domain.MoveRight, DropBomb: true})

	ApplyPlayerActions(w)

	pos := w.Registry.Positions.Get(p)
	if pos.X != 2 || pos.Y != 1 {
		t.Fatalf("player at (%d,%d), want (2,1)", pos.X, pos.Y)
	}
	if w.Registry.Players.Get(p).Facing != domain.DirectionRight {
		t.Error("player should face right")
	}

	e, ok := w.Arena.EntityAt(2, 1)
	if !ok || !w.Registry.Bombs.Has(e) {
		t.Fatal("expected a bomb at (2,1)")
	}
	if got := w.Registry.Timers.Get(e).Remaining; got != domain.BombTimerTicks {
		t.Errorf("bomb timer = %d, want %d", got, domain.BombTimerTicks)
	}
	if w.Registry.Players.Get(p).BombAvailable != 0 {
		t.Error("bomb should be consumed")
	}

	// Второй бомбы нет: запас исчерпан, игрок стоит на своей бомбе и может уйти.
	w.Registry.Actions.Set(p, domain.PlayerAction{Movement: domain.MoveRight, DropBomb: true})
	ApplyPlayerActions(w)

	if w.Registry.Bombs.Len() != 1 {
		t.Errorf("bombs = %d, want 1", w.Registry.Bombs.Len())
	}
	if pos := w.Registry.Positions.Get(p); pos.X != 3 {
		t.Errorf("player x = %d, want 3", pos.X)
	}

	// Назад на бомбу нельзя.
	w.Registry.Actions.Set(p, domain.PlayerAction{Movement: domain.MoveLeft})
	ApplyPlayerActions(w)
	if pos := w.Registry.Positions.Get(p); pos.X != 3 {
		t.Errorf("player walked onto a bomb: x = %d", pos.X)
	}
}

func TestRefreshBombInventory(t *testing.T) {
	w := createTestWorld(7, 7)
	p := addPlayer(w, 1, 1, 1)
	w.Registry.Players.Get(p).BombCapacity = 3

	b := addBomb(w, 2, 2, 1, 10)
	w.Registry.Bombs.Get(b).Owner = 1
	dead := addBomb(w, 3, 3, 1, 10)
	w.Registry.Bombs.Get(dead).Owner = 1
	w.Registry.Dead.Set(dead, domain.Tag{})

	RefreshBombInventory(w)

	if got := w.Registry.Players.Get(p).BombAvailable; got != 2 {
		t.Errorf("BombAvailable = %d, want 2", got)
	}
}
