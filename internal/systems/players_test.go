package systems

import (
	"testing"

	"github.com/j-jorge/bim-sub001/internal/domain"
)

func TestUpdatePlayers_ShieldAbsorbsOneHit(t *testing.T) {
	w := createTestWorld(7, 7)
	p := addPlayer(w, 0, 1, 1)
	w.Registry.Shields.Set(p, domain.Tag{})

	w.Registry.Burning.Set(p, domain.Tag{})
	UpdatePlayers(w)

	if w.Registry.Dead.Has(p) || w.Registry.Shields.Has(p) || w.Registry.Burning.Has(p) {
		t.Fatal("shield should be consumed and the player alive")
	}

	w.Registry.Burning.Set(p, domain.Tag{})
	UpdatePlayers(w)

	if !w.Registry.Dead.Has(p) {
		t.Error("second hit should kill the player")
	}
}

func TestUpdatePlayers_InvisibilityExpires(t *testing.T) {
	w := createTestWorld(7, 7)
	p := addPlayer(w, 0, 1, 1)
	w.Registry.Invisibility.Set(p, domain.Tag{})
	w.Registry.Timers.Set(p, domain.Timer{Remaining: 2})

	UpdatePlayers(w)
	if !w.Registry.Invisibility.Has(p) {
		t.Fatal("invisibility expired too early")
	}
	UpdatePlayers(w)
	if w.Registry.Invisibility.Has(p) {
		t.Error("invisibility should have expired")
	}
}

func TestCheckGameOver(t *testing.T) {
	tests := []struct {
		name    string
		alive   int
		expired bool
		want    domain.ContestResult
	}{
		{"no player left", 0, false, domain.Draw()},
		{"one survivor", 1, false, domain.WinnerIs(0)},
		{"two players", 2, false, domain.StillRunning()},
		{"timer expired", 2, true, domain.Draw()},
		{"survivor wins even when the timer expired", 1, true, domain.WinnerIs(0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := createTestWorld(7, 7)
			for i := 0; i < tt.alive; i++ {
				addPlayer(w, uint8(i), 1+i, 1)
			}
			if got := CheckGameOver(w, tt.expired); got != tt.want {
				t.Errorf("CheckGameOver() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestKickPlayer(t *testing.T) {
	w := createTestWorld(7, 7)
	addPlayer(w, 0, 1, 1)
	p1 := addPlayer(w, 1, 5, 5)

	if !KickPlayer(w, 1) {
		t.Fatal("KickPlayer() = false")
	}
	if KickPlayer(w, 3) {
		t.Error("kicking a missing player should fail")
	}
	if !w.Registry.Kicked.Has(p1) {
		t.Error("kicked tag missing")
	}

	RemoveDeadObjects(w)
	if got := CheckGameOver(w, false); !got.HasAWinner() || got.WinningPlayer() != 0 {
		t.Errorf("CheckGameOver() = %v, want winner 0", got)
	}
}

func TestPowerUps(t *testing.T) {
	w := createTestWorld(7, 7)
	p := addPlayer(w, 0, 2, 2)

	kinds := []domain.PowerUpKind{domain.PowerUpBomb, domain.PowerUpFlame, domain.PowerUpShield}
	for i, kind := range kinds {
		crate := addCrate(w, 2+i, 3)
		w.Registry.PowerUpSpawners.Set(crate, domain.PowerUpSpawner{Kind: kind})
		w.Registry.Burning.Set(crate, domain.Tag{})
	}

	UpdateBrickWalls(w)
	RemoveDeadObjects(w)

	if w.Registry.Crates.Len() != 0 || w.Registry.PowerUps.Len() != 3 {
		t.Fatalf("crates = %d, power-ups = %d", w.Registry.Crates.Len(), w.Registry.PowerUps.Len())
	}

	for x := 2; x <= 4; x++ {
		w.Registry.Positions.Set(p, domain.Position{X: uint8(x), Y: 3})
		UpdatePowerUps(w)
	}
	RemoveDeadObjects(w)

	player := w.Registry.Players.Get(p)
	if player.BombCapacity != domain.DefaultBombCapacity+1 {
		t.Errorf("BombCapacity = %d", player.BombCapacity)
	}
	if player.BombStrength != domain.DefaultBombStrength+1 {
		t.Errorf("BombStrength = %d", player.BombStrength)
	}
	if !w.Registry.Shields.Has(p) {
		t.Error("shield missing")
	}
	if w.Registry.PowerUps.Len() != 0 {
		t.Errorf("power-ups left: %d", w.Registry.PowerUps.Len())
	}
}

func TestBurningPowerUpIsDestroyed(t *testing.T) {
	w := createTestWorld(7, 7)
	e := w.Spawn(3, 3, false)
	w.Registry.PowerUps.Set(e, domain.PowerUp{Kind: domain.PowerUpFlame})
	w.Registry.Burning.Set(e, domain.Tag{})

	UpdatePowerUps(w)
	RemoveDeadObjects(w)

	if w.Registry.PowerUps.Len() != 0 || !w.Arena.IsEmpty(3, 3) {
		t.Error("burning power-up should be destroyed")
	}
}

func TestFallingBlocks(t *testing.T) {
	w := createTestWorld(5, 5)
	order := FallOrder(w.Arena)
	// Рамка - статические стены, остается кольцо 3x3.
	want := []domain.Position{
		{X: 1, Y: 1}, {X: 2, Y: 1}, {X: 3, Y: 1},
		{X: 3, Y: 2}, {X: 3, Y: 3}, {X: 2, Y: 3},
		{X: 1, Y: 3}, {X: 1, Y: 2}, {X: 2, Y: 2},
	}
	if len(order) != len(want) {
		t.Fatalf("FallOrder() = %v", order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("FallOrder()[%d] = %v, want %v", i, order[i], want[i])
		}
	}

	p := addPlayer(w, 0, 1, 1)
	crate := addCrate(w, 1, 1)
	red := w.Registry.Create()
	w.Registry.Reductions.Set(red, domain.ArenaReduction{})
	w.Registry.Timers.Set(red, domain.Timer{Remaining: 1})

	UpdateArenaReduction(w, order)
	if w.Registry.FallingBlocks.Len() != 1 {
		t.Fatalf("falling blocks = %d, want 1", w.Registry.FallingBlocks.Len())
	}

	for i := uint32(0); i < domain.FallingBlockFallTicks; i++ {
		UpdateFallingBlocks(w)
	}

	if !w.Arena.IsSolid(1, 1) {
		t.Error("landed block should make the cell solid")
	}
	if !w.Registry.Crushed.Has(p) {
		t.Error("player should be crushed")
	}
	if !w.Registry.Dead.Has(crate) {
		t.Error("crate under the block should be destroyed")
	}

	RemoveDeadObjects(w)
	if w.Registry.Players.Len() != 0 {
		t.Error("crushed player should be removed")
	}
}

func TestUpdateFogOfWar(t *testing.T) {
	w := createTestWorld(9, 9)
	addPlayer(w, 0, 2, 2)
	addPlayer(w, 1, 6, 6)
	fog := domain.NewFogOfWar(9, 9, 2)

	UpdateFogOfWar(w, fog)

	if !fog.Visible(0, 3, 3) || fog.Visible(0, 5, 5) {
		t.Error("player 0 should only see around itself")
	}
	if !fog.Visible(1, 5, 5) || fog.Visible(1, 3, 3) {
		t.Error("player 1 should only see around itself")
	}

	addBomb(w, 4, 4, 1, 1)
	UpdateBombs(w)
	UpdateFogOfWar(w, fog)
	if fog.At(0, 4, 4) != domain.FogBlown {
		t.Error("flame should blow the fog in a two-player game")
	}

	for w.Registry.Flames.Len() > 0 {
		UpdateFlames(w)
		RemoveDeadObjects(w)
	}
	UpdateFogOfWar(w, fog)
	if fog.Visible(0, 4, 4) {
		t.Error("blown cell should be hidden again")
	}
}
