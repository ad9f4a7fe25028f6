package systems

import (
	"testing"

	"github.com/j-jorge/bim-sub001/internal/domain"
)

func TestUpdateBombs_FlameReach(t *testing.T) {
	// 9x9, бомба силы 2 в (4,4); стена в (4,3) сверху, ящик в (5,4) справа.
	w := createTestWorld(9, 9)
	w.Arena.SetStaticWall(4, 3, domain.EdgeNone)
	crate := addCrate(w, 5, 4)
	addBomb(w, 4, 4, 2, 1)

	UpdateBombs(w)

	tests := []struct {
		name  string
		x, y  int
		flame bool
	}{
		{"origin", 4, 4, true},
		{"left arm", 3, 4, true},
		{"left tip", 2, 4, true},
		{"beyond strength", 1, 4, false},
		{"down arm", 4, 5, true},
		{"down tip", 4, 6, true},
		{"wall above", 4, 3, false},
		{"crate stops the flame", 5, 4, false},
		{"behind the crate", 6, 4, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := flameAt(w, tt.x, tt.y); got != tt.flame {
				t.Errorf("flame at (%d,%d) = %v, want %v", tt.x, tt.y, got, tt.flame)
			}
		})
	}

	if !w.Registry.Burning.Has(crate) {
		t.Error("crate should be burning")
	}

	var tip *domain.Flame
	for _, e := range w.Arena.EntitiesAt(2, 4) {
		tip = w.Registry.Flames.Get(e)
	}
	if tip == nil || tip.Segment != domain.FlameTip || tip.Direction != domain.DirectionLeft {
		t.Errorf("flame at (2,4) = %+v, want left tip", tip)
	}
}

func TestUpdateBombs_PlayersDoNotStopFlames(t *testing.T) {
	w := createTestWorld(9, 9)
	player := addPlayer(w, 0, 5, 4)
	addBomb(w, 4, 4, 3, 1)

	UpdateBombs(w)
	UpdateFlames(w)

	if !flameAt(w, 6, 4) {
		t.Error("flame should pass through the player")
	}
	if !w.Registry.Burning.Has(player) {
		t.Error("player should be burning")
	}
}

func TestUpdateBombs_ChainReaction(t *testing.T) {
	w := createTestWorld(9, 9)
	first := addBomb(w, 2, 2, 2, 1)
	second := addBomb(w, 2, 4, 1, 100)

	UpdateBombs(w)
	UpdateFlames(w)
	RemoveDeadObjects(w)

	if w.Registry.Bombs.Has(first) {
		t.Fatal("first bomb should have exploded")
	}
	if !w.Registry.Burning.Has(second) {
		t.Fatal("second bomb should be burning")
	}

	UpdateBombs(w)

	if !w.Registry.Dead.Has(second) {
		t.Error("a burning bomb explodes on the next update")
	}
	if !flameAt(w, 3, 4) {
		t.Error("second explosion should spread")
	}
}

func TestUpdateBombs_ChainAdvancesOneBombPerUpdate(t *testing.T) {
	// (2,2) поджигает (2,4), та поджигает (4,4).
	w := createTestWorld(9, 9)
	bombs := []domain.Entity{
		addBomb(w, 2, 2, 2, 1),
		addBomb(w, 2, 4, 2, 100),
		addBomb(w, 4, 4, 1, 100),
	}

	tests := []struct {
		name    string
		dead    []bool
		burning []bool
	}{
		{"first update", []bool{true, false, false}, []bool{false, true, false}},
		{"second update", []bool{true, true, false}, []bool{false, true, true}},
		{"third update", []bool{true, true, true}, []bool{false, true, true}},
	}

	for _, tt := range tests {
		UpdateBombs(w)

		for i, e := range bombs {
			if got := w.Registry.Dead.Has(e); got != tt.dead[i] {
				t.Errorf("%s: bomb %d dead = %v, want %v", tt.name, i, got, tt.dead[i])
			}
			if got := w.Registry.Burning.Has(e); got != tt.burning[i] {
				t.Errorf("%s: bomb %d burning = %v, want %v", tt.name, i, got, tt.burning[i])
			}
		}
	}

	if tm := w.Registry.Timers.Get(bombs[2]); tm == nil || tm.Remaining != 0 {
		t.Errorf("burning bomb timer = %+v, want 0", tm)
	}
}

func TestUpdateBombs_CountDown(t *testing.T) {
	w := createTestWorld(7, 7)
	b := addBomb(w, 3, 3, 1, 3)

	for i := 0; i < 2; i++ {
		UpdateBombs(w)
		if w.Registry.Dead.Has(b) {
			t.Fatalf("bomb exploded after %d updates", i+1)
		}
	}

	UpdateBombs(w)
	if !w.Registry.Dead.Has(b) {
		t.Fatal("bomb should explode on the third update")
	}
	if _, ok := w.Arena.EntityAt(3, 3); !ok {
		t.Fatal("expected the flame blocker and the origin flame")
	}
}

func TestUpdateFlames_Expire(t *testing.T) {
	w := createTestWorld(7, 7)
	addBomb(w, 3, 3, 1, 1)
	UpdateBombs(w)
	RemoveDeadObjects(w)

	// Блокиратор живет один тик.
	UpdateFlames(w)
	RemoveDeadObjects(w)
	if w.Registry.FlameBlockers.Len() != 0 {
		t.Errorf("flame blockers = %d, want 0", w.Registry.FlameBlockers.Len())
	}

	for i := uint32(1); i < domain.FlameTimerTicks; i++ {
		UpdateFlames(w)
	}
	RemoveDeadObjects(w)

	if w.Registry.Flames.Len() != 0 {
		t.Errorf("flames = %d, want 0", w.Registry.Flames.Len())
	}
	if !w.Arena.IsEmpty(3, 3) {
		t.Error("arena cell should be empty after the flames expired")
	}
}
