package contest

import (
	"bytes"
	"errors"
	"math/rand/v2"
	"os"
	"testing"

	"github.com/j-jorge/bim-sub001/internal/domain"
	"github.com/j-jorge/bim-sub001/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

// randomActions возвращает детерминированный поток действий для всех игроков.
func randomActions(rng *rand.Rand, players int) []domain.PlayerAction {
	out := make([]domain.PlayerAction, players)
	for i := range out {
		out[i] = domain.PlayerAction{
			Movement: domain.Movement(rng.IntN(int(domain.MaxMovement) + 1)),
			DropBomb: rng.IntN(8) == 0,
		}
	}
	return out
}

func mustSnapshot(t *testing.T, c *Contest) []byte {
	t.Helper()
	b, err := c.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot() error: %v", err)
	}
	return b
}

func TestNew_InvalidFingerprintPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("New() with zero players should panic")
		}
	}()
	New(domain.DefaultFingerprint(1, 0))
}

func TestLevelIsReproducible(t *testing.T) {
	fp := domain.DefaultFingerprint(42, 4)
	fp.Features = domain.AllFeatures

	a := mustSnapshot(t, New(fp))
	b := mustSnapshot(t, New(fp))
	if !bytes.Equal(a, b) {
		t.Fatal("same fingerprint produced different levels")
	}

	fp.Seed = 43
	if bytes.Equal(a, mustSnapshot(t, New(fp))) {
		t.Error("different seeds produced the same level")
	}
}

func TestLevel_NoCratesAroundStartPositions(t *testing.T) {
	for players := uint8(1); players <= domain.MaxPlayerCount; players++ {
		for seed := uint64(0); seed < 20; seed++ {
			fp := domain.DefaultFingerprint(seed, players)
			fp.BrickWallProbability = 100
			c := New(fp)
			w := c.World()

			for i := 0; i < int(players); i++ {
				px, py := StartPosition(i, w.Arena.Width(), w.Arena.Height())
				for dy := -1; dy <= 1; dy++ {
					for dx := -1; dx <= 1; dx++ {
						if !w.Arena.IsEmpty(px+dx, py+dy) {
							t.Fatalf("players=%d seed=%d: cell (%d,%d) near start %d is not empty",
								players, seed, px+dx, py+dy, i)
						}
					}
				}
			}
		}
	}
}

func TestLevel_Structure(t *testing.T) {
	c := New(domain.DefaultFingerprint(7, 2))
	a := c.World().Arena

	tests := []struct {
		name string
		x, y int
		wall bool
	}{
		{"top-left corner", 0, 0, true},
		{"bottom border", 5, 10, true},
		{"right border", 12, 4, true},
		{"pillar", 2, 2, true},
		{"pillar", 10, 8, true},
		{"start cell", 1, 1, false},
		{"between pillars", 3, 2, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := a.IsStaticWall(tt.x, tt.y); got != tt.wall {
				t.Errorf("IsStaticWall(%d,%d) = %v, want %v", tt.x, tt.y, got, tt.wall)
			}
		})
	}
}

func TestLevel_PowerUpCounts(t *testing.T) {
	tests := []struct {
		name     string
		features domain.FeatureFlags
		want     map[domain.PowerUpKind]int
	}{
		{
			name: "basic",
			want: map[domain.PowerUpKind]int{domain.PowerUpBomb: 10, domain.PowerUpFlame: 8},
		},
		{
			name:     "all features",
			features: domain.AllFeatures,
			want: map[domain.PowerUpKind]int{
				domain.PowerUpBomb: 10, domain.PowerUpFlame: 8,
				domain.PowerUpShield: 4, domain.PowerUpInvisibility: 4,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fp := domain.DefaultFingerprint(99, 2)
			fp.Features = tt.features
			r := New(fp).World().Registry

			got := map[domain.PowerUpKind]int{}
			r.PowerUpSpawners.Each(func(e domain.Entity, s *domain.PowerUpSpawner) {
				if !r.Crates.Has(e) {
					t.Errorf("spawner %v is not a crate", e)
				}
				got[s.Kind]++
			})

			for kind, n := range tt.want {
				if got[kind] != n {
					t.Errorf("%v power-ups = %d, want %d", kind, got[kind], n)
				}
			}
		})
	}
}

func TestLevel_FewCratesGetAllTheyCan(t *testing.T) {
	fp := domain.DefaultFingerprint(5, 2)
	fp.BrickWallProbability = 5
	r := New(fp).World().Registry

	want := r.Crates.Len()
	if want > domain.BombPowerUpCount+domain.FlamePowerUpCount {
		want = domain.BombPowerUpCount + domain.FlamePowerUpCount
	}
	if got := r.PowerUpSpawners.Len(); got != want {
		t.Errorf("spawners = %d, want %d", got, want)
	}
}

func TestLevel_BrickWallDensity(t *testing.T) {
	const seeds = 200

	var crates, eligible int
	for seed := uint64(0); seed < seeds; seed++ {
		c := New(domain.DefaultFingerprint(seed, 2))
		w := c.World()
		crates += w.Registry.Crates.Len()

		if seed == 0 {
			eligible = countEligibleCells(w, 2)
		}
	}

	ratio := float64(crates) / float64(eligible*seeds)
	if ratio < 0.75 || ratio > 0.85 {
		t.Errorf("crate ratio = %.3f, want about 0.80", ratio)
	}
}

func countEligibleCells(w *domain.World, players int) int {
	n := 0
	for y := 0; y < w.Arena.Height(); y++ {
		for x := 0; x < w.Arena.Width(); x++ {
			if w.Arena.IsStaticWall(x, y) || nearStart(w, players, x, y) {
				continue
			}
			n++
		}
	}
	return n
}

func nearStart(w *domain.World, players, x, y int) bool {
	for i := 0; i < players; i++ {
		px, py := StartPosition(i, w.Arena.Width(), w.Arena.Height())
		if x >= px-1 && x <= px+1 && y >= py-1 && y <= py+1 {
			return true
		}
	}
	return false
}

func TestTick_Deterministic(t *testing.T) {
	fp := domain.DefaultFingerprint(2024, 4)
	fp.Features = domain.AllFeatures

	a, b := New(fp), New(fp)
	ra := rand.New(rand.NewPCG(1, 2))
	rb := rand.New(rand.NewPCG(1, 2))

	for i := 0; i < 600; i++ {
		a.SetActions(randomActions(ra, 4))
		b.SetActions(randomActions(rb, 4))
		a.Tick()
		b.Tick()

		if !bytes.Equal(mustSnapshot(t, a), mustSnapshot(t, b)) {
			t.Fatalf("contests diverged at tick %d", i)
		}
	}
}

func TestArchive_RestoreReplaysIdentically(t *testing.T) {
	fp := domain.DefaultFingerprint(77, 2)
	c := New(fp)

	rng := rand.New(rand.NewPCG(3, 4))
	for i := 0; i < 100; i++ {
		c.SetActions(randomActions(rng, 2))
		c.Tick()
	}

	var archive Archive
	if err := c.Save(&archive); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	replay := make([][]domain.PlayerAction, 100)
	for i := range replay {
		replay[i] = randomActions(rng, 2)
	}

	for _, actions := range replay {
		c.SetActions(actions)
		c.Tick()
	}
	first := mustSnapshot(t, c)

	if err := c.Restore(&archive); err != nil {
		t.Fatalf("Restore() error: %v", err)
	}
	if c.TickIndex() != 100 {
		t.Fatalf("TickIndex() = %d after restore, want 100", c.TickIndex())
	}

	for _, actions := range replay {
		c.SetActions(actions)
		c.Tick()
	}
	if !bytes.Equal(first, mustSnapshot(t, c)) {
		t.Error("replay after restore diverged")
	}
}

func TestArchive_Errors(t *testing.T) {
	c := New(domain.DefaultFingerprint(1, 2))

	if err := c.Restore(&Archive{}); !errors.Is(err, ErrEmptyArchive) {
		t.Errorf("Restore(empty) = %v, want ErrEmptyArchive", err)
	}

	var other Archive
	if err := New(domain.DefaultFingerprint(2, 2)).Save(&other); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	if err := c.Restore(&other); !errors.Is(err, ErrArchiveMismatch) {
		t.Errorf("Restore(other) = %v, want ErrArchiveMismatch", err)
	}

	if err := c.Restore(&Archive{data: []byte("{")}); err == nil {
		t.Error("Restore(garbage) should fail")
	}
}

func TestTick_BombKillsNeighbour(t *testing.T) {
	// Без ящиков: пути игроков свободны.
	fp := domain.DefaultFingerprint(1234, 2)
	fp.BrickWallProbability = 0
	c := New(fp)

	idle := domain.IdleAction
	move := func(m domain.Movement) domain.PlayerAction { return domain.PlayerAction{Movement: m} }

	// Игрок 0 ставит бомбу в (1,1) и прячется в (3,2), игрок 1 идет из
	// (11,9) вдоль края в (1,2), под пламя.
	script := []struct {
		p0, p1 domain.PlayerAction
		ticks  int
	}{
		{domain.PlayerAction{DropBomb: true}, idle, 1},
		{move(domain.MoveRight), move(domain.MoveLeft), 2},
		{move(domain.MoveDown), move(domain.MoveLeft), 1},
		{idle, move(domain.MoveLeft), 7},
		{idle, move(domain.MoveUp), 7},
	}

	var res domain.ContestResult
	for _, step := range script {
		c.SetAction(0, step.p0)
		c.SetAction(1, step.p1)
		for i := 0; i < step.ticks; i++ {
			if res = c.Tick(); !res.StillRunning() {
				t.Fatalf("contest concluded while walking: %v", res)
			}
		}
	}

	w := c.World()
	if n := w.Registry.Bombs.Len(); n != 1 {
		t.Fatalf("bombs = %d, want 1", n)
	}
	want := []domain.Position{{X: 3, Y: 2}, {X: 1, Y: 2}}
	for i, p := range want {
		e, _ := w.FindPlayer(uint8(i))
		if got := *w.Registry.Positions.Get(e); got != p {
			t.Fatalf("player %d at %+v, want %+v", i, got, p)
		}
	}

	c.SetAction(0, idle)
	c.SetAction(1, idle)
	for i := uint32(0); i < domain.BombTimerTicks+domain.FlameTimerTicks; i++ {
		if res = c.Tick(); !res.StillRunning() {
			break
		}
	}

	if !res.HasAWinner() || res.WinningPlayer() != 0 {
		t.Fatalf("result = %v, want winner 0", res)
	}

	tick := c.TickIndex()
	if again := c.Tick(); again != res || c.TickIndex() != tick {
		t.Error("a concluded contest must not change")
	}
}

func TestTick_KickedPlayerLoses(t *testing.T) {
	c := New(domain.DefaultFingerprint(8, 3))
	c.KickPlayer(2)
	c.KickPlayer(0)

	if got := c.KickedPlayers(); len(got) != 2 {
		t.Fatalf("KickedPlayers() = %v", got)
	}

	res := c.Tick()
	if !res.HasAWinner() || res.WinningPlayer() != 1 {
		t.Errorf("result = %v, want winner 1", res)
	}
	if len(c.KickedPlayers()) != 0 {
		t.Error("kicked players should be removed by the tick")
	}
}

func TestTick_TimerExpiryIsADraw(t *testing.T) {
	c := New(domain.DefaultFingerprint(3, 2))

	var res domain.ContestResult
	for i := uint32(0); i < domain.GameDurationTicks; i++ {
		res = c.Tick()
		if !res.StillRunning() {
			break
		}
	}

	if !res.IsDraw() {
		t.Fatalf("result = %v, want draw", res)
	}
	if c.TickIndex() != domain.GameDurationTicks {
		t.Errorf("concluded at tick %d, want %d", c.TickIndex(), domain.GameDurationTicks)
	}
}

func TestTick_FallingBlocksStartLate(t *testing.T) {
	fp := domain.DefaultFingerprint(11, 2)
	fp.Features = domain.FeatureFallingBlocks
	c := New(fp)

	// Таймер обрушения срабатывает на тике, когда остается ArenaReductionTicks.
	for c.RemainingTicks() > domain.ArenaReductionTicks+1 {
		c.Tick()
		if c.World().Registry.FallingBlocks.Len() != 0 {
			t.Fatalf("falling block at tick %d", c.TickIndex())
		}
	}

	c.Tick()
	if c.World().Registry.FallingBlocks.Len() != 1 {
		t.Errorf("falling blocks = %d once the reduction started, want 1",
			c.World().Registry.FallingBlocks.Len())
	}
}
