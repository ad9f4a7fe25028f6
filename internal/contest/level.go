package contest

import (
	"math/rand/v2"

	"github.com/j-jorge/bim-sub001/internal/domain"
)

// discardedDraws - число первых значений генератора, которые пропускаются.
const discardedDraws = 10

// newRandom создает детерминированный генератор партии.
// PCG из math/rand/v2 имеет зафиксированный алгоритм, поток значений
// не зависит от платформы и версии Go.
func newRandom(seed uint64) *rand.Rand {
	rng := rand.New(rand.NewPCG(seed, seed))
	for i := 0; i < discardedDraws; i++ {
		rng.Uint64()
	}
	return rng
}

// StartPosition возвращает стартовую клетку игрока по индексу.
func StartPosition(index int, width, height int) (int, int) {
	switch index % 4 {
	case 0:
		return 1, 1
	case 1:
		return width - 2, height - 2
	case 2:
		return width - 2, 1
	default:
		return 1, height - 2
	}
}

// generateBasicLevelStructure ставит стены по периметру и колонны в четных клетках.
func generateBasicLevelStructure(a *domain.Arena) {
	w, h := a.Width(), a.Height()

	for x := 0; x < w; x++ {
		a.SetStaticWall(x, 0, domain.EdgeNone)
		a.SetStaticWall(x, h-1, domain.EdgeNone)
	}
	for y := 1; y < h-1; y++ {
		a.SetStaticWall(0, y, domain.EdgeNone)
		a.SetStaticWall(w-1, y, domain.EdgeNone)
	}

	for y := 2; y < h-1; y += 2 {
		for x := 2; x < w-1; x += 2 {
			a.SetStaticWall(x, y, domain.EdgeNone)
		}
	}
}

// insertRandomBrickWalls расставляет ящики обходом по строкам и выбирает
// ящики с бонусами. Порядок обращений к генератору фиксирован.
func insertRandomBrickWalls(w *domain.World, fp domain.Fingerprint, rng *rand.Rand) {
	width, height := w.Arena.Width(), w.Arena.Height()

	// 1. Клетки вокруг стартовых позиций (Чебышёв <= 1) запрещены.
	forbidden := make([]bool, width*height)
	for i := 0; i < int(fp.PlayerCount); i++ {
		px, py := StartPosition(i, width, height)
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				x, y := px+dx, py+dy
				if w.Arena.Contains(x, y) {
					forbidden[y*width+x] = true
				}
			}
		}
	}

	// 2. Ящики: один розыгрыш на каждую доступную клетку.
	var crates []domain.Entity
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if w.Arena.IsStaticWall(x, y) || forbidden[y*width+x] {
				continue
			}
			if rng.Uint64()%100 >= uint64(fp.BrickWallProbability) {
				continue
			}
			e := w.Spawn(x, y, true)
			w.Registry.Crates.Set(e, domain.Tag{})
			crates = append(crates, e)
		}
	}

	// 3. Частичное перемешивание Фишера-Йетса: первые ящики получают бонусы.
	kinds := powerUpPlan(fp.Features)
	n := len(crates)
	for i := 0; i < len(kinds) && i < n; i++ {
		j := i + int(rng.Uint64()%uint64(n-i))
		crates[i], crates[j] = crates[j], crates[i]
		w.Registry.PowerUpSpawners.Set(crates[i], domain.PowerUpSpawner{Kind: kinds[i]})
	}
}

// powerUpPlan возвращает виды бонусов в порядке назначения.
func powerUpPlan(features domain.FeatureFlags) []domain.PowerUpKind {
	var kinds []domain.PowerUpKind
	add := func(kind domain.PowerUpKind, count int) {
		for i := 0; i < count; i++ {
			kinds = append(kinds, kind)
		}
	}

	add(domain.PowerUpBomb, domain.BombPowerUpCount)
	add(domain.PowerUpFlame, domain.FlamePowerUpCount)
	if features.Has(domain.FeatureShield) {
		add(domain.PowerUpShield, domain.ShieldPowerUpCount)
	}
	if features.Has(domain.FeatureInvisibility) {
		add(domain.PowerUpInvisibility, domain.InvisibilityPowerUpCount)
	}
	return kinds
}

// spawnPlayers создает игроков в стартовых клетках. Игроки не хранятся в арене.
func spawnPlayers(w *domain.World, playerCount int) {
	for i := 0; i < playerCount; i++ {
		x, y := StartPosition(i, w.Arena.Width(), w.Arena.Height())
		e := w.Registry.Create()
		w.Registry.Players.Set(e, domain.Player{
			Index:         uint8(i),
			BombCapacity:  domain.DefaultBombCapacity,
			BombAvailable: domain.DefaultBombCapacity,
			BombStrength:  domain.DefaultBombStrength,
			Facing:        domain.DirectionDown,
		})
		w.Registry.Positions.Set(e, domain.Position{X: uint8(x), Y: uint8(y)})
		w.Registry.Actions.Set(e, domain.IdleAction)
	}
}
