package systems

import (
	"os"
	"testing"

	"github.com/j-jorge/bim-sub001/internal/domain"
	"github.com/j-jorge/bim-sub001/pkg/logger"
)

func TestMain(m *testing.M) {
	// Initialize the global logger before running any tests
	logger.Init()

	os.Exit(m.Run())
}

// createTestWorld создает арену с рамкой из стен.
func createTestWorld(w, h int) *domain.World {
	world := domain.NewWorld(w, h)
	for x := 0; x < w; x++ {
		world.Arena.SetStaticWall(x, 0, domain.EdgeNone)
		world.Arena.SetStaticWall(x, h-1, domain.EdgeNone)
	}
	for y := 0; y < h; y++ {
		world.Arena.SetStaticWall(0, y, domain.EdgeNone)
		world.Arena.SetStaticWall(w-1, y, domain.EdgeNone)
	}
	return world
}

func addPlayer(w *domain.World, index uint8, x, y int) domain.Entity {
	e := w.Registry.Create()
	w.Registry.Players.Set(e, domain.Player{
		Index:         index,
		BombCapacity:  domain.DefaultBombCapacity,
		BombAvailable: domain.DefaultBombCapacity,
		BombStrength:  domain.DefaultBombStrength,
	})
	w.Registry.Positions.Set(e, domain.Position{X: uint8(x), Y: uint8(y)})
	w.Registry.Actions.Set(e, domain.IdleAction)
	return e
}

func addCrate(w *domain.World, x, y int) domain.Entity {
	e := w.Spawn(x, y, true)
	w.Registry.Crates.Set(e, domain.Tag{})
	return e
}

func addBomb(w *domain.World, x, y int, strength uint8, timer uint32) domain.Entity {
	e := w.Spawn(x, y, true)
	w.Registry.Bombs.Set(e, domain.Bomb{Strength: strength})
	w.Registry.Timers.Set(e, domain.Timer{Remaining: timer})
	return e
}

func flameAt(w *domain.World, x, y int) bool {
	for _, e := range w.Arena.EntitiesAt(x, y) {
		if w.Registry.Flames.Has(e) {
			return true
		}
	}
	return false
}
