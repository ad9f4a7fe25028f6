// Package contest implements one deterministic match: the arena, the entity
// registry and the fixed-order tick that advances them.
//
// A Contest never reads the wall clock and never draws random numbers after
// construction: its evolution is a pure function of the fingerprint and of the
// per-tick player actions.
package contest

import (
	"fmt"

	"github.com/j-jorge/bim-sub001/internal/domain"
	"github.com/j-jorge/bim-sub001/internal/systems"
	"github.com/j-jorge/bim-sub001/pkg/logger"
	"github.com/sirupsen/logrus"
)

// Contest owns the world of a single match.
type Contest struct {
	fingerprint domain.Fingerprint
	world       *domain.World
	fog         *domain.FogOfWar

	// fallOrder is derived from the arena structure, it is not archived.
	fallOrder []domain.Position

	tick      uint32
	remaining uint32
	result    domain.ContestResult

	log *logrus.Entry
}

// New builds the contest described by the fingerprint. An invalid fingerprint
// is a programming error upstream and panics.
func New(fp domain.Fingerprint) *Contest {
	if err := fp.Validate(); err != nil {
		panic(fmt.Sprintf("contest: %v", err))
	}

	c := &Contest{
		fingerprint: fp,
		world:       domain.NewWorld(int(fp.ArenaWidth), int(fp.ArenaHeight)),
		remaining:   domain.GameDurationTicks,
		result:      domain.StillRunning(),
		log: logger.Component("contest").WithFields(logrus.Fields{
			"seed":    fp.Seed,
			"players": fp.PlayerCount,
		}),
	}

	rng := newRandom(fp.Seed)
	generateBasicLevelStructure(c.world.Arena)
	spawnPlayers(c.world, int(fp.PlayerCount))
	insertRandomBrickWalls(c.world, fp, rng)

	if fp.Features.Has(domain.FeatureFallingBlocks) {
		c.fallOrder = systems.FallOrder(c.world.Arena)

		e := c.world.Registry.Create()
		c.world.Registry.Reductions.Set(e, domain.ArenaReduction{})
		c.world.Registry.Timers.Set(e, domain.Timer{
			Remaining: domain.GameDurationTicks - domain.ArenaReductionTicks,
		})
	}

	if fp.Features.Has(domain.FeatureFogOfWar) {
		c.fog = domain.NewFogOfWar(int(fp.ArenaWidth), int(fp.ArenaHeight), int(fp.PlayerCount))
		systems.UpdateFogOfWar(c.world, c.fog)
	}

	return c
}

// Fingerprint returns the parameters the contest was built from.
func (c *Contest) Fingerprint() domain.Fingerprint { return c.fingerprint }

// World gives read access to the registry and the arena. Callers must not
// mutate it: all mutations go through Tick, SetAction, KickPlayer or Restore.
func (c *Contest) World() *domain.World { return c.world }

// Fog returns the fog of war, or nil when the feature is disabled.
func (c *Contest) Fog() *domain.FogOfWar { return c.fog }

// TickIndex is the number of ticks simulated so far.
func (c *Contest) TickIndex() uint32 { return c.tick }

// RemainingTicks is the time left on the game timer.
func (c *Contest) RemainingTicks() uint32 { return c.remaining }

// Result returns the outcome computed by the last tick.
func (c *Contest) Result() domain.ContestResult { return c.result }

// SetAction sets the action of a player for the next tick. Missing players
// are ignored.
func (c *Contest) SetAction(index uint8, a domain.PlayerAction) {
	e, ok := c.world.FindPlayer(index)
	if !ok {
		return
	}
	c.world.Registry.Actions.Set(e, a)
}

// SetActions sets the actions of every player, indexed by player index.
func (c *Contest) SetActions(actions []domain.PlayerAction) {
	for i, a := range actions {
		c.SetAction(uint8(i), a)
	}
}

// Action returns the action currently set for a player.
func (c *Contest) Action(index uint8) domain.PlayerAction {
	e, ok := c.world.FindPlayer(index)
	if !ok {
		return domain.IdleAction
	}
	if a := c.world.Registry.Actions.Get(e); a != nil {
		return *a
	}
	return domain.IdleAction
}

// KickPlayer removes a disconnected player at the end of the next tick.
func (c *Contest) KickPlayer(index uint8) {
	if systems.KickPlayer(c.world, index) {
		c.log.WithField("player", index).Debug("player kicked")
	}
}

// KickedPlayers lists the players kicked since the last tick.
func (c *Contest) KickedPlayers() []uint8 {
	var out []uint8
	r := c.world.Registry
	r.Players.Each(func(e domain.Entity, p *domain.Player) {
		if r.Kicked.Has(e) {
			out = append(out, p.Index)
		}
	})
	return out
}

// Tick advances the simulation by one step. Once the result is conclusive the
// contest does not change anymore.
func (c *Contest) Tick() domain.ContestResult {
	if !c.result.StillRunning() {
		return c.result
	}

	w := c.world

	// 1. Запас бомб
	systems.RefreshBombInventory(w)
	// 2. Действия игроков
	systems.ApplyPlayerActions(w)
	// 3. Бомбы
	systems.UpdateBombs(w)
	// 4. Пламя
	systems.UpdateFlames(w)
	// 5. Ящики, обрушение арены, бонусы
	systems.UpdateBrickWalls(w)
	if c.fallOrder != nil {
		systems.UpdateArenaReduction(w, c.fallOrder)
		systems.UpdateFallingBlocks(w)
	}
	systems.UpdatePowerUps(w)
	// 6. Игроки
	systems.UpdatePlayers(w)
	if c.fog != nil {
		systems.UpdateFogOfWar(w, c.fog)
	}
	// 7. Удаление мертвых
	systems.RemoveDeadObjects(w)

	// 8. Конец партии
	if c.remaining > 0 {
		c.remaining--
	}
	c.tick++
	c.result = systems.CheckGameOver(w, c.remaining == 0)

	if !c.result.StillRunning() {
		c.log.WithFields(logrus.Fields{
			"tick":   c.tick,
			"result": c.result.String(),
		}).Info("contest concluded")
	}

	return c.result
}

// AlivePlayers returns the indices of the players still in the game.
func (c *Contest) AlivePlayers() []uint8 {
	return systems.AlivePlayers(c.world)
}
