package domain

import "time"

// TickInterval - длительность одного тика симуляции.
const TickInterval = 20 * time.Millisecond

// TicksFor переводит длительность в целое число тиков (с округлением вверх).
func TicksFor(d time.Duration) uint32 {
	return uint32((d + TickInterval - 1) / TickInterval)
}

// Размеры и ограничения партии
const (
	MaxPlayerCount     = 4
	DefaultArenaWidth  = 13
	DefaultArenaHeight = 11
	MinArenaSize       = 5
)

// Параметры игрока
const (
	DefaultBombCapacity = 1
	DefaultBombStrength = 2
	MaxBombCapacity     = 9
	MaxBombStrength     = 9
)

// Таймеры в тиках (при TickInterval = 20ms)
const (
	BombTimerTicks         uint32 = 150  // 3s
	FlameTimerTicks        uint32 = 40   // 800ms
	FlameBlockerTicks      uint32 = 1    // только тик взрыва
	GameDurationTicks      uint32 = 9000 // 3min
	ArenaReductionTicks    uint32 = 3000 // обрушение за последнюю минуту
	FallingBlockDelayTicks uint32 = 10
	FallingBlockFallTicks  uint32 = 25  // 500ms
	InvisibilityTicks      uint32 = 500 // 10s
)

// Количество бонусов, выбираемых при генерации уровня
const (
	BombPowerUpCount         = 10
	FlamePowerUpCount        = 8
	ShieldPowerUpCount       = 4
	InvisibilityPowerUpCount = 4
)
