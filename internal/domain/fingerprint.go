package domain

import (
	"fmt"
	"strings"
)

// FeatureFlags - битовая маска игровых режимов, часть отпечатка партии.
type FeatureFlags uint32

const (
	FeatureFallingBlocks FeatureFlags = 1 << iota
	FeatureFogOfWar
	FeatureInvisibility
	FeatureShield

	AllFeatures = FeatureFallingBlocks | FeatureFogOfWar | FeatureInvisibility | FeatureShield
)

var featureNames = []struct {
	flag FeatureFlags
	name string
}{
	{FeatureFallingBlocks, "falling_blocks"},
	{FeatureFogOfWar, "fog_of_war"},
	{FeatureInvisibility, "invisibility"},
	{FeatureShield, "shield"},
}

// Has проверяет наличие всех флагов f.
func (ff FeatureFlags) Has(f FeatureFlags) bool {
	return ff&f == f
}

func (ff FeatureFlags) String() string {
	if ff == 0 {
		return "none"
	}
	var parts []string
	for _, fn := range featureNames {
		if ff.Has(fn.flag) {
			parts = append(parts, fn.name)
		}
	}
	if rest := ff &^ AllFeatures; rest != 0 {
		parts = append(parts, fmt.Sprintf("0x%x", uint32(rest)))
	}
	return strings.Join(parts, "|")
}

// ParseFeatures разбирает список через запятую ("shield,fog_of_war").
func ParseFeatures(s string) (FeatureFlags, error) {
	var ff FeatureFlags
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(strings.ToLower(part))
		if part == "" || part == "none" {
			continue
		}
		found := false
		for _, fn := range featureNames {
			if fn.name == part {
				ff |= fn.flag
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("unknown feature %q", part)
		}
	}
	return ff, nil
}

// Fingerprint - минимальное зерно партии: вместе с последовательностью действий
// полностью определяет ее развитие.
type Fingerprint struct {
	Seed                 uint64       `json:"seed"`
	Features             FeatureFlags `json:"features"`
	PlayerCount          uint8        `json:"playerCount"`
	BrickWallProbability uint8        `json:"brickWallProbability"`
	ArenaWidth           uint8        `json:"arenaWidth"`
	ArenaHeight          uint8        `json:"arenaHeight"`
}

// DefaultFingerprint возвращает отпечаток стандартной партии.
func DefaultFingerprint(seed uint64, playerCount uint8) Fingerprint {
	return Fingerprint{
		Seed:                 seed,
		PlayerCount:          playerCount,
		BrickWallProbability: 80,
		ArenaWidth:           DefaultArenaWidth,
		ArenaHeight:          DefaultArenaHeight,
	}
}

// Validate проверяет, что по отпечатку можно построить партию.
func (f Fingerprint) Validate() error {
	if f.PlayerCount == 0 || f.PlayerCount > MaxPlayerCount {
		return fmt.Errorf("invalid player count %d", f.PlayerCount)
	}
	if f.BrickWallProbability > 100 {
		return fmt.Errorf("invalid brick wall probability %d", f.BrickWallProbability)
	}
	if f.ArenaWidth < MinArenaSize || f.ArenaHeight < MinArenaSize {
		return fmt.Errorf("arena too small %dx%d", f.ArenaWidth, f.ArenaHeight)
	}
	return nil
}

func (f Fingerprint) String() string {
	return fmt.Sprintf("seed=%d players=%d arena=%dx%d bricks=%d%% features=%s",
		f.Seed, f.PlayerCount, f.ArenaWidth, f.ArenaHeight, f.BrickWallProbability, f.Features)
}
