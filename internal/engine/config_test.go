package engine

import (
	"testing"
	"time"
)

func TestLoadConfig_RewardsAndKarma(t *testing.T) {
	t.Setenv("BIM_COINS_PER_VICTORY", "100")
	t.Setenv("BIM_COINS_PER_SHORT_GAME_DRAW", "30")
	t.Setenv("BIM_SHORT_GAME_DURATION", "10s")
	t.Setenv("BIM_KARMA_ENABLED", "false")
	t.Setenv("BIM_KARMA_DISCONNECTION", "-5")
	t.Setenv("BIM_KARMA_BLACKLIST_DURATION", "1h")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if cfg.Rewards.Victory != 100 || cfg.Rewards.ShortGameDraw != 30 || cfg.Rewards.Defeat != NewConfig().Rewards.Defeat {
		t.Errorf("rewards = %+v", cfg.Rewards)
	}
	if cfg.ShortGameDuration != 10*time.Second {
		t.Errorf("short game duration = %v", cfg.ShortGameDuration)
	}
	if cfg.Karma.Enabled || cfg.Karma.Disconnection != -5 || cfg.Karma.BlacklistDuration != time.Hour {
		t.Errorf("karma = %+v", cfg.Karma)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"negative coins", "BIM_COINS_PER_DEFEAT", "-1"},
		{"too many coins", "BIM_COINS_PER_DRAW", "70000"},
		{"not a bool", "BIM_KARMA_ENABLED", "maybe"},
		{"initial karma out of range", "BIM_KARMA_INITIAL", "300"},
		{"bad duration", "BIM_KARMA_REVIEW_INTERVAL", "soon"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := LoadConfig(); err == nil {
				t.Errorf("LoadConfig() accepted %s=%s", tt.key, tt.value)
			}
		})
	}
}
