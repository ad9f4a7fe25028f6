package engine

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/j-jorge/bim-sub001/internal/domain"
	"github.com/j-jorge/bim-sub001/pkg/config"
)

// Config хранит параметры запуска сервера
type Config struct {
	Port       string
	ServerName string

	// PlayersPerGame - сколько игроков собирает одна встреча.
	PlayersPerGame uint8
	// MaxSessions - предел одновременных сессий, 0 без ограничений.
	MaxSessions int

	// LockstepMaxWait - сколько тик ждет отстающих игроков, прежде чем их
	// действия станут пустыми.
	LockstepMaxWait time.Duration
	// Пороги рассинхронизации в тиках и время, которое игрок может провести
	// за порогом.
	LatenessThreshold  uint32
	EarlinessThreshold uint32
	DropGrace          time.Duration
	InactivityDelay    time.Duration

	CleanUpInterval  time.Duration
	GameOverGrace    time.Duration
	EncounterTimeout time.Duration

	// TimelineDir - каталог записей партий. Пустая строка отключает запись.
	TimelineDir string

	BrickWallProbability uint8
	ArenaWidth           uint8
	ArenaHeight          uint8

	// Партия короче ShortGameDuration считается короткой: награда за нее
	// меньше, а игроки теряют карму.
	ShortGameDuration time.Duration
	Rewards           Rewards

	Karma KarmaConfig
}

// Rewards - монеты за исход партии.
type Rewards struct {
	Victory          uint16
	Defeat           uint16
	Draw             uint16
	ShortGameVictory uint16
	ShortGameDefeat  uint16
	ShortGameDraw    uint16
}

// KarmaConfig - параметры кармы клиентов. Клиент с отрицательной кармой
// не допускается к игре до конца BlacklistDuration.
type KarmaConfig struct {
	Enabled           bool
	Initial           int
	Disconnection     int
	ShortGame         int
	GoodBehavior      int
	BlacklistDuration time.Duration
	ReviewInterval    time.Duration
}

// NewConfig создает конфиг по умолчанию
func NewConfig() Config {
	return Config{
		Port:                 "8080",
		ServerName:           "bim",
		PlayersPerGame:       2,
		LockstepMaxWait:      200 * time.Millisecond,
		LatenessThreshold:    250,
		EarlinessThreshold:   250,
		DropGrace:            time.Second,
		InactivityDelay:      10 * time.Second,
		CleanUpInterval:      time.Second,
		GameOverGrace:        5 * time.Second,
		EncounterTimeout:     5 * time.Second,
		BrickWallProbability: 80,
		ArenaWidth:           domain.DefaultArenaWidth,
		ArenaHeight:          domain.DefaultArenaHeight,
		ShortGameDuration:    30 * time.Second,
		Rewards: Rewards{
			Victory:          50,
			Defeat:           10,
			Draw:             10,
			ShortGameVictory: 5,
			ShortGameDefeat:  1,
			ShortGameDraw:    1,
		},
		Karma: KarmaConfig{
			Enabled:           true,
			Initial:           3,
			Disconnection:     -2,
			ShortGame:         -1,
			GoodBehavior:      1,
			BlacklistDuration: 15 * time.Minute,
			ReviewInterval:    time.Minute,
		},
	}
}

// LoadConfig читает переменные BIM_* поверх значений по умолчанию.
// Файл .env должен быть загружен заранее (config.Load).
func LoadConfig() (Config, error) {
	cfg := NewConfig()
	var errs []error

	cfg.Port = config.String("BIM_PORT", cfg.Port)
	cfg.ServerName = config.String("BIM_SERVER_NAME", cfg.ServerName)
	cfg.TimelineDir = config.String("BIM_TIMELINE_DIR", cfg.TimelineDir)

	players, err := config.Int("BIM_PLAYERS_PER_GAME", int(cfg.PlayersPerGame))
	errs = append(errs, err)
	cfg.PlayersPerGame = uint8(players)

	cfg.MaxSessions, err = config.Int("BIM_MAX_SESSIONS", cfg.MaxSessions)
	errs = append(errs, err)

	late, err := config.Int("BIM_LATENESS_THRESHOLD", int(cfg.LatenessThreshold))
	errs = append(errs, err)
	cfg.LatenessThreshold = uint32(late)

	early, err := config.Int("BIM_EARLINESS_THRESHOLD", int(cfg.EarlinessThreshold))
	errs = append(errs, err)
	cfg.EarlinessThreshold = uint32(early)

	coins := []struct {
		name string
		dst  *uint16
	}{
		{"BIM_COINS_PER_VICTORY", &cfg.Rewards.Victory},
		{"BIM_COINS_PER_DEFEAT", &cfg.Rewards.Defeat},
		{"BIM_COINS_PER_DRAW", &cfg.Rewards.Draw},
		{"BIM_COINS_PER_SHORT_GAME_VICTORY", &cfg.Rewards.ShortGameVictory},
		{"BIM_COINS_PER_SHORT_GAME_DEFEAT", &cfg.Rewards.ShortGameDefeat},
		{"BIM_COINS_PER_SHORT_GAME_DRAW", &cfg.Rewards.ShortGameDraw},
	}
	for _, c := range coins {
		v, err := config.Int(c.name, int(*c.dst))
		if err == nil && (v < 0 || v > math.MaxUint16) {
			err = fmt.Errorf("%s=%d: out of range", c.name, v)
		}
		errs = append(errs, err)
		if err == nil {
			*c.dst = uint16(v)
		}
	}

	cfg.Karma.Enabled, err = config.Bool("BIM_KARMA_ENABLED", cfg.Karma.Enabled)
	errs = append(errs, err)
	karma := []struct {
		name string
		dst  *int
	}{
		{"BIM_KARMA_INITIAL", &cfg.Karma.Initial},
		{"BIM_KARMA_DISCONNECTION", &cfg.Karma.Disconnection},
		{"BIM_KARMA_SHORT_GAME", &cfg.Karma.ShortGame},
		{"BIM_KARMA_GOOD_BEHAVIOR", &cfg.Karma.GoodBehavior},
	}
	for _, k := range karma {
		*k.dst, err = config.Int(k.name, *k.dst)
		errs = append(errs, err)
	}

	durations := []struct {
		name string
		dst  *time.Duration
	}{
		{"BIM_LOCKSTEP_MAX_WAIT", &cfg.LockstepMaxWait},
		{"BIM_DROP_GRACE", &cfg.DropGrace},
		{"BIM_INACTIVITY_DELAY", &cfg.InactivityDelay},
		{"BIM_CLEAN_UP_INTERVAL", &cfg.CleanUpInterval},
		{"BIM_GAME_OVER_GRACE", &cfg.GameOverGrace},
		{"BIM_ENCOUNTER_TIMEOUT", &cfg.EncounterTimeout},
		{"BIM_SHORT_GAME_DURATION", &cfg.ShortGameDuration},
		{"BIM_KARMA_BLACKLIST_DURATION", &cfg.Karma.BlacklistDuration},
		{"BIM_KARMA_REVIEW_INTERVAL", &cfg.Karma.ReviewInterval},
	}
	for _, d := range durations {
		*d.dst, err = config.Duration(d.name, *d.dst)
		errs = append(errs, err)
	}

	if err := errors.Join(errs...); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// Validate проверяет согласованность параметров.
func (c Config) Validate() error {
	if c.PlayersPerGame == 0 || c.PlayersPerGame > domain.MaxPlayerCount {
		return fmt.Errorf("players per game must be in 1..%d, got %d", domain.MaxPlayerCount, c.PlayersPerGame)
	}
	if c.LockstepMaxWait <= 0 || c.CleanUpInterval <= 0 {
		return errors.New("lockstep max wait and clean up interval must be positive")
	}
	if c.MaxSessions < 0 {
		return fmt.Errorf("negative max sessions %d", c.MaxSessions)
	}
	if c.Karma.Enabled && c.Karma.ReviewInterval <= 0 {
		return errors.New("karma review interval must be positive")
	}
	if c.Karma.Initial < math.MinInt8 || c.Karma.Initial > math.MaxInt8 {
		return fmt.Errorf("initial karma %d out of range", c.Karma.Initial)
	}
	return c.fingerprint(0, domain.AllFeatures).Validate()
}

// fingerprint собирает отпечаток новой партии.
func (c Config) fingerprint(seed uint64, features domain.FeatureFlags) domain.Fingerprint {
	return domain.Fingerprint{
		Seed:                 seed,
		Features:             features,
		PlayerCount:          c.PlayersPerGame,
		BrickWallProbability: c.BrickWallProbability,
		ArenaWidth:           c.ArenaWidth,
		ArenaHeight:          c.ArenaHeight,
	}
}
