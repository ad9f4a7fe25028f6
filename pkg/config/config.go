package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// ErrMissing возвращается, если переменная окружения не задана.
var ErrMissing = errors.New("environment variable not set")

// Load загружает переменные из файлов .env (по умолчанию "./.env").
// Отсутствие файла не является ошибкой: переменные окружения процесса имеют приоритет.
func Load(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}

	var existing []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}

	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("load env files %v: %w", existing, err)
	}
	return nil
}

// GetEnvVariable возвращает значение переменной или ErrMissing.
func GetEnvVariable(v string) (string, error) {
	if v == "" {
		return "", fmt.Errorf("input param empty")
	}
	b := os.Getenv(v)
	if b == "" {
		return "", fmt.Errorf("%s: %w", v, ErrMissing)
	}
	return b, nil
}

// String возвращает значение переменной или fallback.
func String(name, fallback string) string {
	if v, err := GetEnvVariable(name); err == nil {
		return v
	}
	return fallback
}

// Int разбирает целое значение переменной.
func Int(name string, fallback int) (int, error) {
	v, err := GetEnvVariable(name)
	if err != nil {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback, fmt.Errorf("%s=%q: %w", name, v, err)
	}
	return n, nil
}

// Duration разбирает длительность в формате time.ParseDuration ("200ms", "10s").
func Duration(name string, fallback time.Duration) (time.Duration, error) {
	v, err := GetEnvVariable(name)
	if err != nil {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback, fmt.Errorf("%s=%q: %w", name, v, err)
	}
	return d, nil
}

// Bool разбирает логическое значение переменной.
func Bool(name string, fallback bool) (bool, error) {
	v, err := GetEnvVariable(name)
	if err != nil {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback, fmt.Errorf("%s=%q: %w", name, v, err)
	}
	return b, nil
}
