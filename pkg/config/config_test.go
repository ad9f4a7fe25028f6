package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	if err := os.WriteFile(path, []byte("BIM_TEST_CONFIG_PORT=9999\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("BIM_TEST_CONFIG_PORT", "")
	os.Unsetenv("BIM_TEST_CONFIG_PORT")

	if err := Load(path); err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got := String("BIM_TEST_CONFIG_PORT", "8080"); got != "9999" {
		t.Errorf("String() = %q, want 9999", got)
	}
}

func TestLoadMissingFileIsNotAnError(t *testing.T) {
	if err := Load(filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Errorf("Load() error: %v", err)
	}
}

func TestTypedAccessors(t *testing.T) {
	t.Setenv("BIM_TEST_INT", "42")
	t.Setenv("BIM_TEST_BAD_INT", "forty")
	t.Setenv("BIM_TEST_DURATION", "250ms")
	t.Setenv("BIM_TEST_BOOL", "true")

	tests := []struct {
		name    string
		run     func() (any, error)
		want    any
		wantErr bool
	}{
		{"int", func() (any, error) { return Int("BIM_TEST_INT", 1) }, 42, false},
		{"int fallback", func() (any, error) { return Int("BIM_TEST_UNSET_INT", 7) }, 7, false},
		{"bad int", func() (any, error) { return Int("BIM_TEST_BAD_INT", 3) }, 3, true},
		{"duration", func() (any, error) { return Duration("BIM_TEST_DURATION", time.Second) }, 250 * time.Millisecond, false},
		{"bool", func() (any, error) { return Bool("BIM_TEST_BOOL", false) }, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.run()
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetEnvVariableMissing(t *testing.T) {
	_, err := GetEnvVariable("BIM_TEST_DEFINITELY_UNSET")
	if !errors.Is(err, ErrMissing) {
		t.Errorf("error = %v, want ErrMissing", err)
	}
}
