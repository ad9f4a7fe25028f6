package contest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/j-jorge/bim-sub001/internal/domain"
	"github.com/j-jorge/bim-sub001/internal/systems"
)

var (
	// ErrEmptyArchive возвращается при восстановлении из пустого архива.
	ErrEmptyArchive = errors.New("contest: empty archive")
	// ErrArchiveMismatch - архив от другой партии.
	ErrArchiveMismatch = errors.New("contest: archive fingerprint mismatch")
)

// Archive - полный снимок состояния партии. Восстановление заменяет все.
type Archive struct {
	data []byte
}

// IsEmpty истинно для архива, в который еще ничего не сохранили.
func (a *Archive) IsEmpty() bool { return a == nil || len(a.data) == 0 }

// Bytes возвращает сериализованное состояние.
func (a *Archive) Bytes() []byte { return a.data }

type archiveState struct {
	Fingerprint domain.Fingerprint   `json:"fingerprint"`
	World       *domain.World        `json:"world"`
	Fog         *domain.FogOfWar     `json:"fog,omitempty"`
	Tick        uint32               `json:"tick"`
	Remaining   uint32               `json:"remaining"`
	Result      domain.ContestResult `json:"result"`
}

// Save сохраняет состояние партии в архив, перезаписывая прежнее содержимое.
func (c *Contest) Save(a *Archive) error {
	data, err := c.Snapshot()
	if err != nil {
		return err
	}
	a.data = data
	return nil
}

// Restore заменяет состояние партии содержимым архива.
func (c *Contest) Restore(a *Archive) error {
	if a.IsEmpty() {
		return ErrEmptyArchive
	}

	var st archiveState
	if err := json.Unmarshal(a.data, &st); err != nil {
		return fmt.Errorf("contest: decode archive: %w", err)
	}
	if st.World == nil || st.World.Arena == nil || st.World.Registry == nil {
		return fmt.Errorf("contest: decode archive: %w", ErrEmptyArchive)
	}
	if err := st.World.Registry.Validate(); err != nil {
		return err
	}
	if st.Fingerprint != c.fingerprint {
		return ErrArchiveMismatch
	}

	c.world = st.World
	c.fog = st.Fog
	c.tick = st.Tick
	c.remaining = st.Remaining
	c.result = st.Result
	if c.fingerprint.Features.Has(domain.FeatureFallingBlocks) {
		c.fallOrder = systems.FallOrder(c.world.Arena)
	}
	return nil
}

// Snapshot возвращает сериализованное состояние. Два состояния равны тогда и
// только тогда, когда равны их снимки.
func (c *Contest) Snapshot() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	err := enc.Encode(archiveState{
		Fingerprint: c.fingerprint,
		World:       c.world,
		Fog:         c.fog,
		Tick:        c.tick,
		Remaining:   c.remaining,
		Result:      c.result,
	})
	if err != nil {
		return nil, fmt.Errorf("contest: encode archive: %w", err)
	}
	return buf.Bytes(), nil
}
