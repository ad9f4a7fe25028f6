package api

import (
	"errors"
	"fmt"

	"github.com/j-jorge/bim-sub001/internal/domain"
)

// Validator - интерфейс, который реализуют все сообщения.
// Проверяет смысловые диапазоны после разбора.
type Validator interface {
	Validate() error
}

func (m Authentication) Validate() error {
	if m.ProtocolVersion == 0 {
		return errors.New("protocol version is required")
	}
	return nil
}

func (m AuthenticationOK) Validate() error {
	if m.SessionID == 0 {
		return errors.New("session id is required")
	}
	return nil
}

func (m AuthenticationKO) Validate() error {
	if m.Reason < AuthErrorBadProtocol || m.Reason > AuthErrorBlacklisted {
		return fmt.Errorf("unknown reason %d", m.Reason)
	}
	return nil
}

func (Hello) Validate() error   { return nil }
func (HelloOK) Validate() error { return nil }

func (m NewGameRequest) Validate() error {
	if m.Features&^domain.AllFeatures != 0 {
		return fmt.Errorf("unknown features %#x", uint32(m.Features))
	}
	return nil
}

func (m GameOnHold) Validate() error {
	if m.PlayerCount == 0 || m.PlayerCount > domain.MaxPlayerCount {
		return fmt.Errorf("invalid player count %d", m.PlayerCount)
	}
	return nil
}

func (AcceptGame) Validate() error { return nil }

func (m LaunchGame) Validate() error {
	if err := m.Fingerprint.Validate(); err != nil {
		return err
	}
	if m.PlayerIndex >= m.Fingerprint.PlayerCount {
		return fmt.Errorf("player index %d out of %d", m.PlayerIndex, m.Fingerprint.PlayerCount)
	}
	if m.GameChannel == 0 {
		return errors.New("game channel is required")
	}
	return nil
}

func (Ready) Validate() error { return nil }
func (Start) Validate() error { return nil }

func (m GameUpdateFromClient) Validate() error {
	if len(m.Actions) > MaxActionsPerMessage {
		return fmt.Errorf("too many actions: %d", len(m.Actions))
	}
	return validActions(m.Actions)
}

func (m GameUpdateFromServer) Validate() error {
	if m.PlayerCount == 0 || m.PlayerCount > domain.MaxPlayerCount {
		return fmt.Errorf("invalid player count %d", m.PlayerCount)
	}
	if len(m.Actions) > MaxActionsPerMessage {
		return fmt.Errorf("too many ticks: %d", len(m.Actions))
	}
	if m.Kicked != nil && len(m.Kicked) != len(m.Actions) {
		return fmt.Errorf("%d kick masks for %d ticks", len(m.Kicked), len(m.Actions))
	}
	for i, tick := range m.Actions {
		if len(tick) != int(m.PlayerCount) {
			return fmt.Errorf("tick %d: %d actions for %d players", i, len(tick), m.PlayerCount)
		}
		if err := validActions(tick); err != nil {
			return fmt.Errorf("tick %d: %w", i, err)
		}
		if i < len(m.Kicked) {
			if m.Kicked[i]>>m.PlayerCount != 0 {
				return fmt.Errorf("tick %d: kick mask %#x out of range", i, m.Kicked[i])
			}
			for p := uint8(0); p < m.PlayerCount; p++ {
				if m.IsKicked(i, p) && tick[p] != domain.IdleAction {
					return fmt.Errorf("tick %d: kicked player %d has an action", i, p)
				}
			}
		}
	}
	return nil
}

func (m GameOver) Validate() error {
	if m.WinnerIndex < -1 || m.WinnerIndex >= domain.MaxPlayerCount {
		return fmt.Errorf("invalid winner %d", m.WinnerIndex)
	}
	return nil
}

func (m PlayerDropped) Validate() error {
	if m.PlayerIndex >= domain.MaxPlayerCount {
		return fmt.Errorf("invalid player %d", m.PlayerIndex)
	}
	return nil
}

func validActions(actions []domain.PlayerAction) error {
	for _, a := range actions {
		if a.Movement > domain.MaxMovement {
			return fmt.Errorf("invalid movement %d", a.Movement)
		}
	}
	return nil
}
