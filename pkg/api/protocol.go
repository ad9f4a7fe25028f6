package api

import (
	"fmt"

	"github.com/j-jorge/bim-sub001/internal/domain"
)

// MessageType - дискриминант сообщения, первый байт кадра.
type MessageType uint8

const (
	TypeAuthentication MessageType = iota + 1
	TypeAuthenticationOK
	TypeAuthenticationKO
	TypeNewGameRequest
	TypeGameOnHold
	TypeAcceptGame
	TypeLaunchGame
	TypeReady
	TypeStart
	TypeGameUpdateFromClient
	TypeGameUpdateFromServer
	TypeHello
	TypeHelloOK
	TypeGameOver
	TypePlayerDropped
)

var typeNames = map[MessageType]string{
	TypeAuthentication:       "authentication",
	TypeAuthenticationOK:     "authentication_ok",
	TypeAuthenticationKO:     "authentication_ko",
	TypeNewGameRequest:       "new_game_request",
	TypeGameOnHold:           "game_on_hold",
	TypeAcceptGame:           "accept_game",
	TypeLaunchGame:           "launch_game",
	TypeReady:                "ready",
	TypeStart:                "start",
	TypeGameUpdateFromClient: "game_update_from_client",
	TypeGameUpdateFromServer: "game_update_from_server",
	TypeHello:                "hello",
	TypeHelloOK:              "hello_ok",
	TypeGameOver:             "game_over",
	TypePlayerDropped:        "player_dropped",
}

func (t MessageType) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("unknown(%d)", uint8(t))
}

// Ограничения на размер сообщений
const (
	// MaxActionsPerMessage - максимум действий в одном сообщении клиента.
	MaxActionsPerMessage = 255
	// MaxActionBytes - максимум байт упакованных действий в одном сообщении сервера.
	MaxActionBytes = 480
)

// MaxUpdateTicks возвращает число тиков, которое помещается в одно сообщение сервера.
func MaxUpdateTicks(playerCount int) int {
	n := MaxActionBytes / domain.PackedSize(playerCount)
	if n > MaxActionsPerMessage {
		n = MaxActionsPerMessage
	}
	return n
}

// Message - типизированное сообщение протокола.
type Message interface {
	Validator
	Type() MessageType
	// AppendBody дописывает тело сообщения (без байта типа).
	AppendBody(dst []byte) []byte
}

// --- АУТЕНТИФИКАЦИЯ ---

// Authentication открывает сессию. Версия протокола должна совпадать с серверной.
type Authentication struct {
	ProtocolVersion uint16
	RequestToken    uint32
}

type AuthenticationOK struct {
	RequestToken uint32
	SessionID    uint64
}

// AuthenticationError - причина отказа.
type AuthenticationError uint8

const (
	AuthErrorBadProtocol AuthenticationError = iota + 1
	AuthErrorServerFull
	// AuthErrorBlacklisted - карма клиента отрицательна.
	AuthErrorBlacklisted
)

func (e AuthenticationError) String() string {
	switch e {
	case AuthErrorBadProtocol:
		return "bad_protocol"
	case AuthErrorServerFull:
		return "server_full"
	case AuthErrorBlacklisted:
		return "blacklisted"
	}
	return fmt.Sprintf("unknown(%d)", uint8(e))
}

type AuthenticationKO struct {
	RequestToken uint32
	Reason       AuthenticationError
}

// --- ПРИВЕТСТВИЕ ---

type Hello struct {
	RequestToken uint32
}

// ServerStats - живая статистика сервера, передается в HelloOK.
type ServerStats struct {
	GamesNow         uint32 `json:"gamesNow"`
	SessionsNow      uint32 `json:"sessionsNow"`
	GamesLastHour    uint32 `json:"gamesLastHour"`
	SessionsLastHour uint32 `json:"sessionsLastHour"`
	GamesLastDay     uint32 `json:"gamesLastDay"`
	SessionsLastDay  uint32 `json:"sessionsLastDay"`
}

type HelloOK struct {
	RequestToken uint32
	Version      uint16
	Name         string
	Stats        ServerStats
}

// --- ПОДБОР ИГРЫ ---

type NewGameRequest struct {
	RequestToken uint32
	Features     domain.FeatureFlags
}

type GameOnHold struct {
	EncounterID uint32
	PlayerCount uint8
}

type AcceptGame struct {
	EncounterID uint32
}

// LaunchGame сообщает клиенту все, что нужно для построения партии.
type LaunchGame struct {
	RequestToken uint32
	Fingerprint  domain.Fingerprint
	GameChannel  uint32
	PlayerIndex  uint8
}

// --- ИГРА ---

type Ready struct{}

type Start struct{}

// GameUpdateFromClient - действия локального игрока начиная с FromTick.
type GameUpdateFromClient struct {
	FromTick uint32
	Actions  []domain.PlayerAction
}

// GameUpdateFromServer - окончательные действия всех игроков, по тику на
// элемент Actions, начиная с FromTick.
//
// Kicked[i] - битовая маска игроков, исключенных сервером на тике
// FromTick+i. На проводе исключение занимает место действия игрока
// (полубайт 0xf), поэтому действие исключенного игрока всегда пустое.
// Kicked равен nil, если в сообщении нет исключений.
type GameUpdateFromServer struct {
	FromTick    uint32
	PlayerCount uint8
	Actions     [][]domain.PlayerAction
	Kicked      []uint8
}

// IsKicked сообщает, исключен ли игрок на i-м тике сообщения.
func (m GameUpdateFromServer) IsKicked(i int, player uint8) bool {
	return i < len(m.Kicked) && m.Kicked[i]&(1<<player) != 0
}

// GameOver - вердикт сервера. WinnerIndex = -1 для ничьей.
// CoinsReward - награда получателя, у каждого игрока своя.
type GameOver struct {
	WinnerIndex int8
	CoinsReward uint16
}

// Result переводит вердикт в результат партии.
func (m GameOver) Result() domain.ContestResult {
	if m.WinnerIndex < 0 {
		return domain.Draw()
	}
	return domain.WinnerIs(uint8(m.WinnerIndex))
}

// GameOverFor строит сообщение по результату партии и награде получателя.
func GameOverFor(r domain.ContestResult, coins uint16) GameOver {
	if r.HasAWinner() {
		return GameOver{WinnerIndex: int8(r.WinningPlayer()), CoinsReward: coins}
	}
	return GameOver{WinnerIndex: -1, CoinsReward: coins}
}

// PlayerDropped сообщает, что игрок исключен из партии на тике AtTick.
type PlayerDropped struct {
	PlayerIndex uint8
	AtTick      uint32
}

func (Authentication) Type() MessageType       { return TypeAuthentication }
func (AuthenticationOK) Type() MessageType     { return TypeAuthenticationOK }
func (AuthenticationKO) Type() MessageType     { return TypeAuthenticationKO }
func (Hello) Type() MessageType                { return TypeHello }
func (HelloOK) Type() MessageType              { return TypeHelloOK }
func (NewGameRequest) Type() MessageType       { return TypeNewGameRequest }
func (GameOnHold) Type() MessageType           { return TypeGameOnHold }
func (AcceptGame) Type() MessageType           { return TypeAcceptGame }
func (LaunchGame) Type() MessageType           { return TypeLaunchGame }
func (Ready) Type() MessageType                { return TypeReady }
func (Start) Type() MessageType                { return TypeStart }
func (GameUpdateFromClient) Type() MessageType { return TypeGameUpdateFromClient }
func (GameUpdateFromServer) Type() MessageType { return TypeGameUpdateFromServer }
func (GameOver) Type() MessageType             { return TypeGameOver }
func (PlayerDropped) Type() MessageType        { return TypePlayerDropped }
