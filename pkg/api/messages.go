package api

import (
	"encoding/binary"
	"fmt"

	"github.com/j-jorge/bim-sub001/internal/domain"
)

// Encode возвращает кадр сообщения: байт типа и тело.
func Encode(m Message) []byte {
	return m.AppendBody([]byte{byte(m.Type())})
}

// Decode разбирает кадр. Испорченный ввод возвращает ошибку, никогда не панику.
func Decode(frame []byte) (Message, error) {
	if len(frame) == 0 {
		return nil, ErrTruncated
	}
	return DecodeBody(MessageType(frame[0]), frame[1:])
}

// DecodeBody разбирает тело сообщения известного типа и проверяет его.
func DecodeBody(t MessageType, body []byte) (Message, error) {
	d := &decoder{b: body}

	var m Message
	switch t {
	case TypeAuthentication:
		m = Authentication{ProtocolVersion: d.u16(), RequestToken: d.u32()}
	case TypeAuthenticationOK:
		m = AuthenticationOK{RequestToken: d.u32(), SessionID: d.u64()}
	case TypeAuthenticationKO:
		m = AuthenticationKO{RequestToken: d.u32(), Reason: AuthenticationError(d.u8())}
	case TypeHello:
		m = Hello{RequestToken: d.u32()}
	case TypeHelloOK:
		m = decodeHelloOK(d)
	case TypeNewGameRequest:
		m = NewGameRequest{RequestToken: d.u32(), Features: domain.FeatureFlags(d.u32())}
	case TypeGameOnHold:
		m = GameOnHold{EncounterID: d.u32(), PlayerCount: d.u8()}
	case TypeAcceptGame:
		m = AcceptGame{EncounterID: d.u32()}
	case TypeLaunchGame:
		m = decodeLaunchGame(d)
	case TypeReady:
		m = Ready{}
	case TypeStart:
		m = Start{}
	case TypeGameUpdateFromClient:
		m = decodeGameUpdateFromClient(d)
	case TypeGameUpdateFromServer:
		m = decodeGameUpdateFromServer(d)
	case TypeGameOver:
		m = GameOver{WinnerIndex: int8(d.u8()), CoinsReward: d.u16()}
	case TypePlayerDropped:
		m = PlayerDropped{PlayerIndex: d.u8(), AtTick: d.u32()}
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownType, uint8(t))
	}

	if err := d.finish(); err != nil {
		return nil, fmt.Errorf("%s: %w", t, err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", t, ErrInvalid, err)
	}
	return m, nil
}

func (m Authentication) AppendBody(dst []byte) []byte {
	dst = appendU16(dst, m.ProtocolVersion)
	return appendU32(dst, m.RequestToken)
}

func (m AuthenticationOK) AppendBody(dst []byte) []byte {
	dst = appendU32(dst, m.RequestToken)
	return appendU64(dst, m.SessionID)
}

func (m AuthenticationKO) AppendBody(dst []byte) []byte {
	dst = appendU32(dst, m.RequestToken)
	return appendU8(dst, uint8(m.Reason))
}

func (m Hello) AppendBody(dst []byte) []byte {
	return appendU32(dst, m.RequestToken)
}

// Идентификаторы записей статистики. Запись: id, размер, значение.
// Неизвестные записи пропускаются при чтении.
const (
	statGamesNow uint8 = iota + 1
	statSessionsNow
	statGamesLastHour
	statSessionsLastHour
	statGamesLastDay
	statSessionsLastDay
)

func (s *ServerStats) fields() []struct {
	id    uint8
	value *uint32
} {
	return []struct {
		id    uint8
		value *uint32
	}{
		{statGamesNow, &s.GamesNow},
		{statSessionsNow, &s.SessionsNow},
		{statGamesLastHour, &s.GamesLastHour},
		{statSessionsLastHour, &s.SessionsLastHour},
		{statGamesLastDay, &s.GamesLastDay},
		{statSessionsLastDay, &s.SessionsLastDay},
	}
}

func (m HelloOK) AppendBody(dst []byte) []byte {
	dst = appendU32(dst, m.RequestToken)
	dst = appendU16(dst, m.Version)
	dst = appendStr(dst, m.Name)

	fields := m.Stats.fields()
	dst = appendU8(dst, uint8(len(fields)))
	for _, f := range fields {
		dst = appendU8(dst, f.id)
		dst = appendU8(dst, 4)
		dst = appendU32(dst, *f.value)
	}
	return dst
}

func decodeHelloOK(d *decoder) HelloOK {
	m := HelloOK{RequestToken: d.u32(), Version: d.u16(), Name: d.str()}

	byID := map[uint8]*uint32{}
	for _, f := range m.Stats.fields() {
		byID[f.id] = f.value
	}

	count := int(d.u8())
	for i := 0; i < count && d.err == nil; i++ {
		id, size := d.u8(), int(d.u8())
		raw := d.take(size)
		target, known := byID[id]
		if !known || raw == nil {
			continue
		}
		switch size {
		case 1:
			*target = uint32(raw[0])
		case 2:
			*target = uint32(binary.BigEndian.Uint16(raw))
		case 4:
			*target = binary.BigEndian.Uint32(raw)
		case 8:
			*target = uint32(binary.BigEndian.Uint64(raw))
		}
	}
	return m
}

func (m NewGameRequest) AppendBody(dst []byte) []byte {
	dst = appendU32(dst, m.RequestToken)
	return appendU32(dst, uint32(m.Features))
}

func (m GameOnHold) AppendBody(dst []byte) []byte {
	dst = appendU32(dst, m.EncounterID)
	return appendU8(dst, m.PlayerCount)
}

func (m AcceptGame) AppendBody(dst []byte) []byte {
	return appendU32(dst, m.EncounterID)
}

// Число игроков и индекс упакованы в один байт: (count-1)<<2 | index.
func (m LaunchGame) AppendBody(dst []byte) []byte {
	fp := m.Fingerprint
	dst = appendU32(dst, m.RequestToken)
	dst = appendU64(dst, fp.Seed)
	dst = appendU32(dst, uint32(fp.Features))
	dst = appendU8(dst, (fp.PlayerCount-1)<<2|m.PlayerIndex&0x3)
	dst = appendU8(dst, fp.BrickWallProbability)
	dst = appendU8(dst, fp.ArenaWidth)
	dst = appendU8(dst, fp.ArenaHeight)
	return appendU32(dst, m.GameChannel)
}

func decodeLaunchGame(d *decoder) LaunchGame {
	m := LaunchGame{RequestToken: d.u32()}
	m.Fingerprint.Seed = d.u64()
	m.Fingerprint.Features = domain.FeatureFlags(d.u32())

	packed := d.u8()
	m.Fingerprint.PlayerCount = packed>>2 + 1
	m.PlayerIndex = packed & 0x3

	m.Fingerprint.BrickWallProbability = d.u8()
	m.Fingerprint.ArenaWidth = d.u8()
	m.Fingerprint.ArenaHeight = d.u8()
	m.GameChannel = d.u32()
	return m
}

func (Ready) AppendBody(dst []byte) []byte { return dst }

func (Start) AppendBody(dst []byte) []byte { return dst }

func (m GameUpdateFromClient) AppendBody(dst []byte) []byte {
	dst = appendU32(dst, m.FromTick)
	dst = appendU8(dst, uint8(len(m.Actions)))
	return domain.PackActions(dst, m.Actions)
}

func decodeGameUpdateFromClient(d *decoder) GameUpdateFromClient {
	m := GameUpdateFromClient{FromTick: d.u32()}
	n := int(d.u8())
	packed := d.take(domain.PackedSize(n))
	if d.err != nil {
		return m
	}
	actions, ok := domain.UnpackActions(packed, n)
	if !ok {
		d.err = ErrInvalid
		return m
	}
	m.Actions = actions
	return m
}

func (m GameUpdateFromServer) AppendBody(dst []byte) []byte {
	dst = appendU32(dst, m.FromTick)
	dst = appendU8(dst, m.PlayerCount)
	dst = appendU8(dst, uint8(len(m.Actions)))
	for i, tick := range m.Actions {
		for p := 0; p < len(tick); p += 2 {
			b := m.nibble(i, p)
			if p+1 < len(tick) {
				b |= m.nibble(i, p+1) << 4
			}
			dst = append(dst, b)
		}
	}
	return dst
}

func (m GameUpdateFromServer) nibble(i, player int) byte {
	if m.IsKicked(i, uint8(player)) {
		return domain.KickNibble
	}
	return m.Actions[i][player].Nibble()
}

func decodeGameUpdateFromServer(d *decoder) GameUpdateFromServer {
	m := GameUpdateFromServer{FromTick: d.u32(), PlayerCount: d.u8()}
	ticks := int(d.u8())
	if d.err != nil {
		return m
	}
	if m.PlayerCount == 0 || m.PlayerCount > domain.MaxPlayerCount {
		d.err = ErrInvalid
		return m
	}

	n := int(m.PlayerCount)
	size := domain.PackedSize(n)
	m.Actions = make([][]domain.PlayerAction, 0, ticks)
	for i := 0; i < ticks; i++ {
		packed := d.take(size)
		if d.err != nil {
			return m
		}
		actions := make([]domain.PlayerAction, n)
		for p := 0; p < n; p++ {
			nib := packed[p/2]
			if p%2 == 1 {
				nib >>= 4
			}
			nib &= 0xf
			if nib == domain.KickNibble {
				if m.Kicked == nil {
					m.Kicked = make([]uint8, ticks)
				}
				m.Kicked[i] |= 1 << p
				continue
			}
			a, ok := domain.ActionFromNibble(nib)
			if !ok {
				d.err = ErrInvalid
				return m
			}
			actions[p] = a
		}
		m.Actions = append(m.Actions, actions)
	}
	return m
}

func (m GameOver) AppendBody(dst []byte) []byte {
	dst = appendU8(dst, uint8(m.WinnerIndex))
	return appendU16(dst, m.CoinsReward)
}

func (m PlayerDropped) AppendBody(dst []byte) []byte {
	dst = appendU8(dst, m.PlayerIndex)
	return appendU32(dst, m.AtTick)
}

// Envelope - датаграмма транспорта: адрес сессии и канала плюс сообщение.
// Канал 0 - служебный (аутентификация, подбор игры), остальные - игры.
type Envelope struct {
	SessionID uint64
	Channel   uint32
	Type      MessageType
	Body      []byte
}

const envelopeHeaderSize = 8 + 4 + 1

// EncodeEnvelope упаковывает сообщение в датаграмму.
func EncodeEnvelope(sessionID uint64, channel uint32, m Message) []byte {
	dst := make([]byte, 0, envelopeHeaderSize+16)
	dst = appendU64(dst, sessionID)
	dst = appendU32(dst, channel)
	dst = appendU8(dst, uint8(m.Type()))
	return m.AppendBody(dst)
}

// DecodeEnvelope читает заголовок датаграммы. Тело не разбирается.
func DecodeEnvelope(b []byte) (Envelope, error) {
	if len(b) < envelopeHeaderSize {
		return Envelope{}, ErrTruncated
	}
	d := &decoder{b: b}
	e := Envelope{SessionID: d.u64(), Channel: d.u32(), Type: MessageType(d.u8())}
	e.Body = d.b
	return e, nil
}

// Message разбирает тело датаграммы.
func (e Envelope) Message() (Message, error) {
	return DecodeBody(e.Type, e.Body)
}
