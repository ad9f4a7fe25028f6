package storage

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/j-jorge/bim-sub001/internal/contest"
	"github.com/j-jorge/bim-sub001/internal/domain"
	"github.com/j-jorge/bim-sub001/internal/version"
)

var (
	ErrBadMagic           = errors.New("timeline: invalid magic")
	ErrUnsupportedVersion = errors.New("timeline: unsupported version")
	ErrBadPlayerCount     = errors.New("timeline: invalid player count")
	ErrTruncated          = errors.New("timeline: truncated data")
	ErrCorrupted          = errors.New("timeline: corrupted tick")
	ErrTickOutOfRange     = errors.New("timeline: tick out of range")
)

// TickRecord - записанный тик: действия всех игроков и исключенные игроки.
type TickRecord struct {
	Actions []domain.PlayerAction
	Kicked  []uint8
}

// Timeline - запись партии, загруженная в память.
type Timeline struct {
	Fingerprint domain.Fingerprint
	Ticks       []TickRecord
}

// TickCount возвращает число записанных тиков.
func (t *Timeline) TickCount() int { return len(t.Ticks) }

// LoadTick передает партии действия и исключения записанного тика.
func (t *Timeline) LoadTick(tick int, c *contest.Contest) error {
	if tick < 0 || tick >= len(t.Ticks) {
		return fmt.Errorf("%w: %d of %d", ErrTickOutOfRange, tick, len(t.Ticks))
	}
	rec := t.Ticks[tick]
	c.SetActions(rec.Actions)
	for _, index := range rec.Kicked {
		c.KickPlayer(index)
	}
	return nil
}

// LoadTimelineFile читает запись из файла.
func LoadTimelineFile(path string) (*Timeline, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return LoadTimeline(f)
}

// LoadTimeline читает заголовок и все тики до конца потока.
func LoadTimeline(r io.Reader) (*Timeline, error) {
	br := bufio.NewReader(r)

	// 1. Читаем заголовок целиком
	var header TimelineFileHeader
	if err := binary.Read(br, binary.BigEndian, &header); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("failed to read header: %w", ErrTruncated)
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	// Валидация
	if string(header.Magic[:]) != MagicHeader {
		return nil, ErrBadMagic
	}
	if header.Version != version.TimelineFormatVersion {
		return nil, fmt.Errorf("%w: %d (expected %d)",
			ErrUnsupportedVersion, header.Version, version.TimelineFormatVersion)
	}
	if header.PlayerCount == 0 || header.PlayerCount > domain.MaxPlayerCount {
		return nil, fmt.Errorf("%w: %d", ErrBadPlayerCount, header.PlayerCount)
	}

	t := &Timeline{Fingerprint: header.fingerprint()}
	if err := t.Fingerprint.Validate(); err != nil {
		return nil, fmt.Errorf("timeline: %w", err)
	}

	n := int(header.PlayerCount)
	packed := make([]byte, domain.PackedSize(n))

	// 2. Читаем тики до EOF
	for {
		if _, err := io.ReadFull(br, packed); err != nil {
			if errors.Is(err, io.EOF) {
				return t, nil
			}
			if errors.Is(err, io.ErrUnexpectedEOF) {
				return nil, fmt.Errorf("tick %d: %w", len(t.Ticks), ErrTruncated)
			}
			return nil, err
		}

		actions, ok := domain.UnpackActions(packed, n)
		if !ok {
			return nil, fmt.Errorf("tick %d: %w", len(t.Ticks), ErrCorrupted)
		}
		rec := TickRecord{Actions: actions}

		// 3. События исключения: младший полубайт равен KickNibble.
		for {
			b, err := br.Peek(1)
			if err != nil || b[0]&0xf != domain.KickNibble {
				break
			}
			index := b[0] >> 4
			if int(index) >= n {
				return nil, fmt.Errorf("tick %d: kick of player %d: %w", len(t.Ticks), index, ErrCorrupted)
			}
			rec.Kicked = append(rec.Kicked, index)
			_, _ = br.ReadByte()
		}

		t.Ticks = append(t.Ticks, rec)
	}
}

// Replay проигрывает запись на новой партии до конца записи или до
// завершения партии.
func Replay(t *Timeline) (*contest.Contest, error) {
	c := contest.New(t.Fingerprint)
	for i := range t.Ticks {
		if err := t.LoadTick(i, c); err != nil {
			return nil, err
		}
		if !c.Tick().StillRunning() {
			break
		}
	}
	return c, nil
}
