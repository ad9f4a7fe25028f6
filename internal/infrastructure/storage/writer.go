package storage

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/j-jorge/bim-sub001/internal/contest"
	"github.com/j-jorge/bim-sub001/internal/domain"
	"github.com/j-jorge/bim-sub001/internal/version"
	"github.com/j-jorge/bim-sub001/pkg/logger"
)

const (
	MagicHeader string = `BIM!` // 4 байта
	FileSuffix  string = ".bim"
)

// TimelineFileHeader - точное представление заголовка файла.
// binary.Write пишет его целиком: тут нет слайсов и строк, только массивы и числа.
type TimelineFileHeader struct {
	Magic                [4]byte // 4 байта
	Version              uint32  // 4 байта
	Seed                 uint64  // 8 байт
	Features             uint32  // 4 байта
	PlayerCount          uint8   // 1 байт
	BrickWallProbability uint8   // 1 байт
	ArenaWidth           uint8   // 1 байт
	ArenaHeight          uint8   // 1 байт
}

func headerFor(fp domain.Fingerprint) TimelineFileHeader {
	h := TimelineFileHeader{
		Version:              version.TimelineFormatVersion,
		Seed:                 fp.Seed,
		Features:             uint32(fp.Features),
		PlayerCount:          fp.PlayerCount,
		BrickWallProbability: fp.BrickWallProbability,
		ArenaWidth:           fp.ArenaWidth,
		ArenaHeight:          fp.ArenaHeight,
	}
	copy(h.Magic[:], MagicHeader)
	return h
}

func (h TimelineFileHeader) fingerprint() domain.Fingerprint {
	return domain.Fingerprint{
		Seed:                 h.Seed,
		Features:             domain.FeatureFlags(h.Features),
		PlayerCount:          h.PlayerCount,
		BrickWallProbability: h.BrickWallProbability,
		ArenaWidth:           h.ArenaWidth,
		ArenaHeight:          h.ArenaHeight,
	}
}

// TimelineWriter дописывает действия игроков тик за тиком.
type TimelineWriter struct {
	w           *bufio.Writer
	closer      io.Closer
	playerCount int
	buf         []byte
	ticks       uint32
}

// NewTimelineWriter пишет заголовок и возвращает писателя.
// Если w реализует io.Closer, Close закроет и его.
func NewTimelineWriter(w io.Writer, fp domain.Fingerprint) (*TimelineWriter, error) {
	if err := fp.Validate(); err != nil {
		return nil, fmt.Errorf("timeline: %w", err)
	}

	bw := bufio.NewWriter(w)
	header := headerFor(fp)
	if err := binary.Write(bw, binary.BigEndian, &header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	tw := &TimelineWriter{
		w:           bw,
		playerCount: int(fp.PlayerCount),
		buf:         make([]byte, 0, domain.PackedSize(int(fp.PlayerCount))+domain.MaxPlayerCount),
	}
	if c, ok := w.(io.Closer); ok {
		tw.closer = c
	}
	return tw, nil
}

// Push записывает действия, которые будут применены на следующем тике партии,
// и исключения игроков. Вызывать до Contest.Tick.
func (tw *TimelineWriter) Push(c *contest.Contest) error {
	actions := make([]domain.PlayerAction, tw.playerCount)
	for i := range actions {
		actions[i] = c.Action(uint8(i))
	}
	return tw.PushActions(actions, c.KickedPlayers())
}

// PushActions записывает один тик: упакованные действия, затем по байту на
// каждого исключенного игрока.
func (tw *TimelineWriter) PushActions(actions []domain.PlayerAction, kicked []uint8) error {
	if len(actions) != tw.playerCount {
		return fmt.Errorf("timeline: %d actions for %d players", len(actions), tw.playerCount)
	}

	tw.buf = domain.PackActions(tw.buf[:0], actions)
	for _, index := range kicked {
		tw.buf = append(tw.buf, index<<4|domain.KickNibble)
	}

	if _, err := tw.w.Write(tw.buf); err != nil {
		return err
	}
	tw.ticks++
	return nil
}

// TickCount возвращает число записанных тиков.
func (tw *TimelineWriter) TickCount() uint32 { return tw.ticks }

// Flush сбрасывает буфер в нижележащий поток.
func (tw *TimelineWriter) Flush() error {
	return tw.w.Flush()
}

// Close сбрасывает буфер и закрывает файл.
func (tw *TimelineWriter) Close() error {
	err := tw.w.Flush()
	if tw.closer != nil {
		err = errors.Join(err, tw.closer.Close())
	}
	return err
}

// TimelineService создает файлы записей партий в каталоге.
type TimelineService struct {
	SaveDir string
	now     func() time.Time
}

func NewTimelineService(dir string) (*TimelineService, error) {
	// Создаем папку если нет
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("timeline dir: %w", err)
	}
	return &TimelineService{SaveDir: dir, now: time.Now}, nil
}

// FileName возвращает имя файла записи для канала.
func (s *TimelineService) FileName(channel uint32) string {
	return fmt.Sprintf("%s_%d%s", s.now().Format("20060102-150405"), channel, FileSuffix)
}

// Open создает новый файл записи. Существующий файл не перезаписывается.
func (s *TimelineService) Open(channel uint32, fp domain.Fingerprint) (*TimelineWriter, error) {
	path := filepath.Join(s.SaveDir, s.FileName(channel))

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, err
	}

	w, err := NewTimelineWriter(f, fp)
	if err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return nil, err
	}

	logger.Component("timeline").
		WithField("path", path).
		WithField("fingerprint", fp.String()).
		Debug("recording contest")
	return w, nil
}
