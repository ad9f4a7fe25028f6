package api

import (
	"encoding/binary"
	"errors"
)

var (
	ErrTruncated     = errors.New("api: truncated message")
	ErrTrailingBytes = errors.New("api: trailing bytes")
	ErrUnknownType   = errors.New("api: unknown message type")
	ErrInvalid       = errors.New("api: invalid message")
)

// decoder читает big-endian значения из буфера. Первая ошибка запоминается,
// все последующие чтения возвращают нули: проверять err достаточно один раз.
type decoder struct {
	b   []byte
	err error
}

func (d *decoder) take(n int) []byte {
	if d.err != nil {
		return nil
	}
	if n < 0 || len(d.b) < n {
		d.err = ErrTruncated
		d.b = nil
		return nil
	}
	out := d.b[:n]
	d.b = d.b[n:]
	return out
}

func (d *decoder) u8() uint8 {
	if b := d.take(1); b != nil {
		return b[0]
	}
	return 0
}

func (d *decoder) u16() uint16 {
	if b := d.take(2); b != nil {
		return binary.BigEndian.Uint16(b)
	}
	return 0
}

func (d *decoder) u32() uint32 {
	if b := d.take(4); b != nil {
		return binary.BigEndian.Uint32(b)
	}
	return 0
}

func (d *decoder) u64() uint64 {
	if b := d.take(8); b != nil {
		return binary.BigEndian.Uint64(b)
	}
	return 0
}

// str читает строку с длиной в одном байте.
func (d *decoder) str() string {
	n := int(d.u8())
	return string(d.take(n))
}

// finish проверяет, что тело прочитано целиком.
func (d *decoder) finish() error {
	if d.err != nil {
		return d.err
	}
	if len(d.b) != 0 {
		return ErrTrailingBytes
	}
	return nil
}

func appendU8(dst []byte, v uint8) []byte { return append(dst, v) }

func appendU16(dst []byte, v uint16) []byte { return binary.BigEndian.AppendUint16(dst, v) }

func appendU32(dst []byte, v uint32) []byte { return binary.BigEndian.AppendUint32(dst, v) }

func appendU64(dst []byte, v uint64) []byte { return binary.BigEndian.AppendUint64(dst, v) }

// appendStr пишет строку с длиной в одном байте; длинная строка обрезается.
func appendStr(dst []byte, s string) []byte {
	if len(s) > 255 {
		s = s[:255]
	}
	dst = append(dst, uint8(len(s)))
	return append(dst, s...)
}
