package utils

import (
	"crypto/rand"
	"encoding/binary"
)

func randomBytes(n int) []byte {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic("failed to read random bytes: " + err.Error())
	}
	return b
}

// NewSeed возвращает зерно для отпечатка новой партии.
func NewSeed() uint64 {
	return binary.BigEndian.Uint64(randomBytes(8))
}

// NewRequestToken возвращает токен запроса для сопоставления ответов сервера.
func NewRequestToken() uint32 {
	return binary.BigEndian.Uint32(randomBytes(4))
}

// NewSessionID возвращает ненулевой идентификатор сессии.
func NewSessionID() uint64 {
	for {
		if id := binary.BigEndian.Uint64(randomBytes(8)); id != 0 {
			return id
		}
	}
}
