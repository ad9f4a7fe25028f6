package domain

import "fmt"

// Entity - непрозрачный идентификатор сущности в реестре.
// Идентификаторы выдаются монотонно и не переиспользуются в рамках партии,
// поэтому одинаковая последовательность операций даёт одинаковые идентификаторы.
type Entity uint32

// NilEntity - отсутствие сущности. Реестр никогда не выдаёт этот идентификатор.
const NilEntity Entity = 0

func (e Entity) String() string {
	if e == NilEntity {
		return "[nil]"
	}
	return fmt.Sprintf("[%d]", uint32(e))
}

// IsNil проверяет, что идентификатор пустой.
func (e Entity) IsNil() bool {
	return e == NilEntity
}
