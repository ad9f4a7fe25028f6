package domain

import (
	"encoding/json"
	"fmt"
)

// Store хранит компоненты одного типа по схеме sparse set:
// плотные срезы сущностей и данных плюс индекс сущность -> позиция.
// Порядок обхода - порядок плотного среза; он детерминирован для одинаковой
// последовательности операций, на этом держится повтор партии.
// Store не потокобезопасен: симуляция однопоточная.
type Store[T any] struct {
	entities []Entity
	data     []T
	index    map[Entity]int
}

// NewStore создает пустое хранилище.
func NewStore[T any]() *Store[T] {
	return &Store[T]{
		entities: make([]Entity, 0, 16),
		data:     make([]T, 0, 16),
		index:    make(map[Entity]int),
	}
}

// Set добавляет компонент сущности или заменяет существующий.
func (s *Store[T]) Set(e Entity, v T) {
	if i, ok := s.index[e]; ok {
		s.data[i] = v
		return
	}
	s.index[e] = len(s.entities)
	s.entities = append(s.entities, e)
	s.data = append(s.data, v)
}

// Get возвращает указатель на компонент или nil.
// Указатель действителен до следующей вставки или удаления в этом хранилище.
func (s *Store[T]) Get(e Entity) *T {
	i, ok := s.index[e]
	if !ok {
		return nil
	}
	return &s.data[i]
}

// Has проверяет наличие компонента.
func (s *Store[T]) Has(e Entity) bool {
	_, ok := s.index[e]
	return ok
}

// Remove удаляет компонент (swap-remove). Отсутствующая сущность - no-op.
func (s *Store[T]) Remove(e Entity) {
	i, ok := s.index[e]
	if !ok {
		return
	}

	last := len(s.entities) - 1
	if i != last {
		s.entities[i] = s.entities[last]
		s.data[i] = s.data[last]
		s.index[s.entities[i]] = i
	}

	var zero T
	s.data[last] = zero
	s.entities = s.entities[:last]
	s.data = s.data[:last]
	delete(s.index, e)
}

// Len возвращает количество компонентов.
func (s *Store[T]) Len() int {
	return len(s.entities)
}

// Entities возвращает копию плотного списка сущностей.
func (s *Store[T]) Entities() []Entity {
	out := make([]Entity, len(s.entities))
	copy(out, s.entities)
	return out
}

// Each обходит снимок списка сущностей. Компоненты, удалённые во время обхода,
// пропускаются, добавленные во время обхода не посещаются.
func (s *Store[T]) Each(fn func(e Entity, v *T)) {
	for _, e := range s.Entities() {
		if v := s.Get(e); v != nil {
			fn(e, v)
		}
	}
}

// Clone возвращает независимую копию хранилища.
func (s *Store[T]) Clone() *Store[T] {
	c := &Store[T]{
		entities: make([]Entity, len(s.entities)),
		data:     make([]T, len(s.data)),
		index:    make(map[Entity]int, len(s.index)),
	}
	copy(c.entities, s.entities)
	copy(c.data, s.data)
	for e, i := range s.index {
		c.index[e] = i
	}
	return c
}

type storeJSON[T any] struct {
	Entities []Entity `json:"e"`
	Data     []T      `json:"d"`
}

// MarshalJSON сохраняет плотный порядок, индекс восстанавливается при чтении.
func (s *Store[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(storeJSON[T]{Entities: s.entities, Data: s.data})
}

// UnmarshalJSON восстанавливает хранилище вместе с индексом.
func (s *Store[T]) UnmarshalJSON(b []byte) error {
	var raw storeJSON[T]
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if len(raw.Entities) != len(raw.Data) {
		return fmt.Errorf("store: %d entities for %d components", len(raw.Entities), len(raw.Data))
	}

	s.entities = raw.Entities
	s.data = raw.Data
	if s.entities == nil {
		s.entities = make([]Entity, 0, 16)
		s.data = make([]T, 0, 16)
	}
	s.index = make(map[Entity]int, len(s.entities))
	for i, e := range s.entities {
		if _, dup := s.index[e]; dup {
			return fmt.Errorf("store: duplicate entity %s", e)
		}
		s.index[e] = i
	}
	return nil
}
