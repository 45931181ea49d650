package ecs

import (
	"encoding/json"
	"sort"
)

// Store is a generic typed map store for components keyed by entity.
// No reflect, no interface{}: pure generics.
//
// Iteration always walks IDs in ascending order: map order must never leak
// into simulation results.
type Store[T any] struct {
	data map[EntityID]*T
}

func NewStore[T any]() *Store[T] {
	return &Store[T]{
		data: make(map[EntityID]*T, 64),
	}
}

func (s *Store[T]) Set(id EntityID, c *T) {
	if s.data == nil {
		s.data = make(map[EntityID]*T, 64)
	}
	s.data[id] = c
}

func (s *Store[T]) Get(id EntityID) (*T, bool) {
	c, ok := s.data[id]
	return c, ok
}

func (s *Store[T]) Remove(id EntityID) {
	delete(s.data, id)
}

func (s *Store[T]) Has(id EntityID) bool {
	_, ok := s.data[id]
	return ok
}

func (s *Store[T]) Len() int {
	return len(s.data)
}

// IDs returns every stored ID in ascending order.
func (s *Store[T]) IDs() []EntityID {
	ids := make([]EntityID, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Each visits components in ID order. The callback may remove the visited
// entity (or any other) safely; removed entries are skipped.
func (s *Store[T]) Each(fn func(EntityID, *T)) {
	for _, id := range s.IDs() {
		if c, ok := s.data[id]; ok {
			fn(id, c)
		}
	}
}

type storeEntry[T any] struct {
	ID    EntityID `json:"id"`
	Value *T       `json:"value"`
}

// MarshalJSON encodes the store as an ID-sorted array so snapshots are
// byte-stable.
func (s Store[T]) MarshalJSON() ([]byte, error) {
	out := make([]storeEntry[T], 0, len(s.data))
	for _, id := range s.IDs() {
		out = append(out, storeEntry[T]{ID: id, Value: s.data[id]})
	}
	return json.Marshal(out)
}

func (s *Store[T]) UnmarshalJSON(b []byte) error {
	var in []storeEntry[T]
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	s.data = make(map[EntityID]*T, len(in))
	for _, e := range in {
		if e.Value == nil {
			continue
		}
		s.data[e.ID] = e.Value
	}
	return nil
}
