// Package ecs is a small sparse-set entity/component registry: entities are
// generation-counted ids and each component type lives in its own dense store.
package ecs

import (
	"fmt"
	"reflect"
)

// Entity identifies an entity; the generation detects stale ids after destroy.
type Entity struct {
	index      uint32
	generation uint32
}

func (e Entity) IsZero() bool {
	return e.generation == 0
}

func (e Entity) String() string {
	return fmt.Sprintf("Entity(%d:%d)", e.index, e.generation)
}

type store interface {
	remove(index uint32)
}

// Store is the dense array of one component type.
type Store[T any] struct {
	// sparse maps entity index to dense position, -1 when absent
	sparse   []int32
	dense    []T
	entities []Entity
}

func (s *Store[T]) position(e Entity) int32 {
	if int(e.index) >= len(s.sparse) {
		return -1
	}
	pos := s.sparse[e.index]
	if pos < 0 || s.entities[pos] != e {
		return -1
	}
	return pos
}

func (s *Store[T]) set(e Entity, v T) {
	for int(e.index) >= len(s.sparse) {
		s.sparse = append(s.sparse, -1)
	}
	if pos := s.position(e); pos >= 0 {
		s.dense[pos] = v
		return
	}
	s.sparse[e.index] = int32(len(s.dense))
	s.dense = append(s.dense, v)
	s.entities = append(s.entities, e)
}

// remove swaps the last component into the hole.
func (s *Store[T]) remove(index uint32) {
	if int(index) >= len(s.sparse) || s.sparse[index] < 0 {
		return
	}
	pos := s.sparse[index]
	last := int32(len(s.dense) - 1)
	if pos != last {
		s.dense[pos] = s.dense[last]
		s.entities[pos] = s.entities[last]
		s.sparse[s.entities[pos].index] = pos
	}
	var zero T
	s.dense[last] = zero
	s.dense = s.dense[:last]
	s.entities = s.entities[:last]
	s.sparse[index] = -1
}

func (s *Store[T]) Len() int {
	return len(s.dense)
}

// Registry owns entities and their component stores. Not safe for concurrent use.
type Registry struct {
	generations []uint32
	free        []uint32
	alive       int
	stores      map[reflect.Type]store
}

func NewRegistry() *Registry {
	return &Registry{stores: make(map[reflect.Type]store)}
}

// CreateEntity issues a new entity, recycling destroyed slots.
func (r *Registry) CreateEntity() Entity {
	var index uint32
	if n := len(r.free); n > 0 {
		index = r.free[n-1]
		r.free = r.free[:n-1]
	} else {
		index = uint32(len(r.generations))
		r.generations = append(r.generations, 0)
	}
	r.generations[index]++
	r.alive++
	return Entity{index: index, generation: r.generations[index]}
}

func (r *Registry) Alive(e Entity) bool {
	return !e.IsZero() && int(e.index) < len(r.generations) && r.generations[e.index] == e.generation
}

// DestroyEntity removes the entity and all of its components.
func (r *Registry) DestroyEntity(e Entity) bool {
	if !r.Alive(e) {
		return false
	}
	for _, s := range r.stores {
		s.remove(e.index)
	}
	r.generations[e.index]++
	r.free = append(r.free, e.index)
	r.alive--
	return true
}

// Len returns the number of live entities.
func (r *Registry) Len() int {
	return r.alive
}

// StoreOf returns the store for T, creating it on first use.
func StoreOf[T any](r *Registry) *Store[T] {
	key := reflect.TypeFor[T]()
	if s, ok := r.stores[key]; ok {
		return s.(*Store[T])
	}
	s := &Store[T]{}
	r.stores[key] = s
	return s
}

// Attach sets the T component of e, replacing an existing one.
func Attach[T any](r *Registry, e Entity, v T) {
	if !r.Alive(e) {
		panic(fmt.Sprintf("attaching %T to dead %s", v, e))
	}
	StoreOf[T](r).set(e, v)
}

// Get returns the T component of e. The pointer is valid until the next
// Attach or Remove of T.
func Get[T any](r *Registry, e Entity) (*T, bool) {
	s := StoreOf[T](r)
	pos := s.position(e)
	if pos < 0 {
		return nil, false
	}
	return &s.dense[pos], true
}

// Get2 returns two components of e when both are attached.
func Get2[A, B any](r *Registry, e Entity) (*A, *B, bool) {
	a, ok := Get[A](r, e)
	if !ok {
		return nil, nil, false
	}
	b, ok := Get[B](r, e)
	if !ok {
		return nil, nil, false
	}
	return a, b, true
}

func Remove[T any](r *Registry, e Entity) bool {
	s := StoreOf[T](r)
	if s.position(e) < 0 {
		return false
	}
	s.remove(e.index)
	return true
}

// Each visits every entity with a T component. fn must not attach or remove T.
func Each[T any](r *Registry, fn func(Entity, *T)) {
	s := StoreOf[T](r)
	for i := range s.dense {
		fn(s.entities[i], &s.dense[i])
	}
}
