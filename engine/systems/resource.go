package systems

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/google/uuid"

	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/renderer/gpu"
)

var (
	ErrInvalidHandle = errors.New("resource handle is not set")
	ErrForeignHandle = errors.New("resource handle belongs to another resource manager")
	ErrStaleHandle   = errors.New("resource handle refers to a freed resource")
)

// Resource is satisfied by a pointer to any GPU object with a Stop lifecycle.
type Resource[T any] interface {
	*T
	Stop()
}

// Handle is a typed reference into a ResourceManager. The zero Handle is
// invalid. A handle only resolves against the manager that created it and
// only until the resource is freed.
type Handle[T any] struct {
	// 1-based so the zero value is unset
	slot       int
	generation uint32
	owner      uuid.UUID
}

func (h Handle[T]) IsValid() bool {
	return h.slot > 0
}

// Owner returns the id of the manager that created the handle.
func (h Handle[T]) Owner() uuid.UUID {
	return h.owner
}

func (h Handle[T]) String() string {
	return fmt.Sprintf("%s#%d.%d", reflect.TypeFor[T]().Name(), h.slot, h.generation)
}

type resourceSlot struct {
	resource   any
	stop       func()
	generation uint32
	live       bool
}

type resourceContainer struct {
	name  string
	slots []resourceSlot
	live  int
}

// ResourceManager creates and owns GPU resources. Each resource type gets its
// own append-only container; freeing stops the resource and retires its slot
// without compacting. Not safe for concurrent use.
type ResourceManager struct {
	ctx        *gpu.Context
	owner      uuid.UUID
	containers map[reflect.Type]*resourceContainer
	// creation order so Shutdown is deterministic
	order []*resourceContainer
}

func NewResourceManager(ctx *gpu.Context) *ResourceManager {
	rm := &ResourceManager{
		ctx:        ctx,
		owner:      uuid.New(),
		containers: make(map[reflect.Type]*resourceContainer),
	}
	core.LogDebug("Resource manager %s created.", rm.owner)
	return rm
}

// Context returns the graphics context resources are initialized against.
func (rm *ResourceManager) Context() *gpu.Context {
	return rm.ctx
}

func (rm *ResourceManager) OwnerID() uuid.UUID {
	return rm.owner
}

func container[T any](rm *ResourceManager, create bool) *resourceContainer {
	key := reflect.TypeFor[T]()
	c, ok := rm.containers[key]
	if !ok && create {
		c = &resourceContainer{name: key.String()}
		rm.containers[key] = c
		rm.order = append(rm.order, c)
	}
	return c
}

/**
 * @brief Creates a resource of type T and runs init on it.
 * On failure the resource is stopped, no slot is taken and the error is returned.
 * @return The handle, the resource itself and any init error.
 */
func CreateResource[T any, PT Resource[T]](rm *ResourceManager, init func(PT) error) (Handle[T], PT, error) {
	resource := PT(new(T))
	if err := init(resource); err != nil {
		resource.Stop()
		var none PT
		return Handle[T]{}, none, fmt.Errorf("failed to create %s: %w", reflect.TypeFor[T](), err)
	}
	c := container[T](rm, true)
	c.slots = append(c.slots, resourceSlot{resource: resource, stop: resource.Stop, live: true})
	c.live++
	return Handle[T]{slot: len(c.slots), owner: rm.owner}, resource, nil
}

func lookup[T any](rm *ResourceManager, h Handle[T]) (*resourceSlot, error) {
	if !h.IsValid() {
		return nil, ErrInvalidHandle
	}
	if h.owner != rm.owner {
		return nil, fmt.Errorf("%w: %s owned by %s, not %s", ErrForeignHandle, h, h.owner, rm.owner)
	}
	c := container[T](rm, false)
	if c == nil || h.slot > len(c.slots) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidHandle, h)
	}
	s := &c.slots[h.slot-1]
	if !s.live || s.generation != h.generation {
		return nil, fmt.Errorf("%w: %s", ErrStaleHandle, h)
	}
	return s, nil
}

// GetResource resolves a handle to its resource.
func GetResource[T any](rm *ResourceManager, h Handle[T]) (*T, error) {
	s, err := lookup(rm, h)
	if err != nil {
		return nil, err
	}
	return s.resource.(*T), nil
}

// GetResources resolves several handles of the same type at once.
func GetResources[T any](rm *ResourceManager, handles ...Handle[T]) ([]*T, error) {
	out := make([]*T, 0, len(handles))
	for _, h := range handles {
		r, err := GetResource(rm, h)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// MustGetResource is GetResource for call sites where a bad handle is a bug.
func MustGetResource[T any](rm *ResourceManager, h Handle[T]) *T {
	r, err := GetResource(rm, h)
	core.Assert(err == nil, "resolving %s: %v", h, err)
	return r
}

// FreeResource stops the resource. The slot is never reused and the handle
// becomes stale.
func FreeResource[T any](rm *ResourceManager, h Handle[T]) error {
	s, err := lookup(rm, h)
	if err != nil {
		return err
	}
	s.stop()
	s.resource = nil
	s.stop = nil
	s.live = false
	s.generation++
	container[T](rm, false).live--
	return nil
}

// Count returns the number of live resources of type T.
func Count[T any](rm *ResourceManager) int {
	c := container[T](rm, false)
	if c == nil {
		return 0
	}
	return c.live
}

/**
 * @brief Stops every live resource, newest type first and newest resource
 * first within a type.
 */
func (rm *ResourceManager) Shutdown() error {
	stopped := 0
	for i := len(rm.order) - 1; i >= 0; i-- {
		c := rm.order[i]
		for j := len(c.slots) - 1; j >= 0; j-- {
			s := &c.slots[j]
			if !s.live {
				continue
			}
			s.stop()
			s.resource = nil
			s.stop = nil
			s.live = false
			s.generation++
			stopped++
		}
		c.live = 0
	}
	core.LogDebug("Resource manager %s stopped %d resources.", rm.owner, stopped)
	return nil
}
