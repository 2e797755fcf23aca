package typedmem

import (
	"sync"

	"go.k6.io/typedmem/errext"
	"go.k6.io/typedmem/lib/arraybuffer"
)

// Registry holds the named shared stores that agents exchange. Every agent
// runtime requiring the module gets the same stores for the same names.
type Registry struct {
	alloc *arraybuffer.Allocator

	mu     sync.Mutex
	stores map[string]*arraybuffer.Store
}

// NewRegistry returns an empty Registry allocating through alloc, or through
// the default allocator when alloc is nil.
func NewRegistry(alloc *arraybuffer.Allocator) *Registry {
	if alloc == nil {
		alloc = arraybuffer.Default()
	}
	return &Registry{alloc: alloc, stores: make(map[string]*arraybuffer.Store)}
}

// Allocator returns the allocator of the registry.
func (r *Registry) Allocator() *arraybuffer.Allocator {
	return r.alloc
}

// GetOrCreate returns the shared store called name, allocating it with
// byteLength bytes on first use. Later calls must ask for the same length.
func (r *Registry) GetOrCreate(name string, byteLength int64) (*arraybuffer.Store, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.stores[name]; ok {
		if s.ByteLength() != byteLength {
			return nil, errext.New(errext.ErrResizeFailed,
				"shared buffer %q already exists with %d bytes, not %d", name, s.ByteLength(), byteLength)
		}
		return s, nil
	}
	s, err := r.alloc.Allocate(byteLength, true)
	if err != nil {
		return nil, err
	}
	s.Logger().WithField("name", name).Debug("Registered shared buffer")
	r.stores[name] = s
	return s, nil
}

// Len returns the number of named stores.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stores)
}
