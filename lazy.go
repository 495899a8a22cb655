package di

import (
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"
)

// GetProvider returns a Provider that retrieves the Key from the Scope
// each time its Get method is called. Nothing is resolved before that,
// so a Provider can be used to break a cycle between definitions.
func (s *Scope) GetProvider(key Key) Provider {
	return &providerHandle{scope: s, key: key}
}

// GetLazy returns a Provider that retrieves the Key from the Scope
// the first time its Get method is called, and then always returns the same object,
// even if the Key is not a singleton.
func (s *Scope) GetLazy(key Key) Provider {
	return &lazyHandle{scope: s, key: key}
}

type providerHandle struct {
	scope *Scope
	key   Key
	lease pathLease
}

func (h *providerHandle) Get() (any, error) {
	return h.scope.getInstance(h.key, h.lease.current())
}

type lazyHandle struct {
	scope *Scope
	key   Key
	lease pathLease

	group singleflight.Group

	m     sync.Mutex
	done  bool
	value any
}

func (h *lazyHandle) Get() (any, error) {
	if h.scope.IsClosed() {
		return nil, closedScopeError(h.scope.name, h.key)
	}

	if obj, ok := h.load(); ok {
		return obj, nil
	}

	// Concurrent calls share the same resolution.
	// A failed resolution is not memoized, the next call tries again.
	obj, err, _ := h.group.Do("", func() (any, error) {
		if obj, ok := h.load(); ok {
			return obj, nil
		}

		obj, err := h.scope.getInstance(h.key, h.lease.current())
		if err != nil {
			return nil, err
		}

		h.m.Lock()
		h.value = obj
		h.done = true
		h.m.Unlock()

		return obj, nil
	})

	return obj, err
}

func (h *lazyHandle) load() (any, bool) {
	h.m.Lock()
	defer h.m.Unlock()
	return h.value, h.done
}

// TypedProvider wraps a Provider and casts the objects it returns.
type TypedProvider[T any] struct {
	provider Provider
}

// Get calls the wrapped Provider and casts its result to T.
func (p TypedProvider[T]) Get() (T, error) {
	obj, err := p.provider.Get()
	if err != nil {
		var zero T
		return zero, err
	}
	return cast[T](obj)
}

// Provider returns the wrapped Provider.
func (p TypedProvider[T]) Provider() Provider {
	return p.provider
}

// Get retrieves the object bound to T (qualified by name, if given) and casts it to T.
func Get[T any](r Resolver, name ...string) (T, error) {
	obj, err := r.GetInstance(keyFor[T](name))
	if err != nil {
		var zero T
		return zero, err
	}
	return cast[T](obj)
}

// MustGet is similar to Get but it panics if the object can not be retrieved.
func MustGet[T any](r Resolver, name ...string) T {
	obj, err := Get[T](r, name...)
	if err != nil {
		panic(err)
	}
	return obj
}

// GetProvider is the typed version of Resolver.GetProvider.
func GetProvider[T any](r Resolver, name ...string) TypedProvider[T] {
	return TypedProvider[T]{provider: r.GetProvider(keyFor[T](name))}
}

// GetLazy is the typed version of Resolver.GetLazy.
func GetLazy[T any](r Resolver, name ...string) TypedProvider[T] {
	return TypedProvider[T]{provider: r.GetLazy(keyFor[T](name))}
}

func keyFor[T any](name []string) Key {
	if len(name) == 0 {
		return KeyOf[T]()
	}
	return NamedKeyOf[T](name[0])
}

func cast[T any](obj any) (T, error) {
	if obj == nil {
		var zero T
		return zero, nil
	}

	v, ok := obj.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("the object is a `%T`, not a `%s`", obj, TypeOf[T]())
	}

	return v, nil
}
