package di

import (
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
)

// Provider returns an object each time Get is called.
// It can be bound with Binding.ToProviderInstance or Binding.ToProvider,
// and it is also the type of the handles returned by GetProvider and GetLazy.
type Provider interface {
	Get() (any, error)
}

// ProviderFunc is a Provider based on a function.
type ProviderFunc func() (any, error)

func (f ProviderFunc) Get() (any, error) {
	return f()
}

// strategy is how a slot produces its objects once its Binding has been analyzed.
type strategy interface {
	get(sl *slot, res resolution) (any, error)
}

// instanceStrategy returns a prebuilt object.
type instanceStrategy struct {
	obj any
}

func (st instanceStrategy) get(sl *slot, res resolution) (any, error) {
	return st.obj, nil
}

// factoryStrategy builds a new object with a Factory.
// If host is nil, the object is built with the requesting scope.
type factoryStrategy struct {
	factory Factory
	host    *Scope
}

func (st *factoryStrategy) get(sl *slot, res resolution) (any, error) {
	return construct(st.factory, sl.key, st.host, res)
}

// providerInstanceStrategy calls a Provider.
type providerInstanceStrategy struct {
	provider Provider
}

func (st *providerInstanceStrategy) get(sl *slot, res resolution) (any, error) {
	return callProvider(st.provider, sl.key)
}

// providerClassStrategy builds a Provider with a Factory, then calls it.
// If keep is true, the Provider is only built once.
type providerClassStrategy struct {
	factory Factory
	target  reflect.Type
	host    *Scope
	keep    bool

	m    sync.Mutex
	kept Provider
}

func (st *providerClassStrategy) get(sl *slot, res resolution) (any, error) {
	p, err := st.providerFor(sl, res)
	if err != nil {
		return nil, err
	}
	return callProvider(p, sl.key)
}

func (st *providerClassStrategy) providerFor(sl *slot, res resolution) (Provider, error) {
	if !st.keep {
		return st.build(sl, res)
	}

	st.m.Lock()
	defer st.m.Unlock()

	if st.kept != nil {
		return st.kept, nil
	}

	p, err := st.build(sl, res)
	if err != nil {
		return nil, err
	}

	st.kept = p

	return p, nil
}

func (st *providerClassStrategy) build(sl *slot, res resolution) (Provider, error) {
	obj, err := construct(st.factory, sl.key, st.host, res)
	if err != nil {
		return nil, err
	}

	p, ok := obj.(Provider)
	if !ok {
		return nil, fmt.Errorf("could not get `%s`: `%s` does not implement Provider", sl.key, st.target)
	}

	return p, nil
}

// construct calls the Factory with a Resolver bound to host (or to the requesting scope
// if host is nil), after the cycle check.
func construct(f Factory, key Key, host *Scope, res resolution) (any, error) {
	scope := res.scope
	if host != nil {
		scope = host
	}

	path, err := scope.forest.checker.enter(res.path, key)
	if err != nil {
		return nil, err
	}

	res = resolution{scope: scope, path: path}

	if path != nil {
		res.building = &atomic.Bool{}
		res.building.Store(true)
		defer res.building.Store(false)
	}

	return buildObject(f, res, key)
}

// buildObject wraps the Create function to recover from a panic.
func buildObject(f Factory, res resolution, key Key) (obj any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("could not build `%s` because the factory panicked: %+v", key, r)
		}
	}()

	obj, err = f.Create(res)
	if err != nil {
		return nil, fmt.Errorf("could not build `%s`: %w", key, err)
	}

	return obj, nil
}

// callProvider wraps the Get method of a Provider to recover from a panic.
func callProvider(p Provider, key Key) (obj any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("could not get `%s` because the provider panicked: %+v", key, r)
		}
	}()

	obj, err = p.Get()
	if err != nil {
		return nil, fmt.Errorf("could not get `%s` from its provider: %w", key, err)
	}

	return obj, nil
}
