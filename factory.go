package di

import (
	"fmt"
	"reflect"
	"sync"
)

// Resolver is what a Factory receives to retrieve the dependencies
// of the object it builds. A *Scope is a Resolver.
//
// The Resolver given to a Factory is bound to the Scope that hosts the object
// and remembers the keys being built on the current resolution path.
// It should not be kept after Create returns. Keep a Provider or a Lazy instead.
type Resolver interface {
	// GetInstance returns the object for the given Key.
	GetInstance(key Key) (any, error)

	// GetProvider returns a Provider that resolves the Key each time it is called.
	GetProvider(key Key) Provider

	// GetLazy returns a Provider that resolves the Key the first time it is called
	// and then always returns the same object.
	GetLazy(key Key) Provider

	// Inject fills the members of target with the MemberInjector registered for its type.
	Inject(target any) error

	// Scope returns the Scope used to resolve the dependencies.
	// The Scope does not know the keys being built, so a Factory must
	// resolve its dependencies through the Resolver it receives.
	// Going through the Scope hides cycles from the development checks.
	Scope() *Scope
}

// Factory knows how to build one concrete type.
//
// Factories are usually generated or hand-written and registered
// in a FactoryTable. The engine only relies on these four methods.
type Factory interface {
	// Create builds a new object. Its dependencies are retrieved with r.
	Create(r Resolver) (any, error)

	// Marker returns the Marker of the type, or an empty Marker
	// if the type is not tied to a scope.
	Marker() Marker

	// Singleton returns true if only one object should be built
	// in the scope accepting the Marker.
	Singleton() bool

	// ProvidesSingleton is only relevant for types implementing Provider.
	// It returns true if the Provider output should be computed once and cached.
	ProvidesSingleton() bool
}

// MemberInjector fills the fields of an object that was not built by a Factory.
type MemberInjector interface {
	InjectMembers(target any, r Resolver) error
}

// Registry is a lookup table for factories and member injectors.
type Registry interface {
	Factory(t reflect.Type) (Factory, bool)
	MemberInjector(t reflect.Type) (MemberInjector, bool)
}

// FuncFactory is a Factory based on a function.
// It should be created with NewFactory or RegisterFactory.
type FuncFactory[T any] struct {
	create            func(r Resolver) (T, error)
	marker            Marker
	singleton         bool
	providesSingleton bool
}

// NewFactory creates a FuncFactory. By default the created objects
// are not tied to a scope and are built each time they are requested.
func NewFactory[T any](create func(r Resolver) (T, error)) *FuncFactory[T] {
	return &FuncFactory[T]{create: create}
}

// InScope ties the objects built by the Factory to the given Marker.
func (f *FuncFactory[T]) InScope(marker Marker) *FuncFactory[T] {
	f.marker = marker
	return f
}

// AsSingleton makes the Factory build only one object per scope accepting its Marker.
// If no Marker was set, the Singleton Marker is used.
func (f *FuncFactory[T]) AsSingleton() *FuncFactory[T] {
	if f.marker == "" {
		f.marker = Singleton
	}
	f.singleton = true
	return f
}

// AsProvidingSingleton declares that T is a Provider whose output should be cached.
func (f *FuncFactory[T]) AsProvidingSingleton() *FuncFactory[T] {
	f.providesSingleton = true
	return f
}

func (f *FuncFactory[T]) Create(r Resolver) (any, error) {
	obj, err := f.create(r)
	if err != nil {
		return nil, err
	}
	return obj, nil
}

func (f *FuncFactory[T]) Marker() Marker {
	return f.marker
}

func (f *FuncFactory[T]) Singleton() bool {
	return f.singleton
}

func (f *FuncFactory[T]) ProvidesSingleton() bool {
	return f.providesSingleton
}

// MemberInjectorFunc is a MemberInjector based on a function.
type MemberInjectorFunc[T any] func(target T, r Resolver) error

func (fn MemberInjectorFunc[T]) InjectMembers(target any, r Resolver) error {
	t, ok := target.(T)
	if !ok {
		return fmt.Errorf("could not inject members: expected a `%s`, got a `%T`", TypeOf[T](), target)
	}
	return fn(t, r)
}

// FactoryTable is a Registry filled at initialization time.
// It is safe for concurrent use.
type FactoryTable struct {
	m         sync.RWMutex
	factories map[reflect.Type]Factory
	injectors map[reflect.Type]MemberInjector
}

// NewFactoryTable creates an empty FactoryTable.
func NewFactoryTable() *FactoryTable {
	return &FactoryTable{
		factories: map[reflect.Type]Factory{},
		injectors: map[reflect.Type]MemberInjector{},
	}
}

// Register adds a Factory for the given type.
// It replaces any Factory previously registered for this type.
func (t *FactoryTable) Register(typ reflect.Type, f Factory) {
	t.m.Lock()
	t.factories[typ] = f
	t.m.Unlock()
}

// RegisterInjector adds a MemberInjector for the given type.
func (t *FactoryTable) RegisterInjector(typ reflect.Type, mi MemberInjector) {
	t.m.Lock()
	t.injectors[typ] = mi
	t.m.Unlock()
}

func (t *FactoryTable) Factory(typ reflect.Type) (Factory, bool) {
	t.m.RLock()
	f, ok := t.factories[typ]
	t.m.RUnlock()
	return f, ok
}

func (t *FactoryTable) MemberInjector(typ reflect.Type) (MemberInjector, bool) {
	t.m.RLock()
	mi, ok := t.injectors[typ]
	t.m.RUnlock()
	return mi, ok
}

// Len returns the number of registered factories.
func (t *FactoryTable) Len() int {
	t.m.RLock()
	defer t.m.RUnlock()
	return len(t.factories)
}

// RegisterFactory registers a FuncFactory for T in the table and returns it,
// so it can be configured with InScope, AsSingleton or AsProvidingSingleton.
func RegisterFactory[T any](t *FactoryTable, create func(r Resolver) (T, error)) *FuncFactory[T] {
	f := NewFactory(create)
	t.Register(TypeOf[T](), f)
	return f
}

// RegisterMemberInjector registers a MemberInjectorFunc for T in the table.
func RegisterMemberInjector[T any](t *FactoryTable, inject func(target T, r Resolver) error) {
	t.RegisterInjector(TypeOf[T](), MemberInjectorFunc[T](inject))
}

// registryChain queries registries in order. The first match wins.
type registryChain []Registry

func (c registryChain) factory(typ reflect.Type) (Factory, bool) {
	for _, r := range c {
		if r == nil {
			continue
		}
		if f, ok := r.Factory(typ); ok {
			return f, true
		}
	}
	return nil, false
}

func (c registryChain) memberInjector(typ reflect.Type) (MemberInjector, bool) {
	for _, r := range c {
		if r == nil {
			continue
		}
		if mi, ok := r.MemberInjector(typ); ok {
			return mi, true
		}
	}
	return nil, false
}
