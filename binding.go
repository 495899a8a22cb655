package di

import (
	"fmt"
	"reflect"
)

// Mode is the strategy used by a Binding to produce objects.
type Mode int

const (
	// Simple builds the Key type with its own Factory.
	Simple Mode = iota
	// Class builds another type (usually an implementation of an interface) with its Factory.
	Class
	// Instance always returns the same prebuilt object.
	Instance
	// ProviderInstance calls a Provider given at binding time.
	ProviderInstance
	// ProviderClass builds a Provider of the given type and calls it.
	ProviderClass
)

func (m Mode) String() string {
	switch m {
	case Simple:
		return "simple"
	case Class:
		return "class"
	case Instance:
		return "instance"
	case ProviderInstance:
		return "provider-instance"
	case ProviderClass:
		return "provider-class"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Binding declares how a Scope satisfies a Key.
// Bindings are created with Module.Bind or Bind
// and configured with the chainable methods below.
// Once the Module is installed in a Scope, the Scope works on a copy,
// so modifying the Binding afterwards has no effect on that Scope.
type Binding struct {
	key      Key
	mode     Mode
	target   reflect.Type
	instance any
	provider Provider

	inScope           bool
	singleton         bool
	providesSingleton bool
	releasable        bool
	close             func(obj any) error
}

// Key returns the Key satisfied by the Binding.
func (b *Binding) Key() Key {
	return b.key
}

// Mode returns the Binding mode.
func (b *Binding) Mode() Mode {
	return b.mode
}

// Named sets the qualifier of the bound Key.
func (b *Binding) Named(name string) *Binding {
	b.key.Name = name
	return b
}

// To binds the Key to another type built by its own Factory.
func (b *Binding) To(target reflect.Type) *Binding {
	b.mode = Class
	b.target = target
	return b
}

// ToInstance binds the Key to a prebuilt object.
func (b *Binding) ToInstance(obj any) *Binding {
	b.mode = Instance
	b.instance = obj
	return b
}

// ToProviderInstance binds the Key to a Provider.
func (b *Binding) ToProviderInstance(p Provider) *Binding {
	b.mode = ProviderInstance
	b.provider = p
	return b
}

// ToProvider binds the Key to a Provider type.
// The Provider itself is built with the Factory registered for target.
func (b *Binding) ToProvider(target reflect.Type) *Binding {
	b.mode = ProviderClass
	b.target = target
	return b
}

// InScope makes the objects be built with the Scope where the Binding is installed,
// instead of the Scope that requested them.
func (b *Binding) InScope() *Binding {
	b.inScope = true
	return b
}

// Singleton makes the Scope where the Binding is installed keep the first object it builds.
// For ProviderClass bindings, it is the Provider that is kept.
func (b *Binding) Singleton() *Binding {
	b.inScope = true
	b.singleton = true
	return b
}

// ProvidesSingleton makes the output of the bound Provider be computed once and kept.
func (b *Binding) ProvidesSingleton() *Binding {
	b.inScope = true
	b.providesSingleton = true
	return b
}

// Releasable allows Scope.Release to drop the singleton so it is built again
// the next time it is requested.
func (b *Binding) Releasable() *Binding {
	b.releasable = true
	return b
}

// OnClose registers a function called on the kept object when its Scope is closed.
func (b *Binding) OnClose(fn func(obj any) error) *Binding {
	b.close = fn
	return b
}

// IsSingleton returns true if the Binding keeps the object it builds.
func (b *Binding) IsSingleton() bool {
	return b.singleton
}

// validate checks the Binding is well defined.
func (b *Binding) validate() error {
	if b.key.Type == nil {
		return fmt.Errorf("%w: the key type can not be nil", ErrInvalidBinding)
	}

	switch b.mode {
	case Class, ProviderClass:
		if b.target == nil {
			return fmt.Errorf("%w: `%s` is bound in %s mode without a target type", ErrInvalidBinding, b.key, b.mode)
		}
	case ProviderInstance:
		if b.provider == nil {
			return fmt.Errorf("%w: `%s` is bound to a nil provider", ErrInvalidBinding, b.key)
		}
	}

	if b.providesSingleton && b.mode != ProviderInstance && b.mode != ProviderClass {
		return fmt.Errorf("%w: `%s` uses ProvidesSingleton but is not bound to a provider", ErrInvalidBinding, b.key)
	}

	return nil
}

// constructedType returns the type whose Factory builds the objects, if any.
func (b *Binding) constructedType() reflect.Type {
	switch b.mode {
	case Simple:
		return b.key.Type
	case Class, ProviderClass:
		return b.target
	default:
		return nil
	}
}

// copy returns a snapshot of the Binding.
func (b *Binding) copy() *Binding {
	c := *b
	return &c
}
