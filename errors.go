package di

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoFactory is returned when nothing knows how to build a Key.
	ErrNoFactory = errors.New("no factory found")

	// ErrCyclicDependency is returned when a Key is required
	// while it is already being built on the same resolution path.
	ErrCyclicDependency = errors.New("cyclic dependency")

	// ErrIllegalBinding is returned when an object declaring a Marker
	// is resolved in a Scope lineage that does not accept this Marker.
	ErrIllegalBinding = errors.New("illegal binding")

	// ErrMultipleRootScopes is returned when a second root Scope is opened
	// while the Forest uses PreventMultipleRoots.
	ErrMultipleRootScopes = errors.New("multiple root scopes")

	// ErrScopeClosed is returned when a closed Scope, or a handle
	// created by a closed Scope, is used.
	ErrScopeClosed = errors.New("scope is closed")

	// ErrParentMismatch is returned by OpenScopes when a scope
	// is already open with another parent.
	ErrParentMismatch = errors.New("scope already open with a different parent")

	// ErrDuplicateBinding is returned when a Key is bound twice in a Scope
	// and the configuration forbids overrides.
	ErrDuplicateBinding = errors.New("duplicate binding")

	// ErrInvalidBinding is returned when a Binding is not well defined.
	ErrInvalidBinding = errors.New("invalid binding")
)

// NoFactoryError is returned when no Binding and no Factory exist for Key.
type NoFactoryError struct {
	Key Key
}

func (e *NoFactoryError) Error() string {
	return fmt.Sprintf("could not get `%s`: no binding and no factory found", e.Key)
}

func (e *NoFactoryError) Is(target error) bool {
	return target == ErrNoFactory
}

// CyclicDependencyError contains the keys involved in a cycle.
// The first and the last element of Path are the same Key.
type CyclicDependencyError struct {
	Path []Key
}

func (e *CyclicDependencyError) Error() string {
	parts := make([]string, len(e.Path))
	for i, k := range e.Path {
		parts[i] = k.String()
	}
	return "cyclic dependency detected: " + strings.Join(parts, " -> ")
}

func (e *CyclicDependencyError) Is(target error) bool {
	return target == ErrCyclicDependency
}

// IllegalBindingError is returned when Key is built by a Factory declaring Marker
// and the Scope does not accept Marker.
type IllegalBindingError struct {
	Key    Key
	Marker Marker
	Scope  any
}

func (e *IllegalBindingError) Error() string {
	return fmt.Sprintf(
		"could not get `%s`: it requires the `%s` marker which is not bound to scope `%v` or any of its parents",
		e.Key, e.Marker, e.Scope,
	)
}

func (e *IllegalBindingError) Is(target error) bool {
	return target == ErrIllegalBinding
}

func closedScopeError(name any, key Key) error {
	return fmt.Errorf("could not get `%s` from scope `%v`: %w", key, name, ErrScopeClosed)
}
