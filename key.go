package di

import "reflect"

// Key identifies what a Scope can resolve.
// It is made of a type and an optional qualifier name.
type Key struct {
	Type reflect.Type
	Name string
}

// KeyOf returns the unqualified Key for T.
func KeyOf[T any]() Key {
	return Key{Type: TypeOf[T]()}
}

// NamedKeyOf returns the Key for T qualified by name.
func NamedKeyOf[T any](name string) Key {
	return Key{Type: TypeOf[T](), Name: name}
}

// TypeOf returns the reflect.Type of T.
// It also works for interface types.
func TypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// Named returns a copy of the Key with the given qualifier.
func (k Key) Named(name string) Key {
	k.Name = name
	return k
}

// IsZero returns true if the Key has no type.
func (k Key) IsZero() bool {
	return k.Type == nil
}

func (k Key) String() string {
	typ := "<nil>"
	if k.Type != nil {
		typ = k.Type.String()
	}
	if k.Name == "" {
		return typ
	}
	return typ + "@" + k.Name
}
