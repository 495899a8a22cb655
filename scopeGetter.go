package di

import (
	"fmt"
	"reflect"
	"sync/atomic"
)

// resolution is the Resolver given to factories.
// It is a Scope and the keys being built on the current path.
// building is true until the Factory receiving the resolution returns.
type resolution struct {
	scope    *Scope
	path     *constructionPath
	building *atomic.Bool
}

func (r resolution) GetInstance(key Key) (any, error) {
	return r.scope.getInstance(key, r.path)
}

func (r resolution) GetProvider(key Key) Provider {
	return &providerHandle{scope: r.scope, key: key, lease: r.lease()}
}

func (r resolution) GetLazy(key Key) Provider {
	return &lazyHandle{scope: r.scope, key: key, lease: r.lease()}
}

func (r resolution) Inject(target any) error {
	return r.scope.inject(target, r)
}

func (r resolution) lease() pathLease {
	return pathLease{path: r.path, building: r.building}
}

func (r resolution) Scope() *Scope {
	return r.scope
}

// GetInstance returns the object bound to the Key.
//
// The Key is searched in this Scope, then in its parents from the nearest to the root.
// The first Scope having a Binding for the Key (or an object cached for it) provides the object.
// If no Scope has a Binding, the Factory of the Key type is looked up in the registries.
// Singletons built by such a Factory are kept in the root-most Scope accepting their Marker.
func (s *Scope) GetInstance(key Key) (any, error) {
	return s.getInstance(key, nil)
}

// Fill is similar to GetInstance but it does not return the object.
// Instead it fills the provided object with the value returned by GetInstance.
// The provided object must be a pointer to the value returned by GetInstance.
func (s *Scope) Fill(key Key, dst any) error {
	obj, err := s.GetInstance(key)
	if err != nil {
		return err
	}
	return fill(obj, dst)
}

// Inject fills the members of target with the MemberInjector
// registered for its type in the registries.
func (s *Scope) Inject(target any) error {
	return s.inject(target, resolution{scope: s})
}

func (s *Scope) getInstance(key Key, path *constructionPath) (any, error) {
	if key.Type == nil {
		return nil, fmt.Errorf("could not get an object: %w: the key type can not be nil", ErrInvalidBinding)
	}

	sl, err := s.lookup(key)
	if err != nil {
		return nil, err
	}

	return sl.resolve(resolution{scope: s, path: path})
}

// lookup finds the slot of the Key, from this Scope to the root.
// A slot is only created in the Scope having the Binding,
// or in the Scope chosen for an object built by a registered Factory.
func (s *Scope) lookup(key Key) (*slot, error) {
	if s.IsClosed() {
		return nil, closedScopeError(s.name, key)
	}

	for sc := s; sc != nil; sc = sc.parent {
		if sl, ok := sc.slots.Load(key); ok {
			return sl.(*slot), nil
		}

		sl, found, err := sc.bindingSlot(key)
		if err != nil {
			return nil, err
		}
		if found {
			return sl, nil
		}
	}

	return s.factorySlot(key)
}

// bindingSlot returns the slot for the Binding of the Key in this Scope, if there is one.
func (s *Scope) bindingSlot(key Key) (*slot, bool, error) {
	s.m.RLock()
	defer s.m.RUnlock()

	if s.closed {
		return nil, false, closedScopeError(s.name, key)
	}

	b, ok := s.bindings[key]
	if !ok {
		return nil, false, nil
	}

	sl, _ := s.slots.LoadOrStore(key, newBindingSlot(s, b))

	return sl.(*slot), true, nil
}

// factorySlot returns a slot for a Key that is not bound in any Scope.
func (s *Scope) factorySlot(key Key) (*slot, error) {
	if key.Name != "" {
		return nil, &NoFactoryError{Key: key}
	}

	f, ok := s.forest.registries.factory(key.Type)
	if !ok {
		return nil, &NoFactoryError{Key: key}
	}

	marker := f.Marker()

	// Unscoped objects are built each time with the requesting Scope.
	// There is nothing to cache, so the slot is not stored.
	if marker == "" && !f.Singleton() {
		return newFactorySlot(s, key, f), nil
	}

	if marker == "" {
		marker = Singleton
	}

	host := s.acceptingScope(marker)
	if host == nil {
		return nil, &IllegalBindingError{Key: key, Marker: marker, Scope: s.name}
	}

	host.m.RLock()
	defer host.m.RUnlock()

	if host.closed {
		return nil, closedScopeError(host.name, key)
	}

	sl, _ := host.slots.LoadOrStore(key, newFactorySlot(host, key, f))

	return sl.(*slot), nil
}

// strategyFor analyzes the source of an unresolved slot hosted by s.
// It returns the strategy to use and whether its result should be kept.
func (s *Scope) strategyFor(key Key, e *slotEntry) (strategy, bool, error) {
	if e.binding == nil {
		var host *Scope
		if e.factory.Marker() != "" || e.factory.Singleton() {
			host = s
		}
		return &factoryStrategy{factory: e.factory, host: host}, e.factory.Singleton(), nil
	}

	b := e.binding

	var host *Scope
	if b.inScope {
		host = s
	}

	switch b.mode {
	case Instance:
		return instanceStrategy{obj: b.instance}, true, nil

	case ProviderInstance:
		return &providerInstanceStrategy{provider: b.provider}, b.providesSingleton, nil

	case Simple, Class:
		f, err := s.bindingFactory(key, b.constructedType())
		if err != nil {
			return nil, false, err
		}
		if f.Marker() != "" || f.Singleton() {
			host = s
		}
		return &factoryStrategy{factory: f, host: host}, b.singleton || f.Singleton(), nil

	case ProviderClass:
		f, err := s.bindingFactory(key, b.target)
		if err != nil {
			return nil, false, err
		}
		if f.Marker() != "" || f.Singleton() {
			host = s
		}
		st := &providerClassStrategy{
			factory: f,
			target:  b.target,
			host:    host,
			keep:    b.singleton || f.Singleton(),
		}
		return st, b.providesSingleton || f.ProvidesSingleton(), nil

	default:
		return nil, false, fmt.Errorf("could not get `%s`: %w: unknown mode %s", key, ErrInvalidBinding, b.mode)
	}
}

// bindingFactory returns the Factory of typ, after checking its Marker is accepted.
func (s *Scope) bindingFactory(key Key, typ reflect.Type) (Factory, error) {
	f, ok := s.forest.registries.factory(typ)
	if !ok {
		return nil, &NoFactoryError{Key: Key{Type: typ}}
	}

	if err := s.forest.checker.checkMarker(s, key, f.Marker()); err != nil {
		return nil, err
	}

	return f, nil
}

// keep moves the slot from the resolving entry to the resolved one
// and adds it to the built list. It returns false if the Scope is closed.
func (s *Scope) keep(sl *slot, resolving, resolved *slotEntry) bool {
	s.m.Lock()
	defer s.m.Unlock()

	if s.closed {
		return false
	}

	if sl.entry.CompareAndSwap(resolving, resolved) {
		s.built = append(s.built, sl)
		s.forest.logger.Debug("singleton kept", "scope", formatName(s.name), "key", sl.key.String())
	}

	return true
}

func (s *Scope) inject(target any, res resolution) error {
	if target == nil {
		return fmt.Errorf("could not inject members: %w: the target is nil", ErrInvalidBinding)
	}

	if s.IsClosed() {
		return fmt.Errorf("could not inject members of `%T` in scope `%v`: %w", target, s.name, ErrScopeClosed)
	}

	typ := reflect.TypeOf(target)

	mi, ok := s.forest.registries.memberInjector(typ)
	if !ok {
		return &NoFactoryError{Key: Key{Type: typ}}
	}

	return injectMembers(mi, target, res)
}

// injectMembers wraps the InjectMembers method to recover from a panic.
func injectMembers(mi MemberInjector, target any, res resolution) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("could not inject members of `%T` because the injector panicked: %+v", target, r)
		}
	}()

	return mi.InjectMembers(target, res)
}
