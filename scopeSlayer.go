package di

import (
	"fmt"
	"runtime/debug"
)

// markClosed closes the Scope and returns the singletons it kept.
// The Scope can no longer be used after that.
func (s *Scope) markClosed() []closable {
	s.m.Lock()
	defer s.m.Unlock()

	if s.closed {
		return nil
	}

	objects := make([]closable, 0, len(s.built))
	for _, sl := range s.built {
		objects = append(objects, sl.closable())
	}

	s.closed = true
	s.built = nil
	s.bindings = map[Key]*Binding{}
	s.slots.Clear()

	return objects
}

// closeObjects calls the OnClose function of the objects' bindings,
// starting with the last built object.
func (s *Scope) closeObjects(objects []closable) error {
	errBuilder := &multiErrBuilder{}

	for i := len(objects) - 1; i >= 0; i-- {
		errBuilder.Add(s.closeObject(objects[i]))
	}

	return errBuilder.Build()
}

func (s *Scope) closeObject(c closable) (err error) {
	if c.binding == nil || c.binding.close == nil {
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			s.forest.logger.Error("could not close object", "key", c.key.String(), "panic", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("could not close `%s` because OnClose panicked: %+v", c.key, r)
		}
	}()

	if err = c.binding.close(c.obj); err != nil {
		s.forest.logger.Error("could not close object", "key", c.key.String(), "error", err)
		return fmt.Errorf("could not close `%s`: %w", c.key, err)
	}

	return nil
}

// Release drops the releasable singletons kept by the Scope and its descendants.
// They are built again the next time they are requested.
// Their OnClose function is called.
func (s *Scope) Release() error {
	scopes := s.forest.subtree(s)
	errBuilder := &multiErrBuilder{}

	for _, sc := range scopes {
		errBuilder.Add(sc.closeObjects(sc.releaseSingletons()))
	}

	return errBuilder.Build()
}

func (s *Scope) releaseSingletons() []closable {
	s.m.Lock()
	defer s.m.Unlock()

	released := []closable{}
	kept := make([]*slot, 0, len(s.built))

	for _, sl := range s.built {
		e := sl.entry.Load()

		if e.binding == nil || !e.binding.releasable {
			kept = append(kept, sl)
			continue
		}

		if sl.entry.CompareAndSwap(e, &slotEntry{state: unresolved, binding: e.binding}) {
			released = append(released, closable{key: sl.key, binding: e.binding, obj: e.value})
			continue
		}

		kept = append(kept, sl)
	}

	s.built = kept

	if len(released) > 0 {
		s.forest.logger.Debug("singletons released", "scope", formatName(s.name), "count", len(released))
	}

	return released
}
