package di

import "fmt"

// InstallModules adds the bindings of the modules to the Scope.
//
// If a Key is already bound in the Scope, the new Binding replaces the old one,
// unless the Forest uses OverrideForbidden. In this case ErrDuplicateBinding is returned
// and none of the bindings are installed.
func (s *Scope) InstallModules(modules ...*Module) error {
	return s.installModules(s.forest.config.OverridePolicy == OverrideAllowed, modules)
}

// InstallTestModules works like InstallModules
// but always lets the new bindings replace the existing ones.
func (s *Scope) InstallTestModules(modules ...*Module) error {
	return s.installModules(true, modules)
}

func (s *Scope) installModules(override bool, modules []*Module) error {
	bindings := []*Binding{}
	seen := map[Key]string{}

	for _, m := range modules {
		if m == nil {
			continue
		}
		for _, b := range m.Bindings() {
			if err := b.validate(); err != nil {
				return fmt.Errorf("could not install module `%s`: %w", m.name, err)
			}
			if other, ok := seen[b.key]; ok && !override {
				return fmt.Errorf(
					"could not install module `%s`: `%s` is also bound by module `%s`: %w",
					m.name, b.key, other, ErrDuplicateBinding,
				)
			}
			seen[b.key] = m.name
			bindings = append(bindings, b.copy())
		}
	}

	s.m.Lock()

	if s.closed {
		s.m.Unlock()
		return fmt.Errorf("could not install modules in scope `%v`: %w", s.name, ErrScopeClosed)
	}

	if !override {
		for _, b := range bindings {
			if _, ok := s.bindings[b.key]; ok {
				s.m.Unlock()
				return fmt.Errorf("could not install `%s` in scope `%v`: %w", b.key, s.name, ErrDuplicateBinding)
			}
		}
	}

	replaced := []closable{}

	for _, b := range bindings {
		s.bindings[b.key] = b
		// The previous slot may contain an object built with the replaced Binding.
		s.slots.Delete(b.key)
		if sl := s.forget(b.key); sl != nil {
			replaced = append(replaced, sl.closable())
		}
	}

	s.m.Unlock()

	s.forest.logger.Debug("modules installed", "scope", formatName(s.name), "bindings", len(bindings))

	return s.closeObjects(replaced)
}

// forget removes the Key from the built list and returns its slot.
// The Scope mutex must be held.
func (s *Scope) forget(key Key) *slot {
	for i, sl := range s.built {
		if sl.key == key {
			s.built = append(s.built[:i], s.built[i+1:]...)
			return sl
		}
	}
	return nil
}

// BindScopeAnnotation declares that the Scope accepts the objects requiring marker.
func (s *Scope) BindScopeAnnotation(marker Marker) {
	s.m.Lock()
	defer s.m.Unlock()

	if !s.markers.Contains(marker) {
		s.markers = append(s.markers, marker)
	}
}

// IsBoundToScopeAnnotation returns true if the Scope itself accepts marker.
func (s *Scope) IsBoundToScopeAnnotation(marker Marker) bool {
	s.m.RLock()
	defer s.m.RUnlock()
	return s.markers.Contains(marker)
}
