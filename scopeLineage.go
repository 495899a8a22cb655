package di

// Parent returns the parent Scope, or nil if the Scope is a root.
func (s *Scope) Parent() *Scope {
	return s.parent
}

// IsRoot returns true if the Scope does not have a parent.
func (s *Scope) IsRoot() bool {
	return s.parent == nil
}

// Root returns the root of the tree containing the Scope.
func (s *Scope) Root() *Scope {
	root := s
	for root.parent != nil {
		root = root.parent
	}
	return root
}

// ParentScope returns the nearest Scope, starting with s itself,
// that accepts the given marker. It returns nil if there is none.
func (s *Scope) ParentScope(marker Marker) *Scope {
	for sc := s; sc != nil; sc = sc.parent {
		if sc.IsBoundToScopeAnnotation(marker) {
			return sc
		}
	}
	return nil
}

// acceptingScope returns the root-most Scope of the lineage of s
// that accepts the given marker, or nil if there is none.
func (s *Scope) acceptingScope(marker Marker) *Scope {
	var found *Scope

	for sc := s; sc != nil; sc = sc.parent {
		if sc.IsBoundToScopeAnnotation(marker) {
			found = sc
		}
	}

	return found
}
