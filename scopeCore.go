package di

import (
	"sort"
	"strings"
	"sync"
)

// Scope is a node of a Forest.
// It contains its own bindings, a cache of the objects it hosts,
// and may have a parent whose bindings and objects it can use.
//
// Objects are retrieved with GetInstance. If no Binding is found in the Scope,
// its parents are searched, from the nearest to the root.
// Scopes are created and closed by their Forest.
type Scope struct {
	forest *Forest
	name   any
	parent *Scope

	// children contains the names of the child scopes.
	// It is protected by the forest mutex.
	children map[any]struct{}

	m        sync.RWMutex
	closed   bool
	markers  MarkerList
	bindings map[Key]*Binding

	// slots contains the *slot of each Key hosted by this Scope.
	slots sync.Map

	// built contains the singletons kept by this Scope, in creation order.
	built []*slot
}

func newScope(forest *Forest, name any, parent *Scope) *Scope {
	s := &Scope{
		forest:   forest,
		name:     name,
		parent:   parent,
		children: map[any]struct{}{},
		markers:  MarkerList{},
		bindings: map[Key]*Binding{},
	}

	if parent == nil {
		s.markers = append(s.markers, Singleton)
	}

	if m, ok := name.(Marker); ok && !s.markers.Contains(m) {
		s.markers = append(s.markers, m)
	}

	return s
}

// Name returns the name of the Scope.
func (s *Scope) Name() any {
	return s.name
}

// Scope returns s. It makes *Scope implement Resolver.
func (s *Scope) Scope() *Scope {
	return s
}

// Forest returns the Forest the Scope belongs to.
func (s *Scope) Forest() *Forest {
	return s.forest
}

// Markers returns the markers bound to the Scope.
func (s *Scope) Markers() MarkerList {
	s.m.RLock()
	defer s.m.RUnlock()
	return s.markers.Copy()
}

// BoundKeys returns the keys of the bindings installed in the Scope.
func (s *Scope) BoundKeys() []Key {
	s.m.RLock()
	keys := make([]Key, 0, len(s.bindings))
	for k := range s.bindings {
		keys = append(keys, k)
	}
	s.m.RUnlock()

	sort.Slice(keys, func(i, j int) bool {
		return keys[i].String() < keys[j].String()
	})

	return keys
}

// IsClosed returns true if the Scope has been closed.
func (s *Scope) IsClosed() bool {
	s.m.RLock()
	defer s.m.RUnlock()
	return s.closed
}

// String returns the tree of scopes starting from s,
// with the markers and the keys bound in each scope.
func (s *Scope) String() string {
	s.forest.m.Lock()
	defer s.forest.m.Unlock()

	sb := &strings.Builder{}
	s.writeTree(sb, "", "")
	return sb.String()
}

func (s *Scope) writeTree(sb *strings.Builder, prefix, childPrefix string) {
	sb.WriteString(prefix)
	sb.WriteString(formatName(s.name))

	if markers := s.Markers(); len(markers) > 0 {
		parts := make([]string, len(markers))
		for i, m := range markers {
			parts[i] = string(m)
		}
		sb.WriteString(" [" + strings.Join(parts, ", ") + "]")
	}

	if keys := s.BoundKeys(); len(keys) > 0 {
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k.String()
		}
		sb.WriteString(" {" + strings.Join(parts, ", ") + "}")
	}

	sb.WriteString("\n")

	children := s.forest.childrenOf(s)

	for i, child := range children {
		if i == len(children)-1 {
			child.writeTree(sb, childPrefix+"└── ", childPrefix+"    ")
		} else {
			child.writeTree(sb, childPrefix+"├── ", childPrefix+"│   ")
		}
	}
}
