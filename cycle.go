package di

import "sync/atomic"

// constructionPath is the list of keys being built on a resolution path.
// It is an immutable linked list, so a Resolver can hand a longer path
// to a Factory without affecting the other goroutines.
type constructionPath struct {
	key    Key
	parent *constructionPath
	depth  int
}

// push returns a new path ending with key.
func (p *constructionPath) push(key Key) *constructionPath {
	depth := 1
	if p != nil {
		depth = p.depth + 1
	}
	return &constructionPath{key: key, parent: p, depth: depth}
}

// keys returns the keys ordered from the first built to the last one.
func (p *constructionPath) keys() []Key {
	if p == nil {
		return nil
	}

	keys := make([]Key, p.depth)

	for n := p; n != nil; n = n.parent {
		keys[n.depth-1] = n.key
	}

	return keys
}

// cycle returns the keys from the first occurrence of key to the end of the path,
// followed by key. It returns nil if key is not in the path.
func (p *constructionPath) cycle(key Key) []Key {
	keys := p.keys()

	for i, k := range keys {
		if k == key {
			return append(keys[i:len(keys):len(keys)], key)
		}
	}

	return nil
}

// pathLease is the construction path of the build that created a Provider.
// A dereference joins that path while the build is running,
// and starts a new path once the Factory has returned.
type pathLease struct {
	path     *constructionPath
	building *atomic.Bool
}

func (l pathLease) current() *constructionPath {
	if l.building != nil && l.building.Load() {
		return l.path
	}
	return nil
}

// checker contains the runtime checks that can be disabled in production.
type checker interface {
	// enter is called before building key. It returns the path to give to the Factory.
	enter(path *constructionPath, key Key) (*constructionPath, error)

	// checkMarker verifies that an object requiring marker can be hosted by s.
	checkMarker(s *Scope, key Key, marker Marker) error
}

// productionChecker does not check anything.
type productionChecker struct{}

func (productionChecker) enter(path *constructionPath, key Key) (*constructionPath, error) {
	return nil, nil
}

func (productionChecker) checkMarker(s *Scope, key Key, marker Marker) error {
	return nil
}

// developmentChecker detects cycles and illegal bindings.
type developmentChecker struct{}

func (developmentChecker) enter(path *constructionPath, key Key) (*constructionPath, error) {
	if cycle := path.cycle(key); cycle != nil {
		return nil, &CyclicDependencyError{Path: cycle}
	}
	return path.push(key), nil
}

func (developmentChecker) checkMarker(s *Scope, key Key, marker Marker) error {
	if marker == "" || s.acceptingScope(marker) != nil {
		return nil
	}
	return &IllegalBindingError{Key: key, Marker: marker, Scope: s.Name()}
}
