package di

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
)

// Forest contains every open Scope, indexed by name.
// A Forest should be created with NewForest, usually once,
// by the entry point of the application.
//
// Scopes are organized in trees. OpenScopes creates the missing scopes of a chain,
// and CloseScope closes a Scope and all its descendants.
type Forest struct {
	m      sync.Mutex
	scopes map[any]*Scope

	config     Configuration
	checker    checker
	registries registryChain
	logger     Logger
}

// NewForest creates an empty Forest using the given Configuration.
func NewForest(config Configuration) *Forest {
	registries := make(registryChain, len(config.Registries))
	copy(registries, config.Registries)

	return &Forest{
		scopes:     map[any]*Scope{},
		config:     config,
		checker:    config.checker(),
		registries: registries,
		logger:     config.logger(),
	}
}

// Configuration returns the Configuration of the Forest.
func (f *Forest) Configuration() Configuration {
	return f.config
}

// OpenScope returns the Scope with the given name.
// If it does not exist, it is created as a new root.
func (f *Forest) OpenScope(name any) (*Scope, error) {
	return f.OpenScopes(name)
}

// OpenScopes ensures the chain of scopes exists and returns the last one.
// The first name is the outermost scope. Each missing scope is created
// as a child of the previous one in the chain.
// It returns ErrParentMismatch if one of the scopes is already open with another parent.
func (f *Forest) OpenScopes(names ...any) (*Scope, error) {
	f.m.Lock()
	defer f.m.Unlock()

	return f.openScopes(names)
}

// OpenChildScope opens the Scope name as a child of the open Scope parent.
// Unlike OpenScopes, it fails instead of creating parent if it is not open.
func (f *Forest) OpenChildScope(parent, name any) (*Scope, error) {
	f.m.Lock()
	defer f.m.Unlock()

	if _, ok := f.scopes[parent]; !ok {
		return nil, fmt.Errorf("could not open `%v`: the parent scope `%v` is not open", name, parent)
	}

	return f.openScopes([]any{parent, name})
}

// OpenRootScope returns the root Scope with the given name.
// If it does not exist, it is created and configure is called on it
// before any other goroutine can open it. configure can install modules
// and bind markers. It runs with the Forest locked, so it must not call
// the Forest methods, nor Scope.String or Scope.Release.
// If configure fails, the Scope is closed and the error is returned.
func (f *Forest) OpenRootScope(name any, configure func(s *Scope) error) (*Scope, error) {
	f.m.Lock()

	if s, ok := f.scopes[name]; ok {
		f.m.Unlock()
		if s.parent != nil {
			return nil, fmt.Errorf("could not open `%v` as a root scope: %w", name, ErrParentMismatch)
		}
		return s, nil
	}

	s, err := f.openScopes([]any{name})
	if err != nil || configure == nil {
		f.m.Unlock()
		return s, err
	}

	if err := configure(s); err != nil {
		detached := f.detachLocked(s)
		f.m.Unlock()
		return nil, errors.Join(
			fmt.Errorf("could not configure scope `%v`: %w", name, err),
			closeDetached(detached),
		)
	}

	f.m.Unlock()

	return s, nil
}

func (f *Forest) openScopes(names []any) (*Scope, error) {
	if len(names) == 0 {
		return nil, errors.New("at least one scope name is required")
	}

	// Check everything before creating a Scope,
	// so a failure does not leave half of the chain open.
	var parent *Scope
	missing := false

	for i, name := range names {
		if err := checkName(name); err != nil {
			return nil, err
		}
		for _, previous := range names[:i] {
			if previous == name {
				return nil, fmt.Errorf("the scope `%v` appears twice in the chain", name)
			}
		}

		s, ok := f.scopes[name]
		if !ok {
			if i == 0 {
				if err := f.checkNewRoot(name); err != nil {
					return nil, err
				}
			}
			missing = true
			continue
		}

		if i > 0 && (missing || s.parent != parent) {
			return nil, fmt.Errorf(
				"could not open `%v` as a child of `%v`: %w",
				name, names[i-1], ErrParentMismatch,
			)
		}

		parent = s
	}

	parent = nil

	for _, name := range names {
		s, ok := f.scopes[name]
		if !ok {
			s = newScope(f, name, parent)
			f.scopes[name] = s
			if parent != nil {
				parent.children[name] = struct{}{}
			}
			f.logger.Debug("scope opened", "scope", formatName(name), "parent", parentName(parent))
		}
		parent = s
	}

	return parent, nil
}

func checkName(name any) error {
	if name == nil {
		return errors.New("a scope name can not be nil")
	}
	if !reflect.TypeOf(name).Comparable() {
		return fmt.Errorf("a scope name must be comparable, `%T` is not", name)
	}
	return nil
}

func (f *Forest) checkNewRoot(name any) error {
	if f.config.RootPolicy != PreventMultipleRoots {
		return nil
	}

	for _, s := range f.scopes {
		if s.parent == nil {
			return fmt.Errorf(
				"could not open `%v` as a new root, `%v` is already a root: %w",
				name, s.name, ErrMultipleRootScopes,
			)
		}
	}

	return nil
}

// CloseScope closes the Scope with the given name and all its descendants.
// The descendants are closed first. Then the OnClose functions of the kept singletons
// are called and their errors are returned.
// Closing a name that is not open does nothing.
func (f *Forest) CloseScope(name any) error {
	f.m.Lock()

	s, ok := f.scopes[name]
	if !ok {
		f.m.Unlock()
		return nil
	}

	detached := f.detachLocked(s)

	f.m.Unlock()

	return closeDetached(detached)
}

// detachedScope is a closed Scope whose singletons still have to be closed.
type detachedScope struct {
	scope   *Scope
	objects []closable
}

// detachLocked closes s and its descendants and removes them from the Forest.
// The Forest mutex must be held. The returned objects should be closed
// with closeDetached once the mutex is released.
func (f *Forest) detachLocked(s *Scope) []detachedScope {
	scopes := f.subtreeLocked(s)

	if s.parent != nil {
		delete(s.parent.children, s.name)
	}

	detached := make([]detachedScope, 0, len(scopes))

	// subtreeLocked lists the parents before their children.
	for i := len(scopes) - 1; i >= 0; i-- {
		sc := scopes[i]
		delete(f.scopes, sc.name)
		sc.children = map[any]struct{}{}
		detached = append(detached, detachedScope{scope: sc, objects: sc.markClosed()})
		f.logger.Debug("scope closed", "scope", formatName(sc.name))
	}

	return detached
}

func closeDetached(detached []detachedScope) error {
	errBuilder := &multiErrBuilder{}

	for _, d := range detached {
		errBuilder.Add(d.scope.closeObjects(d.objects))
	}

	return errBuilder.Build()
}

// IsScopeOpen returns true if a Scope with the given name is open.
func (f *Forest) IsScopeOpen(name any) bool {
	f.m.Lock()
	defer f.m.Unlock()
	_, ok := f.scopes[name]
	return ok
}

// Scope returns the open Scope with the given name, if any.
func (f *Forest) Scope(name any) (*Scope, bool) {
	f.m.Lock()
	defer f.m.Unlock()
	s, ok := f.scopes[name]
	return s, ok
}

// Roots returns the root scopes, sorted by name.
func (f *Forest) Roots() []*Scope {
	f.m.Lock()
	defer f.m.Unlock()
	return f.rootsLocked()
}

func (f *Forest) rootsLocked() []*Scope {
	roots := []*Scope{}
	for _, s := range f.scopes {
		if s.parent == nil {
			roots = append(roots, s)
		}
	}
	sortScopes(roots)
	return roots
}

// Len returns the number of open scopes.
func (f *Forest) Len() int {
	f.m.Lock()
	defer f.m.Unlock()
	return len(f.scopes)
}

// Reset closes every Scope of the Forest.
func (f *Forest) Reset() error {
	f.m.Lock()

	detached := []detachedScope{}
	for _, root := range f.rootsLocked() {
		detached = append(detached, f.detachLocked(root)...)
	}

	f.m.Unlock()

	return closeDetached(detached)
}

// String returns the trees of the Forest.
func (f *Forest) String() string {
	f.m.Lock()
	defer f.m.Unlock()

	sb := &strings.Builder{}
	for _, root := range f.rootsLocked() {
		root.writeTree(sb, "", "")
	}
	return sb.String()
}

// childrenOf returns the children of s sorted by name. The Forest mutex must be held.
func (f *Forest) childrenOf(s *Scope) []*Scope {
	children := make([]*Scope, 0, len(s.children))
	for name := range s.children {
		if child, ok := f.scopes[name]; ok {
			children = append(children, child)
		}
	}
	sortScopes(children)
	return children
}

// subtree returns s and its descendants, parents before children.
func (f *Forest) subtree(s *Scope) []*Scope {
	f.m.Lock()
	defer f.m.Unlock()
	return f.subtreeLocked(s)
}

func (f *Forest) subtreeLocked(s *Scope) []*Scope {
	scopes := []*Scope{s}

	for i := 0; i < len(scopes); i++ {
		scopes = append(scopes, f.childrenOf(scopes[i])...)
	}

	return scopes
}

func sortScopes(scopes []*Scope) {
	sort.Slice(scopes, func(i, j int) bool {
		return formatName(scopes[i].name) < formatName(scopes[j].name)
	})
}

func parentName(s *Scope) string {
	if s == nil {
		return ""
	}
	return formatName(s.name)
}
