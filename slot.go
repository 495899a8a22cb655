package di

import "sync/atomic"

// slotState is the state of a slot.
//
//	unresolved ──> resolving ──> resolvedSingleton
//	     ^             │
//	     └─(failure)───┤
//	                   └──> resolvedNonSingleton
type slotState int

const (
	unresolved slotState = iota
	resolving
	resolvedSingleton
	resolvedNonSingleton
)

// slotEntry is an immutable snapshot of a slot.
// The slot moves from one entry to another with compare-and-swap operations.
type slotEntry struct {
	state slotState

	// source: binding is nil for objects discovered through the registries.
	binding *Binding
	factory Factory

	value    any
	strategy strategy

	// done is closed when a resolving entry is replaced.
	done chan struct{}
}

// slot is the cache entry of a Key in the Scope hosting it.
type slot struct {
	key   Key
	host  *Scope
	entry atomic.Pointer[slotEntry]
}

func newBindingSlot(host *Scope, b *Binding) *slot {
	sl := &slot{key: b.key, host: host}
	sl.entry.Store(&slotEntry{state: unresolved, binding: b})
	return sl
}

func newFactorySlot(host *Scope, key Key, f Factory) *slot {
	sl := &slot{key: key, host: host}
	sl.entry.Store(&slotEntry{state: unresolved, factory: f})
	return sl
}

// resolve returns the object of the slot.
// Only one goroutine can move the slot out of the unresolved state.
// The other ones wait until it is done, then read the new state.
func (sl *slot) resolve(res resolution) (any, error) {
	for {
		e := sl.entry.Load()

		switch e.state {
		case resolvedSingleton:
			return e.value, nil

		case resolvedNonSingleton:
			return e.strategy.get(sl, res)

		case resolving:
			// Waiting for an object that is being built on the same path would never end.
			if cycle := res.path.cycle(sl.key); cycle != nil {
				return nil, &CyclicDependencyError{Path: cycle}
			}
			<-e.done

		default:
			next := &slotEntry{
				state:   resolving,
				binding: e.binding,
				factory: e.factory,
				done:    make(chan struct{}),
			}
			if sl.entry.CompareAndSwap(e, next) {
				return sl.settle(e, next, res)
			}
		}
	}
}

// settle is called by the goroutine that moved the slot from e to next (resolving).
// It always leaves the slot in another state before returning.
func (sl *slot) settle(e, next *slotEntry, res resolution) (obj any, err error) {
	restore := func() {
		sl.entry.CompareAndSwap(next, e)
	}

	st, singleton, err := sl.host.strategyFor(sl.key, e)
	if err != nil {
		restore()
		close(next.done)
		return nil, err
	}

	if !singleton {
		sl.entry.CompareAndSwap(next, &slotEntry{
			state:    resolvedNonSingleton,
			binding:  e.binding,
			factory:  e.factory,
			strategy: st,
		})
		// Nothing is shared, so the waiting goroutines build their own objects.
		close(next.done)
		return st.get(sl, res)
	}

	defer close(next.done)

	defer func() {
		if r := recover(); r != nil {
			restore()
			panic(r)
		}
	}()

	obj, err = st.get(sl, res)
	if err != nil {
		restore()
		return nil, err
	}

	if !sl.host.keep(sl, next, &slotEntry{
		state:   resolvedSingleton,
		binding: e.binding,
		factory: e.factory,
		value:   obj,
	}) {
		restore()
		sl.host.closeObjects([]closable{{key: sl.key, binding: e.binding, obj: obj}})
		return nil, closedScopeError(sl.host.name, sl.key)
	}

	return obj, nil
}

// closable is a singleton whose Binding may have an OnClose function.
type closable struct {
	key     Key
	binding *Binding
	obj     any
}

func (sl *slot) closable() closable {
	e := sl.entry.Load()
	return closable{key: sl.key, binding: e.binding, obj: e.value}
}
