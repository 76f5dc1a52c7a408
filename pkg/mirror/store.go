package mirror

import (
	"sync"

	"go.uber.org/atomic"

	"github.com/daimatz/mirror/pkg/mirrorerrors"
)

const (
	statePending int32 = iota
	stateReady
	stateFailed
)

// entry is one slot of a store. value and err are written once, before
// done is closed.
type entry[V any] struct {
	state atomic.Int32
	done  chan struct{}
	value V
	err   error
}

type outcome uint8

const (
	// outcomeHit found a ready entry.
	outcomeHit outcome = iota
	// outcomeJoined waited for another caller's construction.
	outcomeJoined
	// outcomeBuilt ran the construction itself.
	outcomeBuilt
)

// store maps keys to values built at most once per key. Ready lookups do
// not lock. A failed construction is handed to the callers waiting on it
// and then forgotten, so the next caller builds again.
type store[K comparable, V any] struct {
	entries sync.Map // K -> *entry[V]
}

func (s *store[K, V]) getOrCreate(key K, build func() (V, error)) (V, outcome, error) {
	if v, ok := s.entries.Load(key); ok {
		if e := v.(*entry[V]); e.state.Load() == stateReady {
			return e.value, outcomeHit, nil
		}
	}
	e := &entry[V]{done: make(chan struct{})}
	if actual, loaded := s.entries.LoadOrStore(key, e); loaded {
		e = actual.(*entry[V])
		<-e.done
		if e.state.Load() == stateReady {
			return e.value, outcomeJoined, nil
		}
		var zero V
		return zero, outcomeJoined, e.err
	}
	v, err := s.construct(key, e, build)
	return v, outcomeBuilt, err
}

func (s *store[K, V]) construct(key K, e *entry[V], build func() (V, error)) (v V, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero V
			v = zero
			err = mirrorerrors.Newf(mirrorerrors.KindReflectiveOperation, "construction panicked: %v", r)
		}
		if err != nil {
			e.err = err
			e.state.Store(stateFailed)
			s.entries.CompareAndDelete(key, e)
		} else {
			e.value = v
			e.state.Store(stateReady)
		}
		close(e.done)
	}()
	return build()
}

// evict drops key. It reports whether an entry was present.
func (s *store[K, V]) evict(key K) bool {
	_, ok := s.entries.LoadAndDelete(key)
	return ok
}

// len counts ready entries.
func (s *store[K, V]) len() int {
	n := 0
	s.entries.Range(func(_, v any) bool {
		if v.(*entry[V]).state.Load() == stateReady {
			n++
		}
		return true
	})
	return n
}

func (s *store[K, V]) clear() {
	s.entries.Clear()
}
