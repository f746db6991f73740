// Package selector derives read-only view models from state.
//
// Selectors are pure. Memoized selectors compare their inputs with == (slices
// of state are immutable, so collection pointers change exactly when content
// changes) and return the previous result while the inputs are unchanged. A
// caller that holds a result may compare it by pointer to skip work.
//
// Memo caches live in a Selectors value, not in package globals, so two
// engines never share derived state.
package selector

import (
	"sync"

	"github.com/roach88/fmdesk/internal/state"
)

// Func is a selector over the root state.
type Func[R any] func(state.State) R

// Memo1 returns a selector that recomputes project only when in changes.
func Memo1[A comparable, R any](in Func[A], project func(A) R) Func[R] {
	var (
		mu    sync.Mutex
		valid bool
		lastA A
		last  R
	)
	return func(s state.State) R {
		a := in(s)
		mu.Lock()
		defer mu.Unlock()
		if valid && a == lastA {
			return last
		}
		last, lastA, valid = project(a), a, true
		return last
	}
}

type pair[A, B comparable] struct {
	a A
	b B
}

type triple[A, B, C comparable] struct {
	a A
	b B
	c C
}

// Memo2 is Memo1 over two inputs.
func Memo2[A, B comparable, R any](inA Func[A], inB Func[B], project func(A, B) R) Func[R] {
	return Memo1(func(s state.State) pair[A, B] {
		return pair[A, B]{inA(s), inB(s)}
	}, func(k pair[A, B]) R {
		return project(k.a, k.b)
	})
}

// Memo3 is Memo1 over three inputs.
func Memo3[A, B, C comparable, R any](inA Func[A], inB Func[B], inC Func[C], project func(A, B, C) R) Func[R] {
	return Memo1(func(s state.State) triple[A, B, C] {
		return triple[A, B, C]{inA(s), inB(s), inC(s)}
	}, func(k triple[A, B, C]) R {
		return project(k.a, k.b, k.c)
	})
}
