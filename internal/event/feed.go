// Package event provides the typed, synchronous publish/subscribe primitive
// shared by entities, collections and the mirror.
//
// A Feed delivers each emitted value to every live subscriber, in
// subscription order, before Emit returns. There is no queue and no
// goroutine: handlers may emit further events on the same or another feed
// and those are delivered re-entrantly.
package event

// Feed is a synchronous event source carrying payloads of type E.
// The zero value is ready to use. A Feed is not safe for concurrent use.
type Feed[E any] struct {
	subs []*subscription[E]
}

type subscription[E any] struct {
	fn     func(E)
	active bool
}

// Subscribe registers fn and returns a cancel function.
// Cancel is idempotent. A subscription cancelled while an Emit is in
// progress is not called for the remainder of that Emit.
func (f *Feed[E]) Subscribe(fn func(E)) (cancel func()) {
	sub := &subscription[E]{fn: fn, active: true}
	f.subs = append(f.subs, sub)

	return func() {
		if !sub.active {
			return
		}
		sub.active = false
		for i, s := range f.subs {
			if s == sub {
				f.subs = append(f.subs[:i:i], f.subs[i+1:]...)
				break
			}
		}
	}
}

// Emit delivers ev to all subscribers registered at the time of the call.
func (f *Feed[E]) Emit(ev E) {
	if len(f.subs) == 0 {
		return
	}
	// Snapshot so subscribe/cancel inside a handler cannot disturb iteration.
	subs := make([]*subscription[E], len(f.subs))
	copy(subs, f.subs)

	for _, sub := range subs {
		if sub.active {
			sub.fn(ev)
		}
	}
}

// Len returns the number of live subscriptions.
func (f *Feed[E]) Len() int {
	return len(f.subs)
}
