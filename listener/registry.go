package listener

import "log"

// Registry holds an ordered list of listeners and fans out
// notifications to them sequentially in subscription order. A
// listener failure must never interrupt the core (spec.md §4.4), so
// Notify recovers a panicking callback and logs it rather than letting
// it propagate — the single-threaded cooperative model (spec.md §5)
// means this is a plain synchronous loop, not the channel-based
// broadcaster the teacher's WebSocket fan-out uses for its
// concurrent, many-reader case.
type Registry struct {
	logger    *log.Logger
	listeners []Listener
}

// NewRegistry creates an empty listener registry. logger receives a
// line for every recovered listener panic; pass a discard logger in
// tests that don't care.
func NewRegistry(logger *log.Logger) *Registry {
	return &Registry{logger: logger}
}

// Subscribe adds a listener, appended after any existing subscribers.
func (r *Registry) Subscribe(l Listener) {
	r.listeners = append(r.listeners, l)
}

// Unsubscribe removes the first occurrence of l, if present.
func (r *Registry) Unsubscribe(l Listener) {
	for i, existing := range r.listeners {
		if existing == l {
			r.listeners = append(r.listeners[:i], r.listeners[i+1:]...)
			return
		}
	}
}

// Notify invokes fn for every subscribed listener in subscription
// order, absorbing any panic a listener callback raises.
func (r *Registry) Notify(fn func(Listener)) {
	for _, l := range r.listeners {
		r.safeCall(l, fn)
	}
}

func (r *Registry) safeCall(l Listener, fn func(Listener)) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Printf("listener callback panicked, discarding: %v", rec)
		}
	}()
	fn(l)
}
