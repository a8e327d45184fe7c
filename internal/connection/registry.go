package connection

import "sync"

// registry is the handle-scoped event table. Closing the handle releases
// every registered handler in one step, so a reconnect can never observe
// leftovers from a previous registration round.
type registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

func newRegistry() *registry {
	return &registry{
		handlers: make(map[string]Handler),
	}
}

// on registers a handler for an event name. Registering the same name again
// replaces the previous handler; handlers never stack.
func (r *registry) on(event string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[event] = h
}

// off removes the handler for an event name. Removing an unregistered name
// is a no-op.
func (r *registry) off(event string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handlers, event)
}

// lookup returns the handler for an event name, if any.
func (r *registry) lookup(event string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[event]
	return h, ok
}

// count returns the number of handlers registered for an event name (0 or 1).
func (r *registry) count(event string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.handlers[event]; ok {
		return 1
	}
	return 0
}

// total returns the number of registered event names.
func (r *registry) total() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers)
}

// detachAll removes every registered handler.
func (r *registry) detachAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.handlers)
}
