package event

import "sync"

// Emitter is a synchronous, typed publish/subscribe point owned by a single
// component. Handlers run on the emitting goroutine, in registration order,
// after the emitter's lock has been released. The zero value is ready to use.
type Emitter[T any] struct {
	mu       sync.Mutex
	handlers []handlerEntry[T]
	nextID   uint64
	disposed bool
}

type handlerEntry[T any] struct {
	id uint64
	fn func(T)
}

// On registers a handler and returns a function that removes it.
func (e *Emitter[T]) On(fn func(T)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.disposed {
		return func() {}
	}

	e.nextID++
	id := e.nextID
	e.handlers = append(e.handlers, handlerEntry[T]{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() { e.off(id) })
	}
}

func (e *Emitter[T]) off(id uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i, h := range e.handlers {
		if h.id == id {
			e.handlers = append(e.handlers[:i:i], e.handlers[i+1:]...)
			return
		}
	}
}

// Emit calls every registered handler with v.
func (e *Emitter[T]) Emit(v T) {
	e.mu.Lock()
	if e.disposed || len(e.handlers) == 0 {
		e.mu.Unlock()
		return
	}
	fns := make([]func(T), len(e.handlers))
	for i, h := range e.handlers {
		fns[i] = h.fn
	}
	e.mu.Unlock()

	for _, fn := range fns {
		fn(v)
	}
}

// Len returns the number of registered handlers.
func (e *Emitter[T]) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.handlers)
}

// Dispose drops all handlers. Later registrations are ignored.
func (e *Emitter[T]) Dispose() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.disposed = true
	e.handlers = nil
}
