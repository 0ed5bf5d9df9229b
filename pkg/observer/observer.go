package observer

import "sync"

// Listener is invoked with each published event
type Listener[E any] func(E)

// List keeps a set of listeners and delivers events to them synchronously in
// subscription order. It is safe for concurrent use; listeners run without any
// lock held so they may subscribe, unsubscribe or publish themselves.
type List[E any] struct {
	mu        sync.Mutex
	nextID    int
	listeners []entry[E]
}

type entry[E any] struct {
	id int
	fn Listener[E]
}

// Subscribe registers fn and returns a func that removes it
func (l *List[E]) Subscribe(fn Listener[E]) (unsubscribe func()) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.nextID++
	id := l.nextID
	l.listeners = append(l.listeners, entry[E]{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() { l.remove(id) })
	}
}

func (l *List[E]) remove(id int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	kept := make([]entry[E], 0, len(l.listeners))
	for _, e := range l.listeners {
		if e.id != id {
			kept = append(kept, e)
		}
	}
	l.listeners = kept
}

// Publish delivers e to every current listener
func (l *List[E]) Publish(e E) {
	l.mu.Lock()
	listeners := l.listeners
	l.mu.Unlock()

	for _, entry := range listeners {
		entry.fn(e)
	}
}

// Len returns the number of listeners
func (l *List[E]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.listeners)
}
