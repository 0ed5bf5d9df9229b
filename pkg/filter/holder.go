package filter

import (
	"sync"

	"github.com/kasuboski/moviez/pkg/observer"
)

// Change describes the state of a Holder after a mutation
type Change struct {
	Criteria  Criteria
	PanelOpen bool
}

// Holder owns the active criteria and the visibility of the filter panel and
// notifies subscribers after every change.
type Holder struct {
	mu        sync.RWMutex
	criteria  Criteria
	panelOpen bool
	listeners observer.List[Change]
}

func NewHolder() *Holder {
	return &Holder{criteria: Criteria{}}
}

// Criteria returns the active criteria. The returned value must not be modified.
func (h *Holder) Criteria() Criteria {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.criteria
}

// PanelOpen reports whether the filter panel is shown
func (h *Holder) PanelOpen() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.panelOpen
}

// Set changes a single criterion
func (h *Holder) Set(k Key, value string) {
	h.update(func() {
		h.criteria = h.criteria.With(k, value)
	})
}

// Replace installs a whole criteria set
func (h *Holder) Replace(c Criteria) {
	h.update(func() {
		h.criteria = Criteria{}.merge(c)
	})
}

// Clear makes every criterion inactive
func (h *Holder) Clear() {
	h.update(func() {
		h.criteria = Criteria{}
	})
}

// TogglePanel flips the filter panel visibility
func (h *Holder) TogglePanel() {
	h.update(func() {
		h.panelOpen = !h.panelOpen
	})
}

// ShowPanel makes the filter panel visible
func (h *Holder) ShowPanel() {
	h.update(func() {
		h.panelOpen = true
	})
}

// Subscribe registers fn to run after each change
func (h *Holder) Subscribe(fn func(Change)) (unsubscribe func()) {
	return h.listeners.Subscribe(fn)
}

func (h *Holder) update(mutate func()) {
	h.mu.Lock()
	mutate()
	change := Change{Criteria: h.criteria, PanelOpen: h.panelOpen}
	h.mu.Unlock()

	h.listeners.Publish(change)
}

func (c Criteria) merge(other Criteria) Criteria {
	for k, v := range other {
		c[k] = v
	}
	return c
}
