package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kasuboski/moviez/pkg/observer"
)

const DefaultDuration = 4 * time.Second

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
)

// Notification is a user visible message
type Notification struct {
	ID        string    `json:"id"`
	Level     Level     `json:"type"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// Change is published when a notification is shown or dismissed
type Change struct {
	Notification Notification
	Dismissed    bool
}

// Center keeps the visible notifications. Each one is dismissed automatically
// after the configured duration unless dismissed earlier.
type Center struct {
	duration time.Duration
	now      func() time.Time

	mu        sync.Mutex
	active    []Notification
	timers    map[string]*time.Timer
	closed    bool
	listeners observer.List[Change]
}

type Option func(*Center)

// WithDuration sets how long notifications stay visible. Zero or less keeps them until dismissed.
func WithDuration(d time.Duration) Option {
	return func(c *Center) {
		c.duration = d
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(c *Center) {
		c.now = now
	}
}

func New(opts ...Option) *Center {
	c := &Center{
		duration: DefaultDuration,
		now:      time.Now,
		timers:   make(map[string]*time.Timer),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Center) Success(message string) Notification {
	return c.push(LevelSuccess, message)
}

func (c *Center) Error(message string) Notification {
	return c.push(LevelError, message)
}

func (c *Center) Info(message string) Notification {
	return c.push(LevelInfo, message)
}

func (c *Center) Warning(message string) Notification {
	return c.push(LevelWarning, message)
}

func (c *Center) push(level Level, message string) Notification {
	n := Notification{
		ID:        uuid.NewString(),
		Level:     level,
		Message:   message,
		CreatedAt: c.now(),
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return n
	}
	c.active = append(c.active, n)
	if c.duration > 0 {
		c.timers[n.ID] = time.AfterFunc(c.duration, func() {
			c.Dismiss(n.ID)
		})
	}
	c.mu.Unlock()

	c.listeners.Publish(Change{Notification: n})
	return n
}

// Dismiss removes the notification with id. It reports whether it was still visible.
func (c *Center) Dismiss(id string) bool {
	c.mu.Lock()
	i := c.indexOf(id)
	if i < 0 {
		c.mu.Unlock()
		return false
	}

	n := c.active[i]
	c.active = append(c.active[:i:i], c.active[i+1:]...)
	if t, ok := c.timers[id]; ok {
		t.Stop()
		delete(c.timers, id)
	}
	c.mu.Unlock()

	c.listeners.Publish(Change{Notification: n, Dismissed: true})
	return true
}

// List returns the visible notifications, oldest first
func (c *Center) List() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Notification, len(c.active))
	copy(out, c.active)
	return out
}

func (c *Center) Subscribe(fn func(Change)) (unsubscribe func()) {
	return c.listeners.Subscribe(fn)
}

// Close stops pending timers. Later notifications are dropped.
func (c *Center) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	for id, t := range c.timers {
		t.Stop()
		delete(c.timers, id)
	}
}

func (c *Center) indexOf(id string) int {
	for i, n := range c.active {
		if n.ID == id {
			return i
		}
	}
	return -1
}
