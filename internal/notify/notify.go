// Package notify carries user-facing notifications (toasts) out of the flows.
package notify

import (
	"sync"
	"time"
)

// Variant distinguishes plain notices from destructive ones.
type Variant string

const (
	VariantDefault     Variant = "default"
	VariantDestructive Variant = "destructive"
)

// Notification is a single toast.
type Notification struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Variant     Variant   `json:"variant"`
	At          time.Time `json:"at"`
}

// Notifier receives notifications from a flow.
type Notifier interface {
	Notify(n Notification)
}

// Func adapts a function to Notifier.
type Func func(Notification)

// Notify calls f(n).
func (f Func) Notify(n Notification) { f(n) }

// Discard drops every notification.
var Discard Notifier = Func(func(Notification) {})

// Info builds a default-variant notification.
func Info(title, description string) Notification {
	return Notification{Title: title, Description: description, Variant: VariantDefault}
}

// Destructive builds a destructive-variant notification.
func Destructive(title, description string) Notification {
	return Notification{Title: title, Description: description, Variant: VariantDestructive}
}

const defaultQueueLimit = 20

// Queue buffers notifications until a client drains them. The oldest entries
// are dropped once the limit is reached.
type Queue struct {
	mu    sync.Mutex
	items []Notification
	limit int
	now   func() time.Time
}

// NewQueue constructs a Queue keeping at most limit entries.
func NewQueue(limit int) *Queue {
	if limit <= 0 {
		limit = defaultQueueLimit
	}
	return &Queue{limit: limit, now: time.Now}
}

// Notify appends n, stamping it if needed.
func (q *Queue) Notify(n Notification) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if n.At.IsZero() {
		n.At = q.now().UTC()
	}
	if n.Variant == "" {
		n.Variant = VariantDefault
	}
	q.items = append(q.items, n)
	if over := len(q.items) - q.limit; over > 0 {
		q.items = append([]Notification(nil), q.items[over:]...)
	}
}

// Drain returns and clears all buffered notifications.
func (q *Queue) Drain() []Notification {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.items
	q.items = nil
	if out == nil {
		return []Notification{}
	}
	return out
}

// Len reports the number of buffered notifications.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
