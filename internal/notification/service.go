// Package notification implements the dismissible, top-level notifications the
// KYC wizard raises for transport and server failures.
package notification

import (
	"sync"
	"time"

	"launchkart/pkg/logger"

	"github.com/google/uuid"
)

// Level represents the severity shown next to a notification.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notification is a single message waiting to be dismissed.
type Notification struct {
	ID        uuid.UUID
	Level     Level
	Source    string // operation that raised it, e.g. "fetch_status"
	Message   string
	CreatedAt time.Time
}

// Notifier is what the wizard depends on.
type Notifier interface {
	Push(level Level, source, message string) Notification
}

// Center keeps pending notifications in arrival order.
type Center struct {
	logger logger.Logger
	mu     sync.Mutex
	items  []Notification
	now    func() time.Time
}

// NewCenter creates an empty notification center.
func NewCenter(log logger.Logger) *Center {
	return &Center{
		logger: log,
		now:    time.Now,
	}
}

// Push appends a notification and logs it.
func (c *Center) Push(level Level, source, message string) Notification {
	n := Notification{
		ID:        uuid.New(),
		Level:     level,
		Source:    source,
		Message:   message,
		CreatedAt: c.now(),
	}

	c.mu.Lock()
	c.items = append(c.items, n)
	c.mu.Unlock()

	fields := map[string]interface{}{
		"notification_id": n.ID.String(),
		"source":          source,
		"message":         message,
	}
	if level == LevelError {
		c.logger.Warn("Notification raised", fields)
	} else {
		c.logger.Debug("Notification raised", fields)
	}
	return n
}

// Pending returns a copy of the notifications not yet dismissed.
func (c *Center) Pending() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Notification, len(c.items))
	copy(out, c.items)
	return out
}

// Dismiss removes one notification. It reports whether it was present.
func (c *Center) Dismiss(id uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, n := range c.items {
		if n.ID == id {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return true
		}
	}
	return false
}

// DismissAll clears the queue and returns what was pending.
func (c *Center) DismissAll() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := c.items
	c.items = nil
	return out
}
