// Package notify keeps short-lived user notices. Each notice carries an
// explicit deadline; the owner calls Expire with the current time to drop
// the ones that are due.
package notify

import (
	"sync"
	"time"
)

// Severity of a notice.
type Severity int

const (
	Success Severity = iota
	Error
)

func (s Severity) String() string {
	if s == Error {
		return "error"
	}
	return "success"
}

// Default lifetimes.
const (
	SuccessTTL = 2 * time.Second
	ErrorTTL   = 4 * time.Second
)

// TTL returns the default lifetime for s.
func (s Severity) TTL() time.Duration {
	if s == Error {
		return ErrorTTL
	}
	return SuccessTTL
}

// Notice is a message shown to the user until dismissed or due.
type Notice struct {
	ID       int
	Kind     string // producer defined, e.g. "LoadFailed"
	Severity Severity
	Message  string
	Deadline time.Time
}

// Center holds the active notices of one user.
type Center struct {
	now func() time.Time

	mu      sync.Mutex
	seq     int
	notices []Notice
}

// New returns an empty center. A nil clock means time.Now.
func New(now func() time.Time) *Center {
	if now == nil {
		now = time.Now
	}
	return &Center{now: now}
}

// Now returns the center's clock reading.
func (c *Center) Now() time.Time { return c.now() }

// Post adds a notice that is due ttl from now and returns its id. A
// non-positive ttl uses the severity default.
func (c *Center) Post(kind string, sev Severity, msg string, ttl time.Duration) int {
	if ttl <= 0 {
		ttl = sev.TTL()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	c.notices = append(c.notices, Notice{
		ID:       c.seq,
		Kind:     kind,
		Severity: sev,
		Message:  msg,
		Deadline: c.now().Add(ttl),
	})
	return c.seq
}

// Dismiss removes a notice. It reports whether the notice was active.
func (c *Center) Dismiss(id int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, n := range c.notices {
		if n.ID == id {
			c.notices = append(c.notices[:i], c.notices[i+1:]...)
			return true
		}
	}
	return false
}

// Has reports whether id is still active.
func (c *Center) Has(id int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, n := range c.notices {
		if n.ID == id {
			return true
		}
	}
	return false
}

// Active returns the notices not yet dismissed or expired, oldest first.
func (c *Center) Active() []Notice {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Notice(nil), c.notices...)
}

// Expire drops every notice whose deadline is at or before now and
// returns them.
func (c *Center) Expire(now time.Time) []Notice {
	c.mu.Lock()
	defer c.mu.Unlock()
	var due []Notice
	kept := c.notices[:0]
	for _, n := range c.notices {
		if !now.Before(n.Deadline) {
			due = append(due, n)
			continue
		}
		kept = append(kept, n)
	}
	c.notices = kept
	return due
}

// NextDeadline returns the earliest pending deadline.
func (c *Center) NextDeadline() (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var next time.Time
	for _, n := range c.notices {
		if next.IsZero() || n.Deadline.Before(next) {
			next = n.Deadline
		}
	}
	return next, !next.IsZero()
}
