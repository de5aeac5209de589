/*
Package registry tracks which live connections belong to which delivery group
and fans events out to them.

Key concepts:
  - Cells: every active group key (user:<id> or topic:<id>) is represented by
    an isolated Cell (actor) owning delivery for that group's sessions.
  - Backpressure: per-group mailboxes decouple publishers from slow sockets,
    so a stalled consumer never blocks the producing request.
  - Concurrency: lock-free cell lookups via sync.Map, fine-grained RWMutex
    inside each cell, no global lock on the broadcast path.
*/
package registry

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/smarthunt/realtime-service/internal/domain/event"
)

// delivery pairs an event with the membership snapshot taken when it was
// accepted. Connections joining afterwards never see it; connections that
// detached in the meantime are skipped at delivery time.
type delivery struct {
	ev  *event.Event
	ids []uuid.UUID
}

// Cell owns delivery for a single group key.
type Cell struct {
	group string

	// mailbox decouples the broadcast caller from socket-bound delivery.
	mailbox chan delivery

	// sessions holds every live transport channel in the group. A user group
	// multiplexes one event to all of the user's devices/tabs.
	sessions map[uuid.UUID]Connector

	mu sync.RWMutex

	doneCh   chan struct{}
	stopOnce sync.Once

	sendTimeout    time.Duration
	lastActivityAt time.Time
}

func NewCell(group string, mailboxSize int, sendTimeout time.Duration) *Cell {
	c := &Cell{
		group:          group,
		mailbox:        make(chan delivery, mailboxSize),
		sessions:       make(map[uuid.UUID]Connector),
		doneCh:         make(chan struct{}),
		sendTimeout:    sendTimeout,
		lastActivityAt: time.Now(),
	}
	go c.loop()
	return c
}

// IsIdle reports whether the cell has no sessions and has been quiet longer
// than timeout, making it eligible for janitor eviction.
func (c *Cell) IsIdle(timeout time.Duration) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.sessions) == 0 && time.Since(c.lastActivityAt) > timeout
}

// Push enqueues an event together with the membership snapshot taken at this
// moment. Returns false when the group is empty or the mailbox is full.
func (c *Cell) Push(ev *event.Event) bool {
	c.mu.Lock()
	c.lastActivityAt = time.Now()
	if len(c.sessions) == 0 {
		c.mu.Unlock()
		return false
	}
	ids := make([]uuid.UUID, 0, len(c.sessions))
	for id := range c.sessions {
		ids = append(ids, id)
	}
	c.mu.Unlock()

	select {
	case <-c.doneCh:
		return false
	case c.mailbox <- delivery{ev: ev, ids: ids}:
		return true
	default:
		return false
	}
}

func (c *Cell) Attach(conn Connector) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastActivityAt = time.Now()
	c.sessions[conn.GetID()] = conn
}

// Detach removes a session and reports whether the cell is now empty.
func (c *Cell) Detach(connID uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sessions, connID)
	c.lastActivityAt = time.Now()
	return len(c.sessions) == 0
}

// Members returns a snapshot of the session ids currently attached.
func (c *Cell) Members() []uuid.UUID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := make([]uuid.UUID, 0, len(c.sessions))
	for id := range c.sessions {
		ids = append(ids, id)
	}
	return ids
}

func (c *Cell) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.sessions)
}

func (c *Cell) loop() {
	for {
		select {
		case <-c.doneCh:
			return
		case d := <-c.mailbox:
			c.deliver(d)
		}
	}
}

// deliver multiplexes one event to its publish-time snapshot. Holding the
// read lock here serializes against Detach, so a connection is never sent to
// after it has been detached and closed. Per-session enqueue failures are
// local to that session.
func (c *Cell) deliver(d delivery) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, id := range d.ids {
		if conn, ok := c.sessions[id]; ok {
			conn.Send(d.ev, c.sendTimeout)
		}
	}
}

func (c *Cell) Stop() {
	c.stopOnce.Do(func() {
		close(c.doneCh)
	})
}
