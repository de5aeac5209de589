package registry

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/smarthunt/realtime-service/internal/domain/event"
	"github.com/smarthunt/realtime-service/internal/domain/model"
)

// Hubber is the registry gateway for session management and local fan-out.
type Hubber interface {
	Register(conn Connector)
	Join(connID uuid.UUID, group string)
	Leave(connID uuid.UUID, group string)
	Unregister(connID uuid.UUID)
	Broadcast(group string, ev *event.Event) bool
	MembersOf(group string) []uuid.UUID
	Stats() model.HubStats
	Shutdown()
}

// membership is the reverse index entry: one per live connection, tracking
// every group the connection currently belongs to so Unregister can detach
// it everywhere in one call.
type membership struct {
	conn      Connector
	userGroup string

	mu     sync.Mutex
	groups map[string]struct{}
}

type hubConfig struct {
	mailboxSize      int
	sendTimeout      time.Duration
	idleTimeout      time.Duration
	evictionInterval time.Duration
}

// Hub maps group keys to cells. Lookups are lock-free; structural mutation
// happens per-cell, so broadcasts never contend on a global mutex.
type Hub struct {
	cells       sync.Map // group key -> *Cell
	memberships sync.Map // connection uuid -> *membership

	config    hubConfig
	startedAt time.Time

	janitorStop chan struct{}
	stopOnce    sync.Once
}

func NewHub(opts ...Option) *Hub {
	h := &Hub{
		config: hubConfig{
			mailboxSize:      2048,
			sendTimeout:      500 * time.Millisecond,
			idleTimeout:      30 * time.Minute,
			evictionInterval: 15 * time.Minute,
		},
		startedAt:   time.Now(),
		janitorStop: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	go h.janitor()
	return h
}

func (h *Hub) cellFor(group string) *Cell {
	if val, ok := h.cells.Load(group); ok {
		return val.(*Cell)
	}
	// Create lazily on first member or first publish to the group.
	val, _ := h.cells.LoadOrStore(group, NewCell(group, h.config.mailboxSize, h.config.sendTimeout))
	return val.(*Cell)
}

// Register binds the connection to its user group. Idempotent per connection
// id: a second call for the same connection is a no-op.
func (h *Hub) Register(conn Connector) {
	group := UserGroup(conn.GetUserID())
	m := &membership{
		conn:      conn,
		userGroup: group,
		groups:    map[string]struct{}{group: {}},
	}
	if _, loaded := h.memberships.LoadOrStore(conn.GetID(), m); loaded {
		return
	}
	h.cellFor(group).Attach(conn)
}

// Join adds the connection to a topic group. Unknown connection ids and
// already-held memberships are no-ops.
func (h *Hub) Join(connID uuid.UUID, group string) {
	val, ok := h.memberships.Load(connID)
	if !ok {
		return
	}
	m := val.(*membership)

	m.mu.Lock()
	if _, member := m.groups[group]; member {
		m.mu.Unlock()
		return
	}
	m.groups[group] = struct{}{}
	m.mu.Unlock()

	h.cellFor(group).Attach(m.conn)
}

// Leave removes the connection from a topic group. The user group is bound
// for the connection's lifetime and cannot be left.
func (h *Hub) Leave(connID uuid.UUID, group string) {
	val, ok := h.memberships.Load(connID)
	if !ok {
		return
	}
	m := val.(*membership)
	if group == m.userGroup {
		return
	}

	m.mu.Lock()
	if _, member := m.groups[group]; !member {
		m.mu.Unlock()
		return
	}
	delete(m.groups, group)
	m.mu.Unlock()

	if val, ok := h.cells.Load(group); ok {
		val.(*Cell).Detach(connID)
	}
}

// Unregister detaches the connection from every group it belongs to and
// closes it. Safe to call multiple times and concurrently with Broadcast;
// late calls for unknown ids are no-ops.
func (h *Hub) Unregister(connID uuid.UUID) {
	val, loaded := h.memberships.LoadAndDelete(connID)
	if !loaded {
		return
	}
	m := val.(*membership)

	m.mu.Lock()
	groups := make([]string, 0, len(m.groups))
	for g := range m.groups {
		groups = append(groups, g)
	}
	m.groups = map[string]struct{}{}
	m.mu.Unlock()

	for _, g := range groups {
		if val, ok := h.cells.Load(g); ok {
			val.(*Cell).Detach(connID)
		}
	}
	m.conn.Close()
}

// Broadcast routes the event to the group's cell. Returns false on a miss
// (nobody here, or nobody anymore) or mailbox overflow.
func (h *Hub) Broadcast(group string, ev *event.Event) bool {
	if val, ok := h.cells.Load(group); ok {
		return val.(*Cell).Push(ev)
	}
	return false
}

// MembersOf returns a snapshot of the connection ids in the group at call
// time. Connections joining afterwards are not part of the snapshot.
func (h *Hub) MembersOf(group string) []uuid.UUID {
	if val, ok := h.cells.Load(group); ok {
		return val.(*Cell).Members()
	}
	return nil
}

func (h *Hub) Stats() model.HubStats {
	stats := model.HubStats{Uptime: time.Since(h.startedAt)}
	h.memberships.Range(func(_, _ any) bool {
		stats.TotalConnections++
		return true
	})
	h.cells.Range(func(key, val any) bool {
		cell := val.(*Cell)
		if cell.Size() == 0 {
			return true
		}
		stats.ActiveGroups++
		if isUserGroup(key.(string)) {
			stats.TotalUsers++
		}
		return true
	})
	return stats
}

func isUserGroup(group string) bool {
	return len(group) > 5 && group[:5] == "user:"
}

// janitor periodically reclaims cells that have been empty and quiet, so a
// burst of short-lived topics doesn't pin memory forever.
func (h *Hub) janitor() {
	ticker := time.NewTicker(h.config.evictionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.janitorStop:
			return
		case <-ticker.C:
			h.cells.Range(func(key, val any) bool {
				cell := val.(*Cell)
				if cell.IsIdle(h.config.idleTimeout) {
					h.cells.Delete(key)
					cell.Stop()
				}
				return true
			})
		}
	}
}

// Shutdown stops all cell goroutines and closes every live connection.
func (h *Hub) Shutdown() {
	h.stopOnce.Do(func() {
		close(h.janitorStop)
		h.memberships.Range(func(key, _ any) bool {
			h.Unregister(key.(uuid.UUID))
			return true
		})
		h.cells.Range(func(key, val any) bool {
			val.(*Cell).Stop()
			h.cells.Delete(key)
			return true
		})
	})
}
