package registry

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/smarthunt/realtime-service/internal/domain/event"
)

// Interface guard
var _ Connector = (*connect)(nil)

// Connector is the per-session delivery handle handed to transport layers.
// Keeping it an interface lets the hub and the handlers be tested with doubles.
type Connector interface {
	GetID() uuid.UUID
	GetUserID() int64
	Send(ev *event.Event, timeout time.Duration) bool
	Recv() <-chan *event.Event
	Done() <-chan struct{}
	Dropped() uint64
	Close()
	Release()
}

// connect is the concrete implementation, unexported to force interface usage.
type connect struct {
	id        uuid.UUID
	userID    int64
	createdAt time.Time

	ctx      context.Context
	cancelFn context.CancelFunc

	sendCh chan *event.Event

	closeOnce    sync.Once
	releaseOnce  sync.Once
	droppedCount uint64 // atomic
}

// Pooled to cut allocation churn under connection flapping.
var connectPool = sync.Pool{
	New: func() any {
		return &connect{}
	},
}

// NewConnector acquires a connector from the pool and re-initializes it.
func NewConnector(ctx context.Context, userID int64, bufferSize int) Connector {
	c := connectPool.Get().(*connect)
	c.reset(ctx, userID, bufferSize)
	return c
}

// reset wipes stale pooled state, including the sync.Once guards, by
// reassigning the whole struct value.
func (c *connect) reset(ctx context.Context, userID int64, bufferSize int) {
	childCtx, cancel := context.WithCancel(ctx)

	*c = connect{
		id:        uuid.New(),
		userID:    userID,
		createdAt: time.Now(),
		ctx:       childCtx,
		cancelFn:  cancel,
		sendCh:    make(chan *event.Event, bufferSize),
	}
}

func (c *connect) GetID() uuid.UUID { return c.id }
func (c *connect) GetUserID() int64 { return c.userID }

// Send enqueues an event for the session's write loop. It waits up to timeout
// for buffer space so transient jitter doesn't immediately shed traffic, then
// falls through to the backpressure policy.
func (c *connect) Send(ev *event.Event, timeout time.Duration) bool {
	select {
	case <-c.ctx.Done():
		return false
	default:
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	select {
	case <-c.ctx.Done():
		return false
	case c.sendCh <- ev:
		return true
	case <-ctx.Done():
		return c.handleBackpressure(ev, timeout)
	}
}

// handleBackpressure sheds load on a saturated mailbox: low-priority events
// are dropped outright, higher-priority events evict one lower-priority entry
// when possible. The connection itself stays open; only the write loop closes
// it, and only on socket failure.
func (c *connect) handleBackpressure(ev *event.Event, timeout time.Duration) bool {
	if ev.Priority <= event.PriorityLow {
		atomic.AddUint64(&c.droppedCount, 1)
		return false
	}

	select {
	case oldEv := <-c.sendCh:
		if oldEv.Priority < ev.Priority {
			select {
			case c.sendCh <- ev:
				return true
			default:
				// Another sender stole the freed slot; the event is shed
				// like any other overflow.
			}
		} else {
			// The evicted event was just as important; put it back
			// best-effort.
			select {
			case c.sendCh <- oldEv:
			default:
			}
		}
	case <-time.After(timeout):
	}

	atomic.AddUint64(&c.droppedCount, 1)
	return false
}

func (c *connect) Recv() <-chan *event.Event { return c.sendCh }

// Done is closed once the connector has been closed; transport pumps select
// on it to know when to flush and exit.
func (c *connect) Done() <-chan struct{} { return c.ctx.Done() }

func (c *connect) Dropped() uint64 { return atomic.LoadUint64(&c.droppedCount) }

// Close terminates the session by cancelling its context. The send channel
// is left open so a Send racing the close never hits a closed channel, and
// events buffered before the close stay drainable for the grace flush. Safe
// to call from the hub (shutdown), the cell (eviction) and the transport
// handler (defer) concurrently; the teardown body runs exactly once.
func (c *connect) Close() {
	c.closeOnce.Do(func() {
		c.cancelFn()
	})
}

// Release recycles the connector into the pool. Only the owning transport
// may call it, after the connection has been unregistered from the hub and
// both pump goroutines have exited; the handle must not be used afterwards.
func (c *connect) Release() {
	c.releaseOnce.Do(func() {
		c.Close()
		connectPool.Put(c)
	})
}
