// Package eventbus delivers state-change events to interested clients in
// soft real time, scoped by rooms, with replay-on-reconnect, heartbeats,
// and backpressure. The background-goroutine-plus-stopCh-plus-WaitGroup
// lifecycle is grounded on pkg/cache/memory.go's MemoryCache cleanup loop.
package eventbus

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"dispatch/internal/domain"
	"dispatch/pkg/apperror"
)

type room struct {
	mu          sync.Mutex
	seq         uint64
	buf         *ring
	connections map[string]*Connection
}

// Broker is one in-process event bus instance. Its buffers do not survive
// a process restart; Generation lets a reconnecting client detect that and
// request a replay_gap instead of silently missing events.
type Broker struct {
	cfg        Config
	generation string
	log        *slog.Logger

	mu    sync.RWMutex
	rooms map[domain.Room]*room

	stopCh  chan struct{}
	wg      sync.WaitGroup
	closed  atomic.Bool
}

// NewBroker starts a broker with a background heartbeat loop,
// identified by generation (the caller's choice of a value that changes
// across process restarts — a boot timestamp or instance id works).
func NewBroker(cfg Config, generation string, log *slog.Logger) *Broker {
	if log == nil {
		log = slog.Default()
	}
	b := &Broker{
		cfg:        cfg,
		generation: generation,
		log:        log,
		rooms:      map[domain.Room]*room{},
		stopCh:     make(chan struct{}),
	}
	b.wg.Add(1)
	go b.maintenanceLoop()
	return b
}

// Generation identifies this broker instance's buffer lifetime.
func (b *Broker) Generation() string {
	return b.generation
}

func (b *Broker) roomFor(name domain.Room) *room {
	b.mu.Lock()
	defer b.mu.Unlock()
	r, ok := b.rooms[name]
	if !ok {
		r = &room{buf: newRing(b.cfg.ReplayMaxEvents, b.cfg.ReplayWindow), connections: map[string]*Connection{}}
		b.rooms[name] = r
	}
	return r
}

// Subscription is the result of joining the bus: a connection's mailbox
// plus any rooms whose requested cursor could not be satisfied from the
// buffer (the caller must re-fetch authoritative state for those).
type Subscription struct {
	Conn       *Connection
	ReplayGaps []domain.Room
}

// Subscribe joins connID to rooms, replaying buffered events newer than
// each room's cursor in cursors (0 meaning "from the start of what's
// buffered"). clientGeneration, if non-empty and different from the
// broker's own, short-circuits every room straight to a replay gap,
// modeling "broker process restart" from spec.md §4.4's failure mode.
func (b *Broker) Subscribe(ctx context.Context, connID string, rooms []domain.Room, cursors map[domain.Room]uint64, clientGeneration string) (*Subscription, error) {
	if b.closed.Load() {
		return nil, apperror.New(apperror.CodeCancelled, "event bus is shutting down")
	}

	conn := newConnection(connID, b.cfg.OutboundQueueSize, rooms, cursors)
	sub := &Subscription{Conn: conn}

	restarted := clientGeneration != "" && clientGeneration != b.generation

	for _, name := range rooms {
		r := b.roomFor(name)
		r.mu.Lock()
		r.connections[connID] = conn
		if restarted {
			r.mu.Unlock()
			sub.ReplayGaps = append(sub.ReplayGaps, name)
			continue
		}
		events, ok := r.buf.since(cursors[name])
		r.mu.Unlock()
		if !ok {
			sub.ReplayGaps = append(sub.ReplayGaps, name)
			continue
		}
		for _, e := range events {
			select {
			case conn.Outbound <- e:
				conn.recordSeq(name, e.Seq)
			default:
				sub.ReplayGaps = append(sub.ReplayGaps, name)
			}
		}
	}

	return sub, nil
}

// Publish assigns a room-scoped sequence number to event, buffers it for
// replay, and fans it out to every connection subscribed to room. Events
// are additionally mirrored to the admin room, which "receives
// everything" per spec.md §4.4, except when room already is admin.
func (b *Broker) Publish(ctx context.Context, room domain.Room, event domain.Event) error {
	b.publishToRoom(room, event)
	if room != domain.RoomAdmin {
		b.publishToRoom(domain.RoomAdmin, event)
	}
	return nil
}

func (b *Broker) publishToRoom(name domain.Room, event domain.Event) {
	r := b.roomFor(name)

	r.mu.Lock()
	r.seq++
	event.Room = name
	event.Seq = r.seq
	r.buf.append(event)
	conns := make([]*Connection, 0, len(r.connections))
	for _, c := range r.connections {
		conns = append(conns, c)
	}
	r.mu.Unlock()

	for _, c := range conns {
		if !c.isActive() {
			continue
		}
		select {
		case c.Outbound <- event:
			c.recordSeq(name, event.Seq)
		default:
			b.dropSlowest(name, c)
		}
	}
}

// dropSlowest implements the backpressure policy: a connection whose
// outbound queue is full is disconnected rather than letting a slow
// consumer apply backpressure to every other subscriber in the room.
func (b *Broker) dropSlowest(name domain.Room, c *Connection) {
	b.log.Warn("event bus dropping slow connection", "room", string(name), "connection_id", c.ID)
	b.disconnect(name, c, ReasonQueueOverflow)
}

func (b *Broker) disconnect(name domain.Room, c *Connection, reason ReasonDisconnected) {
	c.markInactive(time.Now())
	select {
	case c.Disconnect <- reason:
	default:
	}

	r := b.roomFor(name)
	r.mu.Lock()
	delete(r.connections, c.ID)
	r.mu.Unlock()
}

// Unsubscribe marks conn inactive and removes connID from every room it
// belongs to at once. Config.DisconnectGrace is not applied: room
// membership is not kept after this call. A reconnecting client joins again
// through Subscribe, and its cursors replay whatever is still buffered.
func (b *Broker) Unsubscribe(connID string, conn *Connection) {
	conn.markInactive(time.Now())
	b.mu.RLock()
	rooms := make([]*room, 0, len(b.rooms))
	for _, r := range b.rooms {
		rooms = append(rooms, r)
	}
	b.mu.RUnlock()

	for _, r := range rooms {
		r.mu.Lock()
		if existing, ok := r.connections[connID]; ok && existing == conn {
			delete(r.connections, connID)
		}
		r.mu.Unlock()
	}
}

func (b *Broker) maintenanceLoop() {
	defer b.wg.Done()
	ticker := time.NewTicker(b.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopCh:
			return
		case <-ticker.C:
			b.sendHeartbeats()
		}
	}
}

func (b *Broker) sendHeartbeats() {
	heartbeat := domain.Event{EventID: "heartbeat", Kind: domain.EventNotification, OccurredAt: time.Now()}
	b.mu.RLock()
	rooms := make([]*room, 0, len(b.rooms))
	for _, r := range b.rooms {
		rooms = append(rooms, r)
	}
	b.mu.RUnlock()

	seen := map[string]bool{}
	for _, r := range rooms {
		r.mu.Lock()
		conns := make([]*Connection, 0, len(r.connections))
		for _, c := range r.connections {
			conns = append(conns, c)
		}
		r.mu.Unlock()
		for _, c := range conns {
			if seen[c.ID] || !c.isActive() {
				continue
			}
			seen[c.ID] = true
			select {
			case c.Outbound <- heartbeat:
			default:
			}
		}
	}
}

// Close stops the maintenance loop and waits for it to exit.
func (b *Broker) Close() {
	if b.closed.Swap(true) {
		return
	}
	close(b.stopCh)
	b.wg.Wait()
}
