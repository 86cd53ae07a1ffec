// Package presence tracks which users are connected to this process and
// pushes realtime events to them. State lives only in memory; clients
// re-announce themselves after a restart.
package presence

import (
	"log/slog"
	"sort"
	"sync"
)

// Conn is a live connection able to receive events. Send must not block.
type Conn interface {
	ID() string
	Send(evt Event) bool
}

type Online struct {
	UserID       string `json:"userId"`
	ConnectionID string `json:"connectionId"`
}

type Registry struct {
	mu     sync.RWMutex
	conns  map[string]Conn   // connection id -> conn
	users  map[string]string // user id -> connection id
	logger *slog.Logger
}

// NewRegistry creates an empty registry. Pass nil logger for default.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		conns:  make(map[string]Conn),
		users:  make(map[string]string),
		logger: logger.With("component", "presence"),
	}
}

// Connect makes conn a recipient of presence broadcasts. It does not mark
// any user online.
func (r *Registry) Connect(conn Conn) {
	r.mu.Lock()
	r.conns[conn.ID()] = conn
	r.mu.Unlock()
}

// Disconnect drops the connection and any user registered on it.
func (r *Registry) Disconnect(connID string) {
	r.mu.Lock()
	delete(r.conns, connID)
	r.mu.Unlock()
	r.Unregister(connID)
}

// Register marks userID online on connID. The first connection wins: it
// returns false when the user is already online or connID is unknown.
func (r *Registry) Register(userID, connID string) bool {
	if userID == "" {
		return false
	}
	r.mu.Lock()
	if _, ok := r.conns[connID]; !ok {
		r.mu.Unlock()
		return false
	}
	if _, ok := r.users[userID]; ok {
		r.mu.Unlock()
		return false
	}
	r.users[userID] = connID
	r.mu.Unlock()

	r.logger.Debug("user online", "user_id", userID, "conn_id", connID)
	r.broadcastSnapshot()
	return true
}

// Unregister removes every user bound to connID. Safe to call repeatedly.
func (r *Registry) Unregister(connID string) bool {
	removed := false
	r.mu.Lock()
	for uid, cid := range r.users {
		if cid == connID {
			delete(r.users, uid)
			removed = true
		}
	}
	r.mu.Unlock()

	if removed {
		r.logger.Debug("connection offline", "conn_id", connID)
		r.broadcastSnapshot()
	}
	return removed
}

// Deliver pushes evt to the user's connection. An offline user is not an
// error; the event is simply dropped.
func (r *Registry) Deliver(userID string, evt Event) bool {
	r.mu.RLock()
	var conn Conn
	if cid, ok := r.users[userID]; ok {
		conn = r.conns[cid]
	}
	r.mu.RUnlock()

	if conn == nil {
		return false
	}
	if !conn.Send(evt) {
		r.logger.Debug("dropped event for slow connection", "user_id", userID, "type", evt.Type)
		return false
	}
	return true
}

// UserFor returns the user registered on connID, if any.
func (r *Registry) UserFor(connID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for uid, cid := range r.users {
		if cid == connID {
			return uid, true
		}
	}
	return "", false
}

func (r *Registry) IsOnline(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.users[userID]
	return ok
}

// Snapshot lists online users ordered by user id.
func (r *Registry) Snapshot() []Online {
	r.mu.RLock()
	out := make([]Online, 0, len(r.users))
	for uid, cid := range r.users {
		out = append(out, Online{UserID: uid, ConnectionID: cid})
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

func (r *Registry) broadcastSnapshot() {
	evt := Event{Type: EventPresenceSnapshot, Payload: SnapshotPayload{Users: r.Snapshot()}}

	// Copy targets under the read lock and send outside it.
	r.mu.RLock()
	targets := make([]Conn, 0, len(r.conns))
	for _, conn := range r.conns {
		targets = append(targets, conn)
	}
	r.mu.RUnlock()

	for _, conn := range targets {
		conn.Send(evt)
	}
}
