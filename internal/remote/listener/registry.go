// Package listener implements the broker-side remote agent: a local
// stream socket that accepts connections from connectors, tracks one
// session per connected uid, and forwards each decision request to the
// session registered for the caller's uid. It runs no agent chain itself.
package listener

import (
	"net"
	"sync"

	"github.com/trustbrokerd/trustbroker/internal/request"
)

// SessionInfo is the read-only view of one registry entry, exposed to the
// admin diagnostic surface.
type SessionInfo struct {
	UID request.UID
	PID request.PID
	GID request.GID
}

// session is the registry's internal bookkeeping for one accepted
// connection.
type session struct {
	conn net.Conn
	info SessionInfo
}

// Registry tracks one active session per uid. A new session for an
// already-registered uid replaces the prior one, mirroring the upstream
// accept handler's "insert, replacing any prior session" rule. Every
// mutation takes the mutex, matching the shared-resource policy.
type Registry struct {
	mu       sync.Mutex
	sessions map[request.UID]*session
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[request.UID]*session)}
}

// Put inserts or replaces the session for uid.
func (r *Registry) Put(uid request.UID, conn net.Conn, info SessionInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[uid] = &session{conn: conn, info: info}
}

// Resolve returns the connection registered for uid, if any.
func (r *Registry) Resolve(uid request.UID) (net.Conn, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[uid]
	if !ok {
		return nil, false
	}
	return s.conn, true
}

// Remove deletes the session registered for uid, if one exists matching
// the given connection (a replaced session must not be removed by a stale
// handler for the connection it replaced).
func (r *Registry) Remove(uid request.UID, conn net.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[uid]; ok && s.conn == conn {
		delete(r.sessions, uid)
	}
}

// CloseAll closes every registered connection and empties the registry.
// Called on broker shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for uid, s := range r.sessions {
		s.conn.Close()
		delete(r.sessions, uid)
	}
}

// Snapshot returns a read-only copy of the registry for the
// trustbrokerctl sessions diagnostic command. It never affects the
// decision pipeline.
func (r *Registry) Snapshot() map[request.UID]SessionInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[request.UID]SessionInfo, len(r.sessions))
	for uid, s := range r.sessions {
		out[uid] = s.info
	}
	return out
}

// SnapshotView is a plain-data projection of SessionInfo with exported
// primitive fields, used by the admin diagnostic surface to avoid that
// package importing internal/request for a JSON shape.
type SnapshotView struct {
	UID uint32
	PID int32
	GID uint32
}

// Views returns the registry's current contents as a slice of
// SnapshotView, for wiring into adminhttp.NewRouter.
func (r *Registry) Views() []SnapshotView {
	snap := r.Snapshot()
	out := make([]SnapshotView, 0, len(snap))
	for _, info := range snap {
		out = append(out, SnapshotView{UID: uint32(info.UID), PID: int32(info.PID), GID: uint32(info.GID)})
	}
	return out
}
