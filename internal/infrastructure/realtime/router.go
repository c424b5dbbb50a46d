package realtime

import (
	"io"
	"sync"
)

// Router tracks websocket sessions and the live subscriptions each one holds.
// A user may have several sessions open (one per device). Subscriptions are keyed
// per session, e.g. "messages:5_9" or "inbox", and are closed when the session goes.
type Router struct {
	mu       sync.Mutex
	sessions map[string]*session            // sessionID -> session
	byUser   map[string]map[string]struct{} // userID -> set of sessionIDs
}

type session struct {
	conn *Connection
	subs map[string]io.Closer
}

func NewRouter() *Router {
	return &Router{
		sessions: make(map[string]*session),
		byUser:   make(map[string]map[string]struct{}),
	}
}

// Attach registers a connection and starts its write loop.
func (r *Router) Attach(conn *Connection) {
	r.mu.Lock()
	r.sessions[conn.ID] = &session{conn: conn, subs: make(map[string]io.Closer)}
	ids := r.byUser[conn.UserID]
	if ids == nil {
		ids = make(map[string]struct{})
		r.byUser[conn.UserID] = ids
	}
	ids[conn.ID] = struct{}{}
	r.mu.Unlock()

	conn.Start()
}

// Detach forgets a connection and closes every subscription it held.
func (r *Router) Detach(conn *Connection) {
	r.mu.Lock()
	subs := r.detachLocked(conn.ID)
	r.mu.Unlock()
	closeAll(subs)
}

// Join binds sub to key on the connection's session, replacing and closing any
// previous subscription under the same key. An untracked session gets sub closed
// immediately and Join reports false.
func (r *Router) Join(key string, conn *Connection, sub io.Closer) bool {
	r.mu.Lock()
	s, ok := r.sessions[conn.ID]
	if !ok {
		r.mu.Unlock()
		_ = sub.Close()
		return false
	}
	previous := s.subs[key]
	s.subs[key] = sub
	r.mu.Unlock()

	if previous != nil {
		_ = previous.Close()
	}
	return true
}

// Leave closes the subscription under key. It reports whether one existed.
func (r *Router) Leave(key string, conn *Connection) bool {
	r.mu.Lock()
	var sub io.Closer
	if s, ok := r.sessions[conn.ID]; ok {
		sub = s.subs[key]
		delete(s.subs, key)
	}
	r.mu.Unlock()

	if sub == nil {
		return false
	}
	_ = sub.Close()
	return true
}

// Subscriptions reports how many subscriptions a session holds.
func (r *Router) Subscriptions(conn *Connection) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[conn.ID]; ok {
		return len(s.subs)
	}
	return 0
}

// SessionCount reports the open sessions of userID.
func (r *Router) SessionCount(userID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byUser[userID])
}

// Close terminates all tracked connections and clears router state.
func (r *Router) Close() {
	r.mu.Lock()
	var (
		conns []*Connection
		subs  []io.Closer
	)
	for id, s := range r.sessions {
		conns = append(conns, s.conn)
		subs = append(subs, r.detachLocked(id)...)
	}
	r.mu.Unlock()

	closeAll(subs)
	for _, conn := range conns {
		conn.Close(1001, "router shutdown")
	}
}

func (r *Router) detachLocked(sessionID string) []io.Closer {
	s, ok := r.sessions[sessionID]
	if !ok {
		return nil
	}
	delete(r.sessions, sessionID)
	if ids := r.byUser[s.conn.UserID]; ids != nil {
		delete(ids, sessionID)
		if len(ids) == 0 {
			delete(r.byUser, s.conn.UserID)
		}
	}

	out := make([]io.Closer, 0, len(s.subs))
	for _, sub := range s.subs {
		out = append(out, sub)
	}
	return out
}

func closeAll(subs []io.Closer) {
	for _, sub := range subs {
		_ = sub.Close()
	}
}

// CloserFunc adapts a func() to io.Closer.
type CloserFunc func()

func (f CloserFunc) Close() error {
	f()
	return nil
}
