package app

import (
	"github.com/dkeye/roulette/internal/core"
	"github.com/dkeye/roulette/internal/domain"
	"github.com/rs/zerolog/log"
)

// Entry is the live record for one session identifier.
type Entry struct {
	Session domain.Session
	Conn    core.SignalConnection
}

// Live reports whether the bound connection can still receive frames.
func (e *Entry) Live() bool { return e.Conn != nil && !e.Conn.Closed() }

// Registry is the single source of truth for which connection currently
// represents a session identifier. It is not safe for concurrent use: the
// orchestrator loop owns it.
type Registry struct {
	sessions map[domain.SessionID]*Entry
	byConn   map[core.ConnID]domain.SessionID
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[domain.SessionID]*Entry),
		byConn:   make(map[core.ConnID]domain.SessionID),
	}
}

// Lookup returns the current entry for sid.
func (r *Registry) Lookup(sid domain.SessionID) (*Entry, bool) {
	e, ok := r.sessions[sid]
	return e, ok
}

// ByConn returns the entry that conn is currently bound to. A connection that
// was evicted by a newer registration no longer resolves.
func (r *Registry) ByConn(id core.ConnID) (*Entry, bool) {
	sid, ok := r.byConn[id]
	if !ok {
		return nil, false
	}
	e, ok := r.sessions[sid]
	if !ok || e.Conn.ID() != id {
		return nil, false
	}
	return e, true
}

// Bind creates a fresh idle session for sid on conn. Any previous binding of
// sid must have been evicted by the caller first.
func (r *Registry) Bind(sid domain.SessionID, conn core.SignalConnection, mode domain.Mode) *Entry {
	if old, ok := r.sessions[sid]; ok && old.Conn != nil {
		delete(r.byConn, old.Conn.ID())
	}
	e := &Entry{
		Session: domain.Session{ID: sid, Status: domain.StatusIdle, Mode: mode},
		Conn:    conn,
	}
	r.sessions[sid] = e
	r.byConn[conn.ID()] = sid
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Str("conn", string(conn.ID())).Msg("bound session")
	return e
}

// Unbind removes sid if and only if it is still bound to conn, so a late
// disconnect of an evicted connection cannot clobber a newer registration.
func (r *Registry) Unbind(sid domain.SessionID, conn core.ConnID) bool {
	e, ok := r.sessions[sid]
	if !ok || e.Conn.ID() != conn {
		return false
	}
	delete(r.sessions, sid)
	delete(r.byConn, conn)
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Str("conn", string(conn)).Msg("unbind session")
	return true
}

func (r *Registry) SetQueued(sid domain.SessionID, mode domain.Mode) bool {
	e, ok := r.sessions[sid]
	if !ok || e.Session.Status == domain.StatusBusy {
		return false
	}
	e.Session.Status = domain.StatusQueued
	e.Session.Mode = mode
	e.Session.RoomID = ""
	return true
}

func (r *Registry) SetBusy(sid domain.SessionID, room domain.RoomID, mode domain.Mode) bool {
	e, ok := r.sessions[sid]
	if !ok {
		return false
	}
	e.Session.Status = domain.StatusBusy
	e.Session.Mode = mode
	e.Session.RoomID = room
	log.Debug().Str("module", "app.registry").Str("sid", string(sid)).Str("room", string(room)).Msg("updated room")
	return true
}

func (r *Registry) SetIdle(sid domain.SessionID) bool {
	e, ok := r.sessions[sid]
	if !ok {
		return false
	}
	e.Session.Status = domain.StatusIdle
	e.Session.RoomID = ""
	return true
}

// Count is the number of registered sessions, published as the online count.
func (r *Registry) Count() int { return len(r.sessions) }

// CountByStatus is used for stats only.
func (r *Registry) CountByStatus() map[domain.Status]int {
	out := make(map[domain.Status]int, 3)
	for _, e := range r.sessions {
		out[e.Session.Status]++
	}
	return out
}

// Each calls fn for every entry. fn must not mutate the registry.
func (r *Registry) Each(fn func(*Entry)) {
	for _, e := range r.sessions {
		fn(e)
	}
}
