/*
Package presence tracks which users are connected and the transport session that carries them.

The Registry is used for point-to-point delivery (invites) and for the online-user list
broadcast to every session.
*/
package presence

import (
	"slices"
	"sync"

	"github.com/rs/zerolog"

	"dojo/internal/pkg/logx"
)

// Entry is the presence record of one online user.
type Entry struct {
	UserID    string
	Username  string
	SessionID string
}

// Registry maps user ids to their current transport session.
type Registry struct {
	entries map[string]Entry

	// mu protects concurrent access to the entries map.
	mu sync.RWMutex

	logger zerolog.Logger
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]Entry),
		logger:  logx.Component("Presence"),
	}
}

// Set records userID as online on sessionID, replacing any previous session.
func (r *Registry) Set(userID, username, sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.entries[userID]; ok && prev.SessionID != sessionID {
		r.logger.Debug().
			Str("user_id", userID).
			Str("previous_session_id", prev.SessionID).
			Str("session_id", sessionID).
			Msg("Presence moved to a new session.")
	}

	r.entries[userID] = Entry{UserID: userID, Username: username, SessionID: sessionID}
}

// Remove deletes userID and reports whether it was online.
func (r *Registry) Remove(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[userID]; !ok {
		return false
	}

	delete(r.entries, userID)
	return true
}

// RemoveSession deletes every user carried by sessionID and returns their ids.
// Users that already moved to another session are kept.
func (r *Registry) RemoveSession(sessionID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed []string
	for id, entry := range r.entries {
		if entry.SessionID == sessionID {
			delete(r.entries, id)
			removed = append(removed, id)
		}
	}

	slices.Sort(removed)
	return removed
}

// Lookup returns the presence entry of userID.
func (r *Registry) Lookup(userID string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[userID]
	return entry, ok
}

// OnlineIDs returns the sorted ids of all online users.
func (r *Registry) OnlineIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}

	slices.Sort(ids)
	return ids
}

// Len returns the number of online users.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.entries)
}
