package app

import (
	"sync"

	"brawl-service/internal/domain"
)

// Client is one live connection bound to an identity. Send must never block;
// the websocket transport backs it with a buffered channel.
type Client interface {
	Send(ev Event)
}

// Registry binds authenticated identities to their open connections and
// tracks per-identity pool selection. A user may hold several connections
// at once (multiple tabs); events addressed to a user reach all of them.
type Registry struct {
	mu         sync.RWMutex
	identities map[Client]domain.Identity
	byUser     map[string]map[Client]struct{}
	selections map[string]string // userID -> pool code
}

func NewRegistry() *Registry {
	return &Registry{
		identities: make(map[Client]domain.Identity),
		byUser:     make(map[string]map[Client]struct{}),
		selections: make(map[string]string),
	}
}

// Register binds a connection to its resolved identity.
func (r *Registry) Register(c Client, id domain.Identity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.identities[c] = id
	conns, ok := r.byUser[id.UserID]
	if !ok {
		conns = make(map[Client]struct{})
		r.byUser[id.UserID] = conns
	}
	conns[c] = struct{}{}
}

// Unregister removes a connection. It returns the identity the connection
// belonged to and whether it was the identity's last open connection, in
// which case the pool selection is also cleared.
func (r *Registry) Unregister(c Client) (domain.Identity, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.identities[c]
	if !ok {
		return domain.Identity{}, false
	}
	delete(r.identities, c)
	conns := r.byUser[id.UserID]
	delete(conns, c)
	if len(conns) > 0 {
		return id, false
	}
	delete(r.byUser, id.UserID)
	delete(r.selections, id.UserID)
	return id, true
}

// Online reports whether the identity has at least one open connection.
func (r *Registry) Online(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser[userID]) > 0
}

// IdentityOf rebuilds an identity from any of its open connections; queue
// entries only carry userIDs.
func (r *Registry) IdentityOf(userID string) domain.Identity {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for c := range r.byUser[userID] {
		return r.identities[c]
	}
	return domain.Identity{UserID: userID}
}

// SendToUser fans an event out to every open connection of an identity.
func (r *Registry) SendToUser(userID string, ev Event) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for c := range r.byUser[userID] {
		c.Send(ev)
	}
}

// Broadcast sends an event to every registered connection.
func (r *Registry) Broadcast(ev Event) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for c := range r.identities {
		c.Send(ev)
	}
}

// Select points the identity at a pool; an empty code clears the selection.
func (r *Registry) Select(userID, code string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if code == "" {
		delete(r.selections, userID)
		return
	}
	r.selections[userID] = code
}

// Selection returns the identity's currently selected pool, if any.
func (r *Registry) Selection(userID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	code, ok := r.selections[userID]
	return code, ok
}

// OnlineCounts aggregates, per pool, how many online identities currently
// have that pool selected. Selections only exist while online, so this is
// derivable state for the lobby projection.
func (r *Registry) OnlineCounts() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := make(map[string]int)
	for _, code := range r.selections {
		counts[code]++
	}
	return counts
}
