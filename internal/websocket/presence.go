package websocket

import (
	"sync"

	"github.com/google/uuid"
)

// PresenceTracker records which roles are online per consultation. Entries
// are transient; they live only as long as the connection and the process.
//
// At most one entry exists per role per consultation. A second join by the
// same role replaces the prior entry last-writer-wins; the prior connection
// is not forcibly closed.
type PresenceTracker struct {
	mu sync.Mutex

	// consultationID -> userType -> owning connection
	entries map[string]map[string]uuid.UUID
}

func NewPresenceTracker() *PresenceTracker {
	return &PresenceTracker{
		entries: make(map[string]map[string]uuid.UUID),
	}
}

// SetOnline marks the role online in the consultation, owned by connID.
// Returns false when the role was already online (no transition happened,
// only the owner changed).
func (t *PresenceTracker) SetOnline(consultationID, userType string, connID uuid.UUID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	roles, ok := t.entries[consultationID]
	if !ok {
		roles = make(map[string]uuid.UUID)
		t.entries[consultationID] = roles
	}
	_, wasOnline := roles[userType]
	roles[userType] = connID
	return !wasOnline
}

// SetOffline removes the role's entry regardless of which connection owns
// it. Used for the explicit offline signal and for leave-consultation.
// Returns false when the role was already absent.
func (t *PresenceTracker) SetOffline(consultationID, userType string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remove(consultationID, userType)
}

// SetOfflineIfOwner removes the role's entry only when connID still owns it.
// Disconnect cleanup uses this so a connection that was already replaced by
// a newer one (last-writer-wins) does not knock the replacement offline.
func (t *PresenceTracker) SetOfflineIfOwner(consultationID, userType string, connID uuid.UUID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	roles, ok := t.entries[consultationID]
	if !ok {
		return false
	}
	owner, ok := roles[userType]
	if !ok || owner != connID {
		return false
	}
	return t.remove(consultationID, userType)
}

// OnlineTypes returns the roles currently online in the consultation. The
// registry echoes these to a late joiner so it renders correct presence
// without waiting for a future transition.
func (t *PresenceTracker) OnlineTypes(consultationID string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	roles := t.entries[consultationID]
	types := make([]string, 0, len(roles))
	for userType := range roles {
		types = append(types, userType)
	}
	return types
}

// IsOnline reports whether the role has a tracked connection.
func (t *PresenceTracker) IsOnline(consultationID, userType string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	roles, ok := t.entries[consultationID]
	if !ok {
		return false
	}
	_, online := roles[userType]
	return online
}

// remove must be called with t.mu held. Empty consultations are garbage
// collected to bound memory.
func (t *PresenceTracker) remove(consultationID, userType string) bool {
	roles, ok := t.entries[consultationID]
	if !ok {
		return false
	}
	if _, ok := roles[userType]; !ok {
		return false
	}
	delete(roles, userType)
	if len(roles) == 0 {
		delete(t.entries, consultationID)
	}
	return true
}
