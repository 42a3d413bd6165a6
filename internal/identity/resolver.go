// Package identity remembers which users have talked to the bot so that
// @handles can be turned into numeric ids.
package identity

import (
	"strings"
	"sync"

	"github.com/xaenox/planner-bot/internal/models"
	"golang.org/x/text/cases"
)

// Normalize reduces a handle to its lookup form: no surrounding space, no
// leading '@', case-folded.
func Normalize(handle string) string {
	handle = strings.TrimSpace(handle)
	handle = strings.TrimPrefix(handle, "@")
	return cases.Fold().String(handle)
}

// SameHandle reports whether a and b name the same handle.
func SameHandle(a, b string) bool {
	na := Normalize(a)
	return na != "" && na == Normalize(b)
}

// Resolver is the process-wide registry of known identities.
//
// If a handle moves from one user to another the newest registration
// wins; the previous owner keeps its id entry but loses the handle mapping.
type Resolver struct {
	mu       sync.RWMutex
	byID     map[int64]models.KnownIdentity
	byHandle map[string]int64
}

func NewResolver() *Resolver {
	return &Resolver{
		byID:     make(map[int64]models.KnownIdentity),
		byHandle: make(map[string]int64),
	}
}

// Register upserts the identity and returns the stored record.
func (r *Resolver) Register(userID int64, handle, displayName string) models.KnownIdentity {
	handle = strings.TrimPrefix(strings.TrimSpace(handle), "@")
	k := models.KnownIdentity{UserID: userID, Handle: handle, DisplayName: displayName}

	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.byID[userID]; ok && prev.Handle != "" {
		old := Normalize(prev.Handle)
		if old != Normalize(handle) && r.byHandle[old] == userID {
			delete(r.byHandle, old)
		}
	}

	r.byID[userID] = k
	if key := Normalize(handle); key != "" {
		if owner, ok := r.byHandle[key]; ok && owner != userID {
			stale := r.byID[owner]
			stale.Handle = ""
			r.byID[owner] = stale
		}
		r.byHandle[key] = userID
	}
	return k
}

// ResolveByHandle looks up a handle. A miss only means the person has not
// interacted with the bot yet.
func (r *Resolver) ResolveByHandle(handle string) (models.KnownIdentity, bool) {
	key := Normalize(handle)
	if key == "" {
		return models.KnownIdentity{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byHandle[key]
	if !ok {
		return models.KnownIdentity{}, false
	}
	k, ok := r.byID[id]
	return k, ok
}

// ByID looks up an identity by its numeric id.
func (r *Resolver) ByID(userID int64) (models.KnownIdentity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	k, ok := r.byID[userID]
	return k, ok
}

// Len returns the number of known identities.
func (r *Resolver) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
