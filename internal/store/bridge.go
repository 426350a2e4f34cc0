package store

import (
	"sync"

	"github.com/dmitrijs2005/moneta/internal/models"
)

// Bridge maps client-generated cids to server identities and back, per
// record kind. An entry refers to its book by cid; before the book's first
// accepted push the server id does not exist yet, so the mapping is kept
// in memory and rebuilt from storage on startup.
type Bridge struct {
	mu       sync.RWMutex
	toServer map[models.Kind]map[string]string
	toCID    map[models.Kind]map[string]string
}

func NewBridge() *Bridge {
	return &Bridge{
		toServer: map[models.Kind]map[string]string{
			models.KindBook:  {},
			models.KindEntry: {},
		},
		toCID: map[models.Kind]map[string]string{
			models.KindBook:  {},
			models.KindEntry: {},
		},
	}
}

// Bind records a cid↔serverID pair. Empty server ids are ignored.
func (b *Bridge) Bind(kind models.Kind, cid, serverID string) {
	if serverID == "" || cid == "" {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.toServer[kind][cid] = serverID
	b.toCID[kind][serverID] = cid
}

// ServerID resolves a cid to the remote authority's identity.
func (b *Bridge) ServerID(kind models.Kind, cid string) (string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	id, ok := b.toServer[kind][cid]
	return id, ok
}

// CID resolves a server identity back to the local cid.
func (b *Bridge) CID(kind models.Kind, serverID string) (string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	cid, ok := b.toCID[kind][serverID]
	return cid, ok
}
