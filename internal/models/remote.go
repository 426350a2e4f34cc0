package models

import (
	"encoding/json"
	"fmt"
)

// RemoteRecord is a kind-tagged snapshot of a record as held by the remote
// authority. It is what push/pull payloads carry and what gets stored
// verbatim in ServerData when a conflict is detected.
type RemoteRecord struct {
	Kind     Kind            `json:"kind"`
	CID      string          `json:"cid"`
	ServerID string          `json:"server_id"`
	VKey     int64           `json:"v_key"`
	Checksum string          `json:"checksum"`
	Deleted  bool            `json:"deleted"`
	Payload  json.RawMessage `json:"payload"`
}

// BookPayload decodes the payload as book fields. Fails for other kinds.
func (r *RemoteRecord) BookPayload() (BookFields, error) {
	var f BookFields
	if r.Kind != KindBook {
		return f, fmt.Errorf("remote record %s is %q, not a book", r.CID, r.Kind)
	}
	if err := json.Unmarshal(r.Payload, &f); err != nil {
		return f, fmt.Errorf("failed to decode book payload: %w", err)
	}
	return f, nil
}

// EntryPayload decodes the payload as entry fields. Fails for other kinds.
func (r *RemoteRecord) EntryPayload() (EntryFields, error) {
	var f EntryFields
	if r.Kind != KindEntry {
		return f, fmt.Errorf("remote record %s is %q, not an entry", r.CID, r.Kind)
	}
	if err := json.Unmarshal(r.Payload, &f); err != nil {
		return f, fmt.Errorf("failed to decode entry payload: %w", err)
	}
	return f, nil
}

// BookRemote encodes a book as a remote snapshot.
func BookRemote(b *Book) (RemoteRecord, error) {
	payload, err := json.Marshal(b.Fields())
	if err != nil {
		return RemoteRecord{}, fmt.Errorf("failed to encode book payload: %w", err)
	}
	return RemoteRecord{
		Kind:     KindBook,
		CID:      b.CID,
		ServerID: b.ServerID,
		VKey:     b.VKey,
		Checksum: b.Checksum,
		Deleted:  b.Deleted,
		Payload:  payload,
	}, nil
}

// EntryRemote encodes an entry as a remote snapshot.
func EntryRemote(e *Entry) (RemoteRecord, error) {
	payload, err := json.Marshal(e.Fields())
	if err != nil {
		return RemoteRecord{}, fmt.Errorf("failed to encode entry payload: %w", err)
	}
	return RemoteRecord{
		Kind:     KindEntry,
		CID:      e.CID,
		ServerID: e.ServerID,
		VKey:     e.VKey,
		Checksum: e.Checksum,
		Deleted:  e.Deleted,
		Payload:  payload,
	}, nil
}
