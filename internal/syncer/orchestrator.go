// Package syncer drives the push/pull cycle between the local record store
// and the remote authority. The transport behind the Orchestrator interface
// is external; the core only relies on every payload carrying cid, vKey and
// checksum.
package syncer

import (
	"context"

	"github.com/dmitrijs2005/moneta/internal/models"
)

// Outcome is the remote authority's verdict for one pushed record.
type Outcome string

const (
	OutcomeAccepted Outcome = "accepted"
	OutcomeRejected Outcome = "rejected"
)

// PushResult is the per-record result of a push batch.
type PushResult struct {
	CID     string
	Kind    models.Kind
	Outcome Outcome

	// ServerID is set on first acceptance.
	ServerID string

	// Remote is the authority's competing snapshot, present on rejection.
	Remote *models.RemoteRecord
}

// Orchestrator is the external collaborator owning the network round trip.
// Implementations apply their own transport-level retry and timeouts.
type Orchestrator interface {
	// Push submits local records; the authority accepts a record only when
	// its vKey is exactly one greater than the last accepted vKey for that
	// cid.
	Push(ctx context.Context, records []models.RemoteRecord) ([]PushResult, error)

	// Pull returns remote changes for the user since the given epoch-millis
	// watermark.
	Pull(ctx context.Context, userID string, since int64) ([]models.RemoteRecord, error)
}

// NopOrchestrator is the offline mode: nothing is pushed, nothing arrives.
type NopOrchestrator struct{}

func (NopOrchestrator) Push(ctx context.Context, records []models.RemoteRecord) ([]PushResult, error) {
	return nil, nil
}

func (NopOrchestrator) Pull(ctx context.Context, userID string, since int64) ([]models.RemoteRecord, error) {
	return nil, nil
}
