package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/dmitrijs2005/moneta/internal/common"
	"github.com/dmitrijs2005/moneta/internal/conflict"
	"github.com/dmitrijs2005/moneta/internal/logging"
	"github.com/dmitrijs2005/moneta/internal/models"
	"github.com/dmitrijs2005/moneta/internal/repositories/audit"
	"github.com/dmitrijs2005/moneta/internal/store"
	"github.com/dmitrijs2005/moneta/internal/timex"
)

// DefaultAttemptCeiling is how many failed pushes a record may accumulate
// before the core stops auto-retrying it and surfaces it to the user.
const DefaultAttemptCeiling = 5

// Report summarizes one sync cycle.
type Report struct {
	Pushed   int
	Accepted int
	Rejected int
	Pulled   int

	// Stalled lists records past the attempt ceiling, skipped this cycle.
	Stalled []string

	// Corrupt lists cids where vKey agreed but checksums diverged. These
	// are reported and audited, never auto-resolved.
	Corrupt []string
}

// Service owns the sync cycle. Cycles are serialized: a second Sync call
// blocks until the running one finishes.
type Service struct {
	store    *store.Store
	resolver *conflict.Resolver
	orch     Orchestrator
	log      logging.Logger
	ceiling  int

	mu        sync.Mutex
	lastPull  int64
	triggerCh chan string
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithAttemptCeiling overrides the failed-push ceiling.
func WithAttemptCeiling(n int) ServiceOption {
	return func(s *Service) { s.ceiling = n }
}

// NewService wires the sync driver.
func NewService(st *store.Store, r *conflict.Resolver, orch Orchestrator, log logging.Logger, opts ...ServiceOption) *Service {
	s := &Service{
		store:     st,
		resolver:  r,
		orch:      orch,
		log:       log,
		ceiling:   DefaultAttemptCeiling,
		triggerCh: make(chan string, 1),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// TriggerSync requests a cycle from the background loop. Safe to call from
// any component after a mutation batch or a committed resolution; requests
// arriving while a cycle is queued coalesce.
func (s *Service) TriggerSync(userID string) {
	select {
	case s.triggerCh <- userID:
	default:
	}
}

// Run processes periodic and triggered sync cycles until ctx is done.
func (s *Service) Run(ctx context.Context, userID string, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.runCycle(ctx, userID)
		case id := <-s.triggerCh:
			s.runCycle(ctx, id)
		case <-ctx.Done():
			return
		}
	}
}

func (s *Service) runCycle(ctx context.Context, userID string) {
	report, err := s.Sync(ctx, userID)
	if err != nil {
		s.log.Error(ctx, "sync cycle failed", "error", err)
		return
	}
	s.log.Info(ctx, "sync cycle finished",
		"pushed", report.Pushed, "accepted", report.Accepted,
		"rejected", report.Rejected, "pulled", report.Pulled,
		"stalled", len(report.Stalled))
}

// Sync pushes unsynced local records and merges remote changes. Rejected
// pushes are routed into the conflict protocol; they are an expected part
// of the cycle, not an error.
func (s *Service) Sync(ctx context.Context, userID string) (*Report, error) {
	if userID == "" {
		return nil, common.ErrInvalidIdentity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	report := &Report{}

	if err := s.push(ctx, userID, report); err != nil {
		return report, err
	}
	if err := s.pull(ctx, userID, report); err != nil {
		return report, err
	}
	return report, nil
}

func (s *Service) collect(ctx context.Context, userID string, report *Report) ([]models.RemoteRecord, error) {
	// Books go first so a new entry's book exists remotely before the
	// entry referencing it arrives.
	var batch []models.RemoteRecord

	bks, err := s.store.UnsyncedBooks(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, b := range bks {
		if s.stalled(&b.LocalRecord, report) {
			continue
		}
		remote, err := models.BookRemote(b)
		if err != nil {
			return nil, err
		}
		batch = append(batch, remote)
	}

	ents, err := s.store.UnsyncedEntries(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, e := range ents {
		if s.stalled(&e.LocalRecord, report) {
			continue
		}
		// The payload refers to the book by its server identity once the id
		// bridge knows it; before the book's first push the cid travels.
		if serverID, ok := s.store.Bridge().ServerID(models.KindBook, e.BookID); ok {
			resolved := *e
			resolved.BookID = serverID
			remote, err := models.EntryRemote(&resolved)
			if err != nil {
				return nil, err
			}
			batch = append(batch, remote)
			continue
		}
		remote, err := models.EntryRemote(e)
		if err != nil {
			return nil, err
		}
		batch = append(batch, remote)
	}

	return batch, nil
}

func (s *Service) stalled(rec *models.LocalRecord, report *Report) bool {
	if rec.SyncAttempts < s.ceiling {
		return false
	}
	report.Stalled = append(report.Stalled, rec.CID)
	s.log.Warn(context.Background(), "record past attempt ceiling, surfacing to user",
		"cid", rec.CID, "attempts", rec.SyncAttempts, "ceiling_error", common.ErrSyncCeiling.Error())
	return true
}

func (s *Service) push(ctx context.Context, userID string, report *Report) error {
	batch, err := s.collect(ctx, userID, report)
	if err != nil {
		return err
	}
	if len(batch) == 0 {
		return nil
	}

	records := batch
	index := make(map[string]models.RemoteRecord, len(batch))
	for _, r := range batch {
		index[r.CID] = r
	}
	report.Pushed = len(records)

	var results []PushResult
	backoff := retry.WithMaxRetries(3, retry.NewFibonacci(500*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		var pushErr error
		results, pushErr = s.orch.Push(ctx, records)
		if pushErr != nil {
			return retry.RetryableError(pushErr)
		}
		return nil
	})
	if err != nil {
		// Transport failed after backoff: charge one attempt to every
		// record in the batch and let the next cycle retry.
		for _, r := range batch {
			if ierr := s.store.IncrementSyncAttempts(ctx, r.Kind, r.CID); ierr != nil {
				s.log.Error(ctx, "failed to record sync attempt", "cid", r.CID, "error", ierr)
			}
		}
		return fmt.Errorf("push failed: %w", err)
	}

	for _, res := range results {
		pushed, ok := index[res.CID]
		if !ok {
			s.log.Warn(ctx, "push result for unknown record", "cid", res.CID)
			continue
		}
		switch res.Outcome {
		case OutcomeAccepted:
			report.Accepted++
			if err := s.markAccepted(ctx, userID, res); err != nil {
				return err
			}
		case OutcomeRejected:
			report.Rejected++
			if err := s.handleRejection(ctx, userID, pushed, res, report); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unknown push outcome %q for %s", res.Outcome, res.CID)
		}
	}
	return nil
}

func (s *Service) markAccepted(ctx context.Context, userID string, res PushResult) error {
	switch res.Kind {
	case models.KindBook:
		b, err := s.store.Book(ctx, userID, res.CID)
		if err != nil {
			return err
		}
		acceptRecord(&b.LocalRecord, res.ServerID)
		return s.store.PutBook(ctx, models.OpServerOverwrite, b)
	case models.KindEntry:
		e, err := s.store.Entry(ctx, userID, res.CID)
		if err != nil {
			return err
		}
		acceptRecord(&e.LocalRecord, res.ServerID)
		return s.store.PutEntry(ctx, models.OpServerOverwrite, e)
	default:
		return fmt.Errorf("unknown record kind %q", res.Kind)
	}
}

func acceptRecord(rec *models.LocalRecord, serverID string) {
	rec.Synced = true
	rec.Conflicted = false
	rec.ServerData = nil
	rec.SyncAttempts = 0
	if serverID != "" {
		rec.ServerID = serverID
	}
}

func (s *Service) handleRejection(ctx context.Context, userID string, pushed models.RemoteRecord, res PushResult, report *Report) error {
	if res.Remote == nil {
		return fmt.Errorf("rejected push for %s carried no remote snapshot", res.CID)
	}
	remote := *res.Remote

	// vKey agreement with checksum disagreement is not a conflict: it is
	// corruption. Surface and audit it, never auto-resolve.
	if remote.VKey == pushed.VKey {
		if remote.Checksum == pushed.Checksum {
			// Identical on both sides; the push was redundant.
			return s.markAccepted(ctx, userID, PushResult{
				CID: res.CID, Kind: res.Kind, Outcome: OutcomeAccepted, ServerID: remote.ServerID,
			})
		}
		report.Corrupt = append(report.Corrupt, res.CID)
		s.log.Error(ctx, "checksum mismatch at equal vkey",
			"cid", res.CID, "vkey", remote.VKey, "error", common.ErrChecksumMismatch.Error())
		return s.store.AppendAudit(ctx, audit.Record{
			CID:       res.CID,
			Kind:      res.Kind,
			Decision:  "corruption",
			Timestamp: timex.NowMillis(),
			UserID:    userID,
		})
	}

	return s.resolver.Flag(ctx, userID, remote)
}

func (s *Service) pull(ctx context.Context, userID string, report *Report) error {
	since := s.lastPull
	remotes, err := s.orch.Pull(ctx, userID, since)
	if err != nil {
		return fmt.Errorf("pull failed: %w", err)
	}
	for _, remote := range remotes {
		if err := s.merge(ctx, userID, remote, report); err != nil {
			return err
		}
		report.Pulled++
	}
	s.lastPull = timex.NowMillis()
	return nil
}

// merge routes one pulled record through the same accept/conflict path as a
// push rejection.
func (s *Service) merge(ctx context.Context, userID string, remote models.RemoteRecord, report *Report) error {
	switch remote.Kind {
	case models.KindBook:
		return s.mergeBook(ctx, userID, remote, report)
	case models.KindEntry:
		return s.mergeEntry(ctx, userID, remote, report)
	default:
		return fmt.Errorf("unknown record kind %q", remote.Kind)
	}
}

func (s *Service) mergeBook(ctx context.Context, userID string, remote models.RemoteRecord, report *Report) error {
	local, err := s.store.Book(ctx, userID, remote.CID)
	if err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			return err
		}
		// Unknown cid: a record created on another device.
		fields, perr := remote.BookPayload()
		if perr != nil {
			return perr
		}
		b := &models.Book{}
		b.ApplyFields(fields)
		remoteInto(&b.LocalRecord, userID, remote)
		return s.store.PutBook(ctx, models.OpServerCreate, b)
	}

	action, err := s.classifyMerge(ctx, userID, &local.LocalRecord, remote, report)
	if err != nil || action != mergeOverwrite {
		return err
	}

	fields, err := remote.BookPayload()
	if err != nil {
		return err
	}
	local.ApplyFields(fields)
	remoteInto(&local.LocalRecord, userID, remote)
	return s.store.PutBook(ctx, models.OpServerOverwrite, local)
}

func (s *Service) mergeEntry(ctx context.Context, userID string, remote models.RemoteRecord, report *Report) error {
	local, err := s.store.Entry(ctx, userID, remote.CID)
	if err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			return err
		}
		fields, perr := remote.EntryPayload()
		if perr != nil {
			return perr
		}
		e := &models.Entry{}
		e.ApplyFields(fields)
		// The remote refers to the book by server identity; bridge back to
		// the local cid when we know it.
		if cid, ok := s.store.Bridge().CID(models.KindBook, e.BookID); ok {
			e.BookID = cid
		}
		remoteInto(&e.LocalRecord, userID, remote)
		return s.store.PutEntry(ctx, models.OpServerCreate, e)
	}

	action, err := s.classifyMerge(ctx, userID, &local.LocalRecord, remote, report)
	if err != nil || action != mergeOverwrite {
		return err
	}

	fields, err := remote.EntryPayload()
	if err != nil {
		return err
	}
	if cid, ok := s.store.Bridge().CID(models.KindBook, fields.BookID); ok {
		fields.BookID = cid
	}
	local.ApplyFields(fields)
	remoteInto(&local.LocalRecord, userID, remote)
	return s.store.PutEntry(ctx, models.OpServerOverwrite, local)
}

type mergeAction int

const (
	mergeSkip mergeAction = iota
	mergeOverwrite
)

func (s *Service) classifyMerge(ctx context.Context, userID string, local *models.LocalRecord, remote models.RemoteRecord, report *Report) (mergeAction, error) {
	if local.Conflicted {
		// Already awaiting a human decision; the stored snapshot stands
		// until the user resolves.
		return mergeSkip, nil
	}
	if local.Clean() {
		return mergeOverwrite, nil
	}

	// Local unsynced changes meet a remote change: same divergence as a
	// rejected push.
	if local.VKey == remote.VKey {
		if local.Checksum == remote.Checksum {
			return mergeSkip, nil
		}
		report.Corrupt = append(report.Corrupt, remote.CID)
		s.log.Error(ctx, "checksum mismatch at equal vkey",
			"cid", remote.CID, "vkey", remote.VKey, "error", common.ErrChecksumMismatch.Error())
		return mergeSkip, s.store.AppendAudit(ctx, audit.Record{
			CID:       remote.CID,
			Kind:      remote.Kind,
			Decision:  "corruption",
			Timestamp: timex.NowMillis(),
			UserID:    userID,
		})
	}
	return mergeSkip, s.resolver.Flag(ctx, userID, remote)
}

func remoteInto(rec *models.LocalRecord, userID string, remote models.RemoteRecord) {
	rec.CID = remote.CID
	rec.ServerID = remote.ServerID
	rec.UserID = userID
	rec.VKey = remote.VKey
	rec.Checksum = remote.Checksum
	rec.Deleted = remote.Deleted
	rec.Synced = true
	rec.Conflicted = false
	rec.ServerData = nil
	rec.SyncAttempts = 0
}
