// Package bus implements the event coordination layer between the local
// record store and refresh consumers. Every storage mutation arrives as a
// classified event; user-originated mutations schedule a debounced refresh,
// background sync traffic never does. All timer state is owned by the Bus
// value, never by package globals, so sessions and tests stay isolated.
package bus

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/moneta/internal/logging"
	"github.com/dmitrijs2005/moneta/internal/models"
	"github.com/dmitrijs2005/moneta/internal/timex"
)

// Signal names carried on published events.
const (
	// SignalDatabaseUpdated is emitted by the record store on every write,
	// carrying the classified operation and record kind.
	SignalDatabaseUpdated = "database-updated"

	// SignalVaultUpdated is the coalesced local-mutation handshake: it is
	// emitted once per debounced refresh, after user-classified writes.
	SignalVaultUpdated = "vault-updated"
)

// Event is one classified mutation notification.
type Event struct {
	Name      string
	Op        models.OpKind
	Kind      models.Kind
	Timestamp int64
}

// Config tunes the coalescing behavior.
type Config struct {
	// Debounce is the single-shot window that coalesces bursts of mutation
	// events into one refresh.
	Debounce time.Duration
	// Cooldown suppresses refreshes that arrive too soon after the previous
	// one actually fired, so multi-record sync batches cannot cause a
	// refresh storm.
	Cooldown time.Duration
}

// DefaultConfig returns the production windows.
func DefaultConfig() Config {
	return Config{
		Debounce: 500 * time.Millisecond,
		Cooldown: time.Second,
	}
}

// RefreshFunc is invoked after the debounce window closes. It is a
// "something changed, re-read" signal: multiple rapid events may collapse
// into a single call.
type RefreshFunc func()

// EventFunc observes every published event, including background ones.
type EventFunc func(Event)

// Bus coalesces mutation events into refresh signals.
type Bus struct {
	cfg Config
	log logging.Logger

	mu        sync.Mutex
	timer     *time.Timer
	lastFired time.Time
	pending   bool
	closed    bool

	refreshSubs []RefreshFunc
	eventSubs   []EventFunc
}

// New returns a Bus with the given windows.
func New(cfg Config, log logging.Logger) *Bus {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultConfig().Debounce
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultConfig().Cooldown
	}
	return &Bus{cfg: cfg, log: log}
}

// SubscribeRefresh registers a debounced refresh consumer.
func (b *Bus) SubscribeRefresh(fn RefreshFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refreshSubs = append(b.refreshSubs, fn)
}

// SubscribeEvents registers a raw event observer.
func (b *Bus) SubscribeEvents(fn EventFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.eventSubs = append(b.eventSubs, fn)
}

// RecordMutated implements store.Notifier. The store calls it synchronously
// after the write commits, which is what gives refresh consumers
// read-after-write consistency.
func (b *Bus) RecordMutated(op models.OpKind, kind models.Kind) {
	b.Publish(Event{
		Name:      SignalDatabaseUpdated,
		Op:        op,
		Kind:      kind,
		Timestamp: timex.NowMillis(),
	})
}

// Publish classifies one event. Background-origin operations (hydrate and
// server-side reconciliation) are delivered to raw observers but never
// schedule a refresh.
func (b *Bus) Publish(ev Event) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	observers := make([]EventFunc, len(b.eventSubs))
	copy(observers, b.eventSubs)
	b.mu.Unlock()

	for _, fn := range observers {
		fn(ev)
	}

	if ev.Op.Background() {
		b.log.Debug(context.Background(), "suppressed background event",
			"op", string(ev.Op), "kind", string(ev.Kind))
		return
	}

	b.scheduleRefresh()
}

func (b *Bus) scheduleRefresh() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed || b.pending {
		return
	}
	b.pending = true

	delay := b.cfg.Debounce
	// Cooldown gate: if the previous refresh fired recently, push this one
	// out to the end of the cooldown window instead of firing again.
	if since := time.Since(b.lastFired); !b.lastFired.IsZero() && since < b.cfg.Cooldown {
		if rest := b.cfg.Cooldown - since; rest > delay {
			delay = rest
		}
	}

	b.timer = time.AfterFunc(delay, b.fire)
}

func (b *Bus) fire() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.pending = false
	b.lastFired = time.Now()
	subs := make([]RefreshFunc, len(b.refreshSubs))
	copy(subs, b.refreshSubs)
	observers := make([]EventFunc, len(b.eventSubs))
	copy(observers, b.eventSubs)
	b.mu.Unlock()

	handshake := Event{Name: SignalVaultUpdated, Timestamp: timex.NowMillis()}
	for _, fn := range observers {
		fn(handshake)
	}
	for _, fn := range subs {
		fn()
	}
}

// Flush fires any pending refresh immediately. Intended for tests and
// shutdown paths.
func (b *Bus) Flush() {
	b.mu.Lock()
	if !b.pending || b.closed {
		b.mu.Unlock()
		return
	}
	if b.timer != nil {
		b.timer.Stop()
	}
	b.mu.Unlock()
	b.fire()
}

// Close stops timers; further events are dropped.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	if b.timer != nil {
		b.timer.Stop()
	}
}
