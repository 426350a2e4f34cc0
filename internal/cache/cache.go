// Package cache computes aggregate statistics (balances, counts) over the
// local record store with stale-while-revalidate semantics. The live query
// can transiently report zero rows while the storage engine is mid-sync;
// the cache masks that with a hysteresis filter so consumers never see a
// spurious zeroed aggregate, at the cost of a small staleness window.
package cache

import (
	"context"
	"sync"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/dmitrijs2005/moneta/internal/logging"
	"github.com/dmitrijs2005/moneta/internal/models"
	"github.com/dmitrijs2005/moneta/internal/repositories/entries"
)

// State is the hysteresis position of the cache.
//
// Transitions:
//
//	Fresh         --count drops to 0--> SyncSuspected (last good value held)
//	SyncSuspected --count > 0--------> Fresh
//	SyncSuspected --still 0----------> Frozen        (last good value held)
//	Frozen        --still 0----------> Fresh         (zero accepted as genuine)
//	Frozen        --count > 0--------> Fresh
type State string

const (
	StateFresh         State = "fresh"
	StateSyncSuspected State = "sync-suspected"
	StateFrozen        State = "frozen"
)

// Summary holds the derived aggregates over live entries.
type Summary struct {
	Count   int
	Inflow  decimal.Decimal
	Outflow decimal.Decimal
	Net     decimal.Decimal
}

// zeroSummary keeps decimals initialized so callers never format a zero-value
// decimal struct.
func zeroSummary() Summary {
	return Summary{Inflow: decimal.Zero, Outflow: decimal.Zero, Net: decimal.Zero}
}

// FormatNet renders the net balance in the given ISO currency code.
func (s Summary) FormatNet(currency string) string {
	// go-money wants minor units; shift by the currency's exponent.
	cur := money.GetCurrency(currency)
	if cur == nil {
		return s.Net.String()
	}
	minor := s.Net.Shift(int32(cur.Fraction)).Round(0)
	return money.New(minor.IntPart(), currency).Display()
}

// Querier is the read-only slice of the store the cache needs.
type Querier interface {
	Entries(ctx context.Context, userID string, f entries.Filter) ([]models.Entry, error)
}

// Cache is an explicitly stale, read-only projection of the store.
// All state lives on the value; sessions and tests never share globals.
type Cache struct {
	q      Querier
	userID string
	log    logging.Logger

	mu    sync.RWMutex
	state State
	last  Summary

	sf singleflight.Group
}

// New returns a cache for one user's entries.
func New(q Querier, userID string, log logging.Logger) *Cache {
	return &Cache{q: q, userID: userID, log: log, state: StateFresh, last: zeroSummary()}
}

// Summary returns the last reported aggregate without recomputing.
func (c *Cache) Summary() Summary {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.last
}

// State returns the current hysteresis position.
func (c *Cache) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Refresh recomputes the aggregate from the live query and runs it through
// the hysteresis filter. Concurrent callers share a single recompute.
func (c *Cache) Refresh(ctx context.Context) (Summary, error) {
	v, err, _ := c.sf.Do("refresh", func() (any, error) {
		rows, err := c.q.Entries(ctx, c.userID, entries.Filter{})
		if err != nil {
			return zeroSummary(), err
		}
		return c.apply(ctx, compute(rows)), nil
	})
	if err != nil {
		return zeroSummary(), err
	}
	return v.(Summary), nil
}

func compute(rows []models.Entry) Summary {
	s := zeroSummary()
	for _, e := range rows {
		s.Count++
		switch e.Direction {
		case models.DirectionIncome:
			s.Inflow = s.Inflow.Add(e.Amount)
		case models.DirectionExpense:
			s.Outflow = s.Outflow.Add(e.Amount)
		}
	}
	s.Net = s.Inflow.Sub(s.Outflow)
	return s
}

// apply advances the state machine and decides whether the freshly computed
// value or the frozen one is reported.
func (c *Cache) apply(ctx context.Context, fresh Summary) Summary {
	c.mu.Lock()
	defer c.mu.Unlock()

	if fresh.Count > 0 {
		c.state = StateFresh
		c.last = fresh
		return fresh
	}

	switch c.state {
	case StateFresh:
		if c.last.Count == 0 {
			// A genuinely empty ledger: zero is the correct value.
			c.last = fresh
			return fresh
		}
		// Non-zero dropped to zero: suspect an in-flight sync cycle and
		// hold the last good aggregate.
		c.state = StateSyncSuspected
		c.log.Debug(ctx, "aggregate drop to zero, holding last value",
			"held_count", c.last.Count)
		return c.last

	case StateSyncSuspected:
		c.state = StateFrozen
		return c.last

	default: // StateFrozen
		// Zero persisted across the whole window: accept it as genuine.
		c.state = StateFresh
		c.last = fresh
		return fresh
	}
}
