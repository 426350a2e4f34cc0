package bus

import (
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/moneta/internal/logging"
	"github.com/dmitrijs2005/moneta/internal/models"
)

func newTestBus(t *testing.T, debounce, cooldown time.Duration) *Bus {
	t.Helper()
	log := logging.NewSlogLogger(slog.Default())
	b := New(Config{Debounce: debounce, Cooldown: cooldown}, log)
	t.Cleanup(b.Close)
	return b
}

func userEvent(op models.OpKind) Event {
	return Event{Name: SignalDatabaseUpdated, Op: op, Kind: models.KindEntry}
}

func TestBus_CoalescesBurstIntoOneRefresh(t *testing.T) {
	b := newTestBus(t, 20*time.Millisecond, 40*time.Millisecond)

	var fired atomic.Int32
	b.SubscribeRefresh(func() { fired.Add(1) })

	for i := 0; i < 10; i++ {
		b.Publish(userEvent(models.OpUpdate))
	}

	require.Eventually(t, func() bool { return fired.Load() == 1 },
		time.Second, 5*time.Millisecond)

	// no extra refreshes after the window closes
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(1), fired.Load())
}

func TestBus_BackgroundOpsNeverRefresh(t *testing.T) {
	b := newTestBus(t, 10*time.Millisecond, 20*time.Millisecond)

	var fired atomic.Int32
	b.SubscribeRefresh(func() { fired.Add(1) })

	b.Publish(userEvent(models.OpHydrate))
	b.Publish(userEvent(models.OpServerCreate))
	b.Publish(userEvent(models.OpServerOverwrite))

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), fired.Load())
}

func TestBus_BackgroundOpsStillObservable(t *testing.T) {
	b := newTestBus(t, 10*time.Millisecond, 20*time.Millisecond)

	var seen atomic.Int32
	b.SubscribeEvents(func(ev Event) { seen.Add(1) })

	b.Publish(userEvent(models.OpServerOverwrite))
	b.Publish(userEvent(models.OpUpdate))

	assert.Equal(t, int32(2), seen.Load())
}

func TestBus_RefreshCarriesVaultUpdatedHandshake(t *testing.T) {
	b := newTestBus(t, time.Hour, time.Hour)

	events := make(chan Event, 4)
	b.SubscribeEvents(func(ev Event) { events <- ev })

	b.Publish(userEvent(models.OpCreate))
	b.Publish(userEvent(models.OpUpdate))
	b.Flush()

	var names []string
	for len(events) > 0 {
		names = append(names, (<-events).Name)
	}
	assert.Equal(t, []string{
		SignalDatabaseUpdated,
		SignalDatabaseUpdated,
		SignalVaultUpdated,
	}, names, "one coalesced handshake after the per-write signals")
}

func TestBus_CooldownSuppressesRapidSecondRefresh(t *testing.T) {
	b := newTestBus(t, 10*time.Millisecond, 150*time.Millisecond)

	var fired atomic.Int32
	times := make(chan time.Time, 4)
	b.SubscribeRefresh(func() {
		fired.Add(1)
		times <- time.Now()
	})

	b.Publish(userEvent(models.OpCreate))
	require.Eventually(t, func() bool { return fired.Load() == 1 },
		time.Second, time.Millisecond)
	first := <-times

	// second event lands inside the cooldown window
	b.Publish(userEvent(models.OpUpdate))
	require.Eventually(t, func() bool { return fired.Load() == 2 },
		time.Second, time.Millisecond)
	second := <-times

	assert.GreaterOrEqual(t, second.Sub(first), 100*time.Millisecond,
		"second refresh must be pushed out past the cooldown window")
}

func TestBus_FlushFiresPendingImmediately(t *testing.T) {
	b := newTestBus(t, time.Hour, time.Hour)

	var fired atomic.Int32
	b.SubscribeRefresh(func() { fired.Add(1) })

	b.Publish(userEvent(models.OpCreate))
	assert.Equal(t, int32(0), fired.Load())

	b.Flush()
	assert.Equal(t, int32(1), fired.Load())

	// nothing pending, flush is a no-op
	b.Flush()
	assert.Equal(t, int32(1), fired.Load())
}

func TestBus_ClosedBusDropsEvents(t *testing.T) {
	b := newTestBus(t, 5*time.Millisecond, 10*time.Millisecond)

	var fired atomic.Int32
	b.SubscribeRefresh(func() { fired.Add(1) })

	b.Close()
	b.Publish(userEvent(models.OpCreate))

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(0), fired.Load())
}
