// Package cli is the interactive command surface of the ledger client. It
// drives the ledger service, the conflict resolver and the sync loop through
// a small REPL, keeping all rendering concerns out of the core packages.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/moneta/internal/cache"
	"github.com/dmitrijs2005/moneta/internal/config"
	"github.com/dmitrijs2005/moneta/internal/conflict"
	"github.com/dmitrijs2005/moneta/internal/logging"
	"github.com/dmitrijs2005/moneta/internal/services"
	"github.com/dmitrijs2005/moneta/internal/syncer"
)

// App holds the wired components the commands operate on.
type App struct {
	cfg      *config.Config
	ledger   services.LedgerService
	resolver *conflict.Resolver
	syncSvc  *syncer.Service
	derived  *cache.Cache
	log      logging.Logger

	reader *bufio.Reader
	out    io.Writer

	// lastResolve remembers the most recent countdown so "undo" needs no
	// arguments inside the grace window.
	lastResolve *conflict.Key
}

// NewApp wires the command surface over already-constructed components.
func NewApp(cfg *config.Config, ledger services.LedgerService, resolver *conflict.Resolver,
	syncSvc *syncer.Service, derived *cache.Cache, log logging.Logger) *App {
	return &App{
		cfg:      cfg,
		ledger:   ledger,
		resolver: resolver,
		syncSvc:  syncSvc,
		derived:  derived,
		log:      log,
		reader:   bufio.NewReader(os.Stdin),
		out:      os.Stdout,
	}
}

// Run starts the REPL and blocks until the user exits or ctx is done.
func (a *App) Run(ctx context.Context) {
	scanner := bufio.NewScanner(a.reader)
	runREPL(ctx, a, a.status, scanner, a.out)
}

func (a *App) status() string {
	mode := "offline"
	if a.cfg.SyncEndpointAddr != "" {
		mode = "online"
	}
	return fmt.Sprintf("%s (%s)", a.cfg.UserID, mode)
}

// Sync requests a cycle from the background loop. The request coalesces with
// any cycle already queued.
func (a *App) Sync(ctx context.Context) error {
	a.syncSvc.TriggerSync(a.cfg.UserID)
	fmt.Fprintln(a.out, "sync requested")
	return nil
}

// Summary prints the anti-jitter aggregate over live entries.
func (a *App) Summary(ctx context.Context) error {
	s, err := a.derived.Refresh(ctx)
	if err != nil {
		a.log.Error(ctx, "failed to refresh aggregates", "error", err)
		return err
	}
	fmt.Fprintf(a.out, "entries: %d  in: %s  out: %s  net: %s\n",
		s.Count, s.Inflow.String(), s.Outflow.String(), s.FormatNet("USD"))
	return nil
}
