package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "modernc.org/sqlite"

	"github.com/dmitrijs2005/moneta/internal/bus"
	"github.com/dmitrijs2005/moneta/internal/cache"
	"github.com/dmitrijs2005/moneta/internal/cli"
	"github.com/dmitrijs2005/moneta/internal/config"
	"github.com/dmitrijs2005/moneta/internal/conflict"
	"github.com/dmitrijs2005/moneta/internal/logging"
	"github.com/dmitrijs2005/moneta/internal/services"
	"github.com/dmitrijs2005/moneta/internal/store"
	"github.com/dmitrijs2005/moneta/internal/syncer"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		return err
	}
	log := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	eventBus := bus.New(bus.Config{
		Debounce: cfg.RefreshDebounce,
		Cooldown: cfg.RefreshCooldown,
	}, log)
	defer eventBus.Close()

	st, err := store.Open(ctx, cfg.DatabaseDSN, log, store.WithNotifier(eventBus))
	if err != nil {
		return err
	}
	defer st.Close()

	svc, resolver := wireSync(cfg, st, log)
	ledger := services.NewLedgerService(st, resolver, svc.TriggerSync, log)

	derived := cache.New(st, cfg.UserID, log)
	eventBus.SubscribeRefresh(func() {
		if _, err := derived.Refresh(context.Background()); err != nil {
			log.Error(context.Background(), "failed to refresh aggregates", "error", err)
		}
	})

	log.Info(ctx, "moneta started",
		"db", cfg.DatabaseDSN, "user", cfg.UserID,
		"mode", mode(cfg.SyncEndpointAddr))

	// The sync loop runs in the background; the REPL owns the foreground.
	go svc.Run(ctx, cfg.UserID, cfg.SyncInterval)

	app := cli.NewApp(cfg, ledger, resolver, svc, derived, log)
	app.Run(ctx)
	return nil
}

// wireSync builds the conflict resolver and sync service with their mutual
// trigger hookup.
func wireSync(cfg *config.Config, st *store.Store, log logging.Logger) (*syncer.Service, *conflict.Resolver) {
	var svc *syncer.Service

	resolver := conflict.NewResolver(st, log,
		conflict.WithGraceWindow(cfg.ResolveGraceWindow),
		conflict.WithSyncTrigger(func(userID string) { svc.TriggerSync(userID) }),
	)

	// The transport implementation lives outside the core; without an
	// endpoint the client runs fully offline.
	var orch syncer.Orchestrator = syncer.NopOrchestrator{}

	svc = syncer.NewService(st, resolver, orch, log,
		syncer.WithAttemptCeiling(cfg.SyncAttemptCeiling))
	return svc, resolver
}

func mode(endpoint string) string {
	if endpoint == "" {
		return "offline"
	}
	return "online"
}
