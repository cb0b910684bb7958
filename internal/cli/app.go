// Package cli is the interactive terminal frontend: it wires the
// configuration, preferences, authentication, backend connection and the
// list store together and drives them from a small REPL.
package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/cartsync/internal/auth"
	"github.com/dmitrijs2005/cartsync/internal/config"
	"github.com/dmitrijs2005/cartsync/internal/filex"
	"github.com/dmitrijs2005/cartsync/internal/logging"
	"github.com/dmitrijs2005/cartsync/internal/models"
	"github.com/dmitrijs2005/cartsync/internal/prefs"
	"github.com/dmitrijs2005/cartsync/internal/remote"
	"github.com/dmitrijs2005/cartsync/internal/store"
)

type App struct {
	config  *config.Config
	log     logging.Logger
	auth    *auth.Service
	store   *store.Store
	local   *store.LocalEngine
	manager *remote.Manager
	sub     *remote.Subscriber
	prefsDB *sql.DB
	reader  *bufio.Reader

	// current REPL selection: the active list and the item ids shown by the
	// last "show", so commands can address items by number.
	currentList string
	itemView    []string
	listView    []string
}

// NewApp wires every collaborator from the configuration. A missing or
// unreachable backend is not fatal: the app simply stays in Local Mode.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	log := newLogger(cfg.LogLevel)

	a := &App{
		config: cfg,
		log:    log,
		reader: bufio.NewReader(os.Stdin),
	}

	prefsPath := cfg.PrefsPath
	if prefsPath == "" {
		dir, err := filex.EnsureConfigDir("cartsync")
		if err != nil {
			return nil, err
		}
		prefsPath = filepath.Join(dir, "prefs.db")
	}
	prefsDB, err := prefs.Open(ctx, prefsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open preferences: %w", err)
	}
	a.prefsDB = prefsDB
	prefsRepo := prefs.NewSQLiteRepository(prefsDB)

	var tokenClient auth.TokenClient
	if cfg.AuthURL != "" {
		tokenClient = auth.NewHTTPTokenClient(cfg.AuthURL, cfg.AuthAnonKey)
	}
	a.auth = auth.NewService(tokenClient, prefsRepo, log)

	identity := func() string {
		if u := a.auth.Current().User; u != nil {
			return u.Key()
		}
		return "local"
	}
	a.local = store.NewLocalEngine(identity)

	var remoteEngine store.Engine
	if cfg.DatabaseDSN != "" {
		manager, err := remote.NewManager(ctx, cfg.DatabaseDSN)
		if err != nil {
			log.Warn(ctx, "backend unreachable, staying in Local Mode", "error", err)
		} else if err := manager.RunMigrations(ctx); err != nil {
			manager.Close()
			return nil, err
		} else {
			a.manager = manager
			remoteEngine = store.NewRemoteEngine(manager, identity, cfg.PromoteAfter, log)
			a.sub = remote.NewSubscriber(cfg.DatabaseDSN, cfg.NotifyChannel, log)
		}
	}

	a.store = store.New(store.Options{
		Auth:         a.auth,
		Local:        a.local,
		Remote:       remoteEngine,
		PromoteAfter: cfg.PromoteAfter,
		Notify: func(action string, err error) {
			printlnFn(fmt.Sprintf("Could not %s: %v", action, err))
		},
		Logger: log,
	})

	if cfg.SeedFile != "" {
		data, err := os.ReadFile(cfg.SeedFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read seed file: %w", err)
		}
		if err := a.local.Seed(data); err != nil {
			return nil, err
		}
		log.Info(ctx, "loaded seed data", "file", cfg.SeedFile)
	}

	return a, nil
}

// Run restores any remembered session, starts the background machinery and
// enters the REPL. It blocks until the user exits.
func (a *App) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer a.close()

	if _, err := a.auth.RestoreRemembered(ctx); err == nil {
		a.store.Refresh(ctx)
	} else {
		_, _ = a.auth.SignInAnonymously(ctx)
	}

	if a.sub != nil {
		a.sub.Start(ctx, func() {
			a.store.Refresh(context.Background())
		})
	}
	if err := a.store.StartSweeps(a.config.SweepInterval); err != nil {
		a.log.Warn(ctx, "failed to start recurrence sweep", "error", err)
	}

	a.Root(ctx)
}

func (a *App) close() {
	a.store.Close()
	if a.sub != nil {
		a.sub.Close()
	}
	if a.manager != nil {
		_ = a.manager.Close()
	}
	_ = a.prefsDB.Close()
}

func (a *App) isSignedIn() bool {
	return a.store.IsAuthenticated()
}

// selectedList resolves the current list against the latest snapshot.
func (a *App) selectedList(ctx context.Context) (models.List, bool) {
	for _, l := range a.store.Lists(ctx) {
		if l.ID == a.currentList {
			return l, true
		}
	}
	return models.List{}, false
}

func newLogger(level string) logging.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	return logging.NewSlogLogger(slog.New(h))
}
