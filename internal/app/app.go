// Package app wires configuration, storage, transport, cache, the
// GitHub client and the terminal program into one lifecycle.
package app

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/hubview/hubview/internal/debug"
	"github.com/hubview/hubview/internal/tui"
	"github.com/hubview/hubview/pkg/auth"
	"github.com/hubview/hubview/pkg/cache"
	"github.com/hubview/hubview/pkg/config"
	"github.com/hubview/hubview/pkg/github"
	"github.com/hubview/hubview/pkg/metrics"
	"github.com/hubview/hubview/pkg/rate"
	"github.com/hubview/hubview/pkg/storage"
	"github.com/hubview/hubview/pkg/storage/persist"
	"github.com/hubview/hubview/pkg/transport"
)

// App owns the composed components and their shutdown order.
type App struct {
	cfg     *config.Config
	ctx     context.Context
	cancel  context.CancelFunc
	program *tea.Program
	debug   *debug.Server
	kv      persist.KV
}

// New composes the application. A missing credential is the one fatal
// startup failure; a broken persistence directory degrades to
// in-memory-only operation with a logged warning.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	ctx, cancel := context.WithCancel(ctx)

	tokens, err := auth.Load(cfg.Auth)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("credential: %w", err)
	}

	reg := prometheus.NewRegistry()
	meter, err := metrics.New(reg)
	if err != nil {
		cancel()
		return nil, err
	}

	limits := rate.NewLimitState()
	tr := transport.New(ctx, cfg.Transport, tokens, limits, meter)
	store := storage.New(ctx, cfg.Cache)

	var kv persist.KV
	if cfg.Cache.Dir != "" {
		kv, err = persist.OpenLevelDB(cfg.Cache.Dir)
		if err != nil {
			log.Warn().Err(&cache.CacheIOError{Op: "open", Err: err}).
				Msg("[app] cache persistence unavailable, running in-memory only")
			kv = nil
		}
	}

	responseCache := cache.New(cfg.Cache, store, kv, tr, meter)
	if err := responseCache.Load(); err != nil {
		// Already degraded inside the cache; nothing else to do.
		log.Warn().Err(err).Msg("[app] persisted cache not restored")
	}

	gh := github.New(responseCache, tr, cfg.Transport.BaseURL, cfg.UI.PerPage)

	var dbg *debug.Server
	if cfg.DebugServer.Enabled {
		dbg = debug.New(ctx, cfg.DebugServer, reg, responseCache, limits)
	}

	program := tea.NewProgram(
		tui.New(ctx, gh, limits),
		tea.WithAltScreen(),
	)

	return &App{
		cfg:     cfg,
		ctx:     ctx,
		cancel:  cancel,
		program: program,
		debug:   dbg,
		kv:      kv,
	}, nil
}

// Start runs the terminal program until it exits, then tears down the
// background components.
func (a *App) Start() error {
	defer a.stop()

	log.Info().Msg("starting hubview")
	if a.debug != nil {
		a.debug.ListenAndServe()
	}

	// Quit the program when the outer context ends (signals).
	go func() {
		<-a.ctx.Done()
		a.program.Quit()
	}()

	if _, err := a.program.Run(); err != nil {
		return err
	}
	return nil
}

func (a *App) stop() {
	log.Info().Msg("stopping hubview")
	a.cancel()
	if a.kv != nil {
		if err := a.kv.Close(); err != nil {
			log.Warn().Err(err).Msg("[app] closing cache persistence failed")
		}
	}
	log.Info().Msg("hubview stopped")
}
