package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/w2w-movies/w2w/internal/adapters/httpapi"
	"github.com/w2w-movies/w2w/internal/adapters/memorybus"
	"github.com/w2w-movies/w2w/internal/adapters/phimapi"
	"github.com/w2w-movies/w2w/internal/adapters/sqlite"
	"github.com/w2w-movies/w2w/internal/app"
	"github.com/w2w-movies/w2w/internal/buildinfo"
	"github.com/w2w-movies/w2w/internal/config"
	"github.com/w2w-movies/w2w/internal/domain"
)

func main() {
	cfgFile := flag.String("config", os.Getenv("W2W_CONFIG"), "Fichier de configuration YAML (optionnel)")
	addr := flag.String("addr", "", "Adresse d'écoute (ex: 127.0.0.1:8080)")
	dbPath := flag.String("db", "", "Chemin SQLite (ex: w2w.db)")
	flag.Parse()

	cfg, err := config.Load(*cfgFile)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	if *addr != "" {
		cfg.Addr = *addr
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}

	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(os.Stdout).Level(level).With().Timestamp().Str("app", "w2w-server").Logger()
	log.Logger = logger

	logger.Info().Interface("build", buildinfo.Current()).Str("db", cfg.DBPath).Str("api", cfg.API.BaseURL).Msg("starting")

	ctx := context.Background()
	db, err := sqlite.Open(ctx, cfg.DBPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open db")
	}
	defer func() { _ = db.Close() }()

	bus := memorybus.New()
	defer bus.Close()

	settingsSvc := app.NewSettingsService(sqlite.NewSettingsRepository(db.SQL))
	st := settingsSvc.Current(ctx)

	// Limiteur global des requêtes PhimAPI, ajusté à chaud par PUT /settings.
	requestLimiter := app.NewDynamicLimiter(st.MaxConcurrentRequests)
	settingsSvc.OnChange(func(updated domain.Settings) {
		if updated.MaxConcurrentRequests > 0 {
			requestLimiter.SetLimit(updated.MaxConcurrentRequests)
		}
		logger.Info().Int("maxConcurrentRequests", updated.MaxConcurrentRequests).Int("pageSize", updated.PageSize).Msg("settings updated")
	})

	catalogue := phimapi.New(phimapi.Options{
		BaseURL:       cfg.API.BaseURL,
		ImageBaseURL:  cfg.API.ImageBaseURL,
		Timeout:       cfg.API.Timeout,
		RetryMax:      cfg.API.RetryMax,
		RetryBackoff:  cfg.API.RetryBackoff,
		RatePerSecond: cfg.API.RatePerSecond,
		Burst:         cfg.API.Burst,
		CacheSize:     cfg.Cache.Size,
		CacheTTL:      cfg.Cache.TTL,
		Gate:          requestLimiter,
		Logger:        logger.With().Str("component", "phimapi").Logger(),
	})

	details := app.NewDetailService(catalogue)
	history := app.NewHistoryService(sqlite.NewHistoryRepository(db.SQL))
	resolver := app.NewStreamResolver(phimapi.NewHTTPClient(cfg.API.Timeout, cfg.API.RetryMax, cfg.API.RetryBackoff))
	screens := app.NewScreenService(logger.With().Str("component", "screens").Logger(), catalogue, settingsSvc, bus)
	search := app.NewSearchService(logger.With().Str("component", "search").Logger(), catalogue, settingsSvc, bus)
	watch := app.NewWatchService(logger.With().Str("component", "watch").Logger(), details, history, settingsSvc, resolver, bus)
	defer screens.CloseAll()
	defer search.CloseAll()

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Janitor: démonte les écrans et sessions de recherche abandonnés par les clients.
	janitor := app.NewJanitor(logger.With().Str("component", "janitor").Logger(), map[string]app.IdleCloser{
		"screens": screens,
		"search":  search,
	})
	janitor.TickInterval = cfg.Screens.SweepInterval
	janitor.IdleTTL = cfg.Screens.IdleTTL
	go janitor.Run(shutdownCtx)

	srv := httpapi.NewServer(logger, httpapi.Services{
		Settings: settingsSvc,
		Screens:  screens,
		Search:   search,
		Details:  details,
		Watch:    watch,
		History:  history,
		Bus:      bus,
		Limiter:  requestLimiter,
	})
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.Addr).Msg("listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server crashed")
			stop()
		}
	}()

	<-shutdownCtx.Done()
	logger.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(ctx)
	logger.Info().Msg("bye")
}
