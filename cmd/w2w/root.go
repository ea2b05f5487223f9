package main

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/w2w-movies/w2w/internal/adapters/phimapi"
	"github.com/w2w-movies/w2w/internal/adapters/sqlite"
	"github.com/w2w-movies/w2w/internal/app"
	"github.com/w2w-movies/w2w/internal/config"
)

// cli porte la configuration et les dépendances partagées par les sous-commandes.
type cli struct {
	cfgFile string
	apiURL  string
	dbPath  string
	verbose bool
	noColor bool

	cfg       config.Config
	logger    zerolog.Logger
	catalogue *phimapi.Client
	db        *sqlite.DB
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:   "w2w",
		Short: "Parcourir le catalogue PhimAPI depuis le terminal",
		Long: `w2w liste, recherche et lance les films et séries de PhimAPI.

Exemples:
  w2w home
  w2w list movies --pages 3 --sort year:desc
  w2w search "người phán xử"
  w2w watch ngoi-nha --server 0 --episode 2`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return c.close()
		},
	}

	root.PersistentFlags().StringVar(&c.cfgFile, "config", "", "fichier de configuration (défaut: ./w2w.yaml)")
	root.PersistentFlags().StringVar(&c.apiURL, "api-url", "", "URL de PhimAPI (surcharge api.base_url)")
	root.PersistentFlags().StringVar(&c.dbPath, "db", "", "chemin SQLite de l'historique (surcharge db_path)")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "logs détaillés")
	root.PersistentFlags().BoolVar(&c.noColor, "no-color", false, "désactiver les couleurs")

	root.AddCommand(
		c.homeCmd(),
		c.listCmd(),
		c.searchCmd(),
		c.detailCmd(),
		c.watchCmd(),
		c.historyCmd(),
		c.categoriesCmd(),
		c.countriesCmd(),
		c.versionCmd(),
	)
	return root
}

func (c *cli) setup(cmd *cobra.Command) error {
	if c.noColor {
		disableColors()
	}
	cfg, err := config.Load(c.cfgFile)
	if err != nil {
		return err
	}
	if c.apiURL != "" {
		cfg.API.BaseURL = c.apiURL
	}
	if c.dbPath != "" {
		cfg.DBPath = c.dbPath
	}
	c.cfg = cfg

	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.WarnLevel
	}
	if c.verbose {
		level = zerolog.DebugLevel
	}
	c.logger = zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr(), TimeFormat: time.Kitchen}).
		Level(level).With().Timestamp().Logger()

	c.catalogue = phimapi.New(phimapi.Options{
		BaseURL:       cfg.API.BaseURL,
		ImageBaseURL:  cfg.API.ImageBaseURL,
		Timeout:       cfg.API.Timeout,
		RetryMax:      cfg.API.RetryMax,
		RetryBackoff:  cfg.API.RetryBackoff,
		RatePerSecond: cfg.API.RatePerSecond,
		Burst:         cfg.API.Burst,
		CacheSize:     cfg.Cache.Size,
		CacheTTL:      cfg.Cache.TTL,
		Logger:        c.logger.With().Str("component", "phimapi").Logger(),
	})
	return nil
}

// store ouvre la base SQLite au premier besoin (réglages, historique).
func (c *cli) store(ctx context.Context) (*sqlite.DB, error) {
	if c.db != nil {
		return c.db, nil
	}
	db, err := sqlite.Open(ctx, c.cfg.DBPath)
	if err != nil {
		return nil, err
	}
	c.db = db
	return db, nil
}

func (c *cli) settings(ctx context.Context) (*app.SettingsService, error) {
	db, err := c.store(ctx)
	if err != nil {
		return nil, err
	}
	return app.NewSettingsService(sqlite.NewSettingsRepository(db.SQL)), nil
}

func (c *cli) history(ctx context.Context) (*app.HistoryService, error) {
	db, err := c.store(ctx)
	if err != nil {
		return nil, err
	}
	return app.NewHistoryService(sqlite.NewHistoryRepository(db.SQL)), nil
}

func (c *cli) close() error {
	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	return err
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
