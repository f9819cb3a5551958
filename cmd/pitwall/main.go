package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sydlexius/pitwall/internal/backup"
	"github.com/sydlexius/pitwall/internal/config"
	"github.com/sydlexius/pitwall/internal/database"
	"github.com/sydlexius/pitwall/internal/event"
	"github.com/sydlexius/pitwall/internal/ingest"
	"github.com/sydlexius/pitwall/internal/logging"
	"github.com/sydlexius/pitwall/internal/metrics"
	"github.com/sydlexius/pitwall/internal/resolver"
	"github.com/sydlexius/pitwall/internal/review"
	"github.com/sydlexius/pitwall/internal/source/archive"
	"github.com/sydlexius/pitwall/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{}
	err := newRootCmd(a).ExecuteContext(ctx)
	if cerr := a.close(); err == nil {
		err = cerr
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// app holds the services a command needs. They are built on first use so
// that commands like version run without a database.
type app struct {
	configPath string
	logLevel   string

	cfg     *config.Config
	logs    *logging.Manager
	logger  *slog.Logger
	db      *sql.DB
	store   *store.Store
	reviews *review.Service
	backup  *backup.Service
	metrics *metrics.Recorder
	bus     *event.Bus
	archive *archive.Archive
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "pitwall",
		Short:         "Motorsport results sync with entity resolution",
		Long:          `Pitwall pulls race weekends, teams, and drivers from live and archival sources and reconciles them into one canonical store.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	defaultConfig := os.Getenv("PW_CONFIG_PATH")
	if defaultConfig == "" {
		defaultConfig = "pitwall.yaml"
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", defaultConfig, "path to the YAML config file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override the configured log level")

	root.AddCommand(
		newSyncCmd(a),
		newReviewCmd(a),
		newEntitiesCmd(a),
		newBackupCmd(a),
		newVersionCmd(),
	)
	return root
}

// open loads configuration, sets up logging, and opens the migrated store.
func (a *app) open() error {
	if a.db != nil {
		return nil
	}
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if a.logLevel != "" {
		if !logging.ValidLevel(a.logLevel) {
			return fmt.Errorf("invalid --log-level %q", a.logLevel)
		}
		cfg.Logging.Level = a.logLevel
	}
	a.cfg = cfg

	a.logs, a.logger = logging.NewManager(cfg.Logging)
	slog.SetDefault(a.logger)

	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	if err := database.Migrate(db); err != nil {
		_ = db.Close()
		return fmt.Errorf("running migrations: %w", err)
	}
	a.db = db
	a.logger.Debug("database ready", slog.String("path", cfg.Database.Path))

	a.store = store.New(db)
	a.reviews = review.NewService(db)
	a.backup = backup.NewService(db, backup.Options{
		Dir:        cfg.Backup.Dir,
		Retention:  cfg.Backup.Retention,
		MaxAgeDays: cfg.Backup.MaxAgeDays,
	}, a.logger)
	a.metrics = metrics.New()
	return nil
}

// resolver builds a resolver over the store with the configured overrides
// and name policy.
func (a *app) resolver() (*resolver.Resolver, error) {
	if err := a.open(); err != nil {
		return nil, err
	}
	overrides, err := resolver.LoadOverrides(a.cfg.Resolver.OverridesPath)
	if err != nil {
		return nil, fmt.Errorf("loading overrides: %w", err)
	}
	policy, err := resolver.ParseNamePolicy(a.cfg.Resolver.NamePolicy)
	if err != nil {
		return nil, err
	}
	return resolver.New(a.store, resolver.Options{
		Policy:    policy,
		Overrides: overrides,
		Logger:    a.logger,
	}), nil
}

// pipeline builds the resolver and the ingest pipeline, and starts the event
// bus that logs what the pipeline does.
func (a *app) pipeline() (*ingest.Pipeline, error) {
	res, err := a.resolver()
	if err != nil {
		return nil, err
	}

	a.bus = event.NewBus(a.logger, 256)
	a.bus.Subscribe(event.Any, event.LogHandler(a.logger))
	go a.bus.Start()

	var bk *backup.Service
	if a.cfg.Backup.BeforeSync {
		bk = a.backup
	}
	return ingest.New(ingest.Config{
		Store:    a.store,
		Reviews:  a.reviews,
		Resolver: res,
		Backup:   bk,
		Events:   a.bus,
		Metrics:  a.metrics,
		Logger:   a.logger,
	}), nil
}

func (a *app) close() error {
	if a.bus != nil {
		a.bus.Shutdown()
	}
	// Only commands that ran the pipeline have metrics worth exporting.
	if a.bus != nil && a.cfg.Metrics.TextfilePath != "" {
		if err := a.metrics.WriteTextfile(a.cfg.Metrics.TextfilePath); err != nil {
			a.logger.Warn("writing metrics textfile", slog.String("error", err.Error()))
		}
	}
	a.bus = nil
	var err error
	if a.archive != nil {
		err = a.archive.Close()
		a.archive = nil
	}
	if a.db != nil {
		if cerr := a.db.Close(); err == nil {
			err = cerr
		}
		a.db = nil
	}
	if a.logs != nil {
		_ = a.logs.Close()
		a.logs = nil
	}
	return err
}
