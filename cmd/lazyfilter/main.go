package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/uuid"
	flag "github.com/spf13/pflag"

	"github.com/rebelice/lazyfilter/internal/app"
	"github.com/rebelice/lazyfilter/internal/chooser"
	"github.com/rebelice/lazyfilter/internal/config"
	"github.com/rebelice/lazyfilter/internal/gridfilter"
	"github.com/rebelice/lazyfilter/internal/logging"
	"github.com/rebelice/lazyfilter/internal/persist"
	"github.com/rebelice/lazyfilter/internal/source"
	"github.com/rebelice/lazyfilter/internal/tick"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("lazyfilter", flag.ContinueOnError)
	configFile := fs.String("config", "", "config file (default: search the user config dir, . and ./config)")
	driver := fs.String("driver", "", "source driver: sqlite or postgres")
	dsn := fs.String("dsn", "", "source data source name")
	table := fs.String("table", "", "table to filter")
	fields := fs.StringSlice("fields", nil, "filterable fields (default: every column)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.LoadFile(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not load config: %v (using defaults)\n", err)
		cfg = config.GetDefaults()
	}
	if fs.Changed("driver") {
		cfg.Source.Driver = *driver
	}
	if fs.Changed("dsn") {
		cfg.Source.DSN = *dsn
	}
	if fs.Changed("table") {
		cfg.Source.Table = *table
	}
	if fs.Changed("fields") {
		cfg.Source.Fields = *fields
	}
	if cfg.Source.DSN == "" || cfg.Source.Table == "" {
		return fmt.Errorf("a source dsn and table are required (--dsn, --table)")
	}

	logger, closeLog, err := openLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = closeLog.Close() }()
	logger = log.With(logger, "session", uuid.NewString())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src, err := openSource(ctx, cfg.Source)
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()

	provider, err := openPersist(cfg)
	if err != nil {
		level.Warn(logger).Log("msg", "persistence disabled", "err", err)
		provider = nil
	}
	if provider != nil {
		defer func() { _ = provider.Close() }()
	}

	loop := tick.NewLoop(logger)

	var persistOpts *chooser.PersistOptions
	if provider != nil {
		persistOpts = &chooser.PersistOptions{
			Provider:  provider,
			Value:     cfg.Chooser.PersistValue,
			Favorites: cfg.Chooser.PersistFavorites,
		}
	}

	ch, err := chooser.New(chooser.Options{
		Bind:                   src,
		FieldNames:             cfg.Source.Fields,
		SuggestFieldsWhenEmpty: cfg.Chooser.SuggestFieldsWhenEmpty,
		SortFieldSuggestions:   cfg.Chooser.SortFieldSuggestions,
		MaxTags:                cfg.Chooser.MaxTags,
		MaxResults:             cfg.Chooser.MaxResults,
		ValueCacheSize:         cfg.Source.ValueCacheSize,
		Persist:                persistOpts,
		Loop:                   loop,
		Context:                ctx,
		Logger:                 logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create filter chooser: %w", err)
	}
	defer ch.Close()

	grid, err := gridfilter.New(gridfilter.Options{
		Bind:     src,
		Registry: ch.Registry(),
		Loop:     loop,
		Context:  ctx,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create column filters: %w", err)
	}

	exportDir, err := config.GetConfigPath()
	if err != nil {
		exportDir = "."
	}

	a, err := app.New(app.Options{
		Config:    cfg,
		Source:    src,
		Chooser:   ch,
		Grid:      grid,
		Loop:      loop,
		Context:   ctx,
		Logger:    logger,
		ExportDir: exportDir,
	})
	if err != nil {
		return err
	}
	defer a.Close()

	opts := []tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}
	if cfg.UI.MouseEnabled {
		opts = append(opts, tea.WithMouseCellMotion())
	}

	level.Info(logger).Log("msg", "starting", "driver", cfg.Source.Driver, "table", cfg.Source.Table)
	if _, err := tea.NewProgram(a, opts...).Run(); err != nil {
		return fmt.Errorf("error running program: %w", err)
	}
	return nil
}

type closableSource interface {
	source.RowSource
	Close() error
}

func openSource(ctx context.Context, cfg config.SourceConfig) (closableSource, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "sqlite", "sqlite3":
		s, err := source.OpenSQLite(ctx, cfg.DSN, cfg.Table)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "postgres", "postgresql", "pgx":
		s, err := source.OpenPostgres(ctx, cfg.DSN, cfg.Table)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("unknown source driver %q", cfg.Driver)
}

func openLogger(cfg *config.Config) (log.Logger, io.Closer, error) {
	if cfg.Log.File == "" {
		return log.NewNopLogger(), io.NopCloser(nil), nil
	}
	path, err := config.ResolvePath(cfg.Log.File)
	if err != nil {
		return nil, nil, err
	}
	logger, closer, err := logging.OpenFile(path, cfg.Log.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return logger, closer, nil
}

func openPersist(cfg *config.Config) (persist.Provider, error) {
	dir, err := config.GetConfigPath()
	if err != nil {
		dir = ""
	}
	path, err := config.ResolvePath(cfg.Persist.Path)
	if err != nil {
		return nil, err
	}
	return persist.Open(persist.Config{
		Backend: persist.Backend(cfg.Persist.Backend),
		Path:    path,
		Dir:     dir,
		Key:     cfg.Persist.Key,
	})
}
