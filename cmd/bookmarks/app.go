package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/OCAP2/bookmarks/internal/bookmarks"
	"github.com/OCAP2/bookmarks/internal/catalog"
	"github.com/OCAP2/bookmarks/internal/config"
	"github.com/OCAP2/bookmarks/internal/database"
	"github.com/OCAP2/bookmarks/internal/dispatcher"
	"github.com/OCAP2/bookmarks/internal/ids"
	"github.com/OCAP2/bookmarks/internal/kml"
	"github.com/OCAP2/bookmarks/internal/loop"
	"github.com/OCAP2/bookmarks/internal/settings"
	"github.com/OCAP2/bookmarks/internal/storage"
	"github.com/OCAP2/bookmarks/internal/usermark"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"golang.org/x/text/language"
)

const settingsDBName = "settings.db"

// appConfig is everything newApp reads from the configuration.
type appConfig struct {
	Paths               config.PathsConfig
	Loader              config.LoaderConfig
	Catalog             config.CatalogConfig
	FileType            string
	Language            string
	UserID              string
	DefaultCategoryName string
}

func appConfigFromViper() appConfig {
	return appConfig{
		Paths:               config.GetPathsConfig(),
		Loader:              config.GetLoaderConfig(),
		Catalog:             config.GetCatalogConfig(),
		FileType:            viper.GetString("fileType"),
		Language:            viper.GetString("language"),
		UserID:              viper.GetString("userId"),
		DefaultCategoryName: viper.GetString("defaultCategoryName"),
	}
}

// resolvePaths fills the locations left empty from the data directory.
func resolvePaths(cfg config.PathsConfig) (storage.Paths, string) {
	p := storage.DefaultPaths(cfg.DataDir)
	if cfg.BookmarksDir != "" {
		p.BookmarksDir = cfg.BookmarksDir
	}
	if cfg.TrashDir != "" {
		p.TrashDir = cfg.TrashDir
	}
	if cfg.TempDir != "" {
		p.TempDir = cfg.TempDir
	}
	if cfg.MetadataFile != "" {
		p.MetadataFile = cfg.MetadataFile
	}
	dbPath := cfg.SettingsDB
	if dbPath == "" {
		dbPath = filepath.Join(cfg.DataDir, settingsDBName)
	}
	return p, dbPath
}

func parseFileType(s string) (kml.FileType, error) {
	switch strings.ToLower(s) {
	case "", "kml":
		return kml.FileTypeKML, nil
	case "gpx":
		return kml.FileTypeGPX, nil
	case "geojson", "json":
		return kml.FileTypeGeoJSON, nil
	}
	return 0, fmt.Errorf("unsupported file type %q", s)
}

// app is one wired bookmark core. All methods run on the goroutine that
// owns the loop.
type app struct {
	loop     *loop.Loop
	db       *database.Manager
	settings *settings.Store
	registry *catalog.Registry
	jobs     *dispatcher.Dispatcher
	manager  *bookmarks.Manager
	paths    storage.Paths
	log      *slog.Logger
}

func newApp(ctx context.Context, l *loop.Loop, cfg appConfig, log *slog.Logger, dbLog zerolog.Logger) (_ *app, err error) {
	paths, dbPath := resolvePaths(cfg.Paths)
	if err := paths.Ensure(); err != nil {
		return nil, err
	}
	fileType, err := parseFileType(cfg.FileType)
	if err != nil {
		return nil, err
	}
	lang, err := language.Parse(cfg.Language)
	if err != nil {
		log.Warn("Unknown language, falling back to English", "language", cfg.Language, "error", err)
		lang = language.English
	}

	a := &app{loop: l, paths: paths, log: log}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	a.db = database.NewManager(dbLog)
	if err := a.db.Open(dbPath); err != nil {
		return nil, err
	}
	if a.settings, err = settings.New(a.db.DB); err != nil {
		return nil, err
	}
	if a.registry, err = catalog.NewRegistry(a.db.DB); err != nil {
		return nil, err
	}

	deps := bookmarks.Dependencies{
		Loop:                l,
		Paths:               paths,
		Logger:              log,
		Settings:            a.settings,
		Registry:            a.registry,
		Language:            lang,
		FileType:            fileType,
		LoaderWorkers:       cfg.Loader.Workers,
		QueueSize:           cfg.Loader.QueueSize,
		DefaultCategoryName: cfg.DefaultCategoryName,
		UserID:              cfg.UserID,
	}
	if cfg.Catalog.Enabled {
		client := catalog.New(cfg.Catalog.ServerURL, cfg.Catalog.APIKey, cfg.Catalog.Timeout)
		if err := client.Healthcheck(ctx); err != nil {
			log.Warn("Catalog server is not reachable", "url", cfg.Catalog.ServerURL, "error", err)
		}
		deps.Catalog = client
	}

	if a.jobs, err = dispatcher.New(l, log); err != nil {
		return nil, err
	}
	deps.Dispatcher = a.jobs
	if deps.IDs, err = ids.New(a.settings, uint64(usermark.FirstCategoryID)); err != nil {
		return nil, err
	}
	if a.manager, err = bookmarks.New(deps); err != nil {
		return nil, err
	}
	return a, nil
}

// wait runs the loop until done reports true.
func (a *app) wait(ctx context.Context, done func() bool) error {
	return a.loop.RunUntil(ctx, done)
}

// loadAll reads the bookmarks directory and waits for it.
func (a *app) loadAll(ctx context.Context) error {
	loaded := false
	a.manager.SetAsyncLoadingCallbacks(bookmarks.LoadingCallbacks{
		Finished: func() { loaded = true },
	})
	a.manager.LoadBookmarks()
	if err := a.wait(ctx, func() bool { return loaded }); err != nil {
		return fmt.Errorf("loading bookmarks: %w", err)
	}
	return nil
}

// Close lets queued writes finish, persists id counters and closes the database.
func (a *app) Close() error {
	var errs []error
	if a.jobs != nil {
		a.jobs.Close()
		a.loop.Drain()
	}
	if a.manager != nil {
		errs = append(errs, a.manager.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	return errors.Join(errs...)
}
