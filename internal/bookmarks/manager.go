// Package bookmarks is the bookmark manager: it owns every mark, track and
// group, batches edits into sessions and drives loading, saving, sorting,
// sharing and catalog exchange on background lanes.
//
// A Manager is not safe for concurrent use. All methods must be called from
// the goroutine running its loop; background results are posted back there.
package bookmarks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/OCAP2/bookmarks/internal/catalog"
	"github.com/OCAP2/bookmarks/internal/changes"
	"github.com/OCAP2/bookmarks/internal/dispatcher"
	"github.com/OCAP2/bookmarks/internal/ids"
	"github.com/OCAP2/bookmarks/internal/kml"
	"github.com/OCAP2/bookmarks/internal/loop"
	"github.com/OCAP2/bookmarks/internal/queue"
	"github.com/OCAP2/bookmarks/internal/sorting"
	"github.com/OCAP2/bookmarks/internal/spatial"
	"github.com/OCAP2/bookmarks/internal/storage"
	"github.com/OCAP2/bookmarks/internal/usermark"
	"github.com/OCAP2/bookmarks/pkg/core"
	"golang.org/x/text/language"
)

const (
	defaultCategoryName = "My Places"
	defaultDeeplinkBase = "bookmarks://catalog/"
	defaultQueueSize    = 16
	defaultLoadWorkers  = 4
)

// Logger is the logging surface the manager needs. *slog.Logger satisfies it.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// RenderUpdate is what the map renderer receives after each flush.
type RenderUpdate struct {
	// FirstTime is set on the first update a renderer gets. GroupVisibility
	// then covers every group, not just the updated ones.
	FirstTime       bool
	GroupVisibility map[core.GroupID]bool
	RemovedGroups   []core.GroupID
	Diff            changes.Diff
}

// Renderer draws user marks.
type Renderer interface {
	UpdateUserMarks(u RenderUpdate)
}

// RegionAddressGetter resolves the region a point lies in. It is called from
// sort workers and must be safe for concurrent use.
type RegionAddressGetter interface {
	RegionAddress(p core.LatLon) string
}

// SearchIndexer is told which bookmark groups search may index.
type SearchIndexer interface {
	EnableIndexingOfBookmarkGroup(id core.GroupID, enable bool)
	ResetBookmarkGroupIndex(id core.GroupID)
}

// Classificator turns feature type ids into readable names such as
// "amenity-cafe".
type Classificator interface {
	FeatureTypeNames(types []uint32) []string
}

// SettingsStore keeps the last edited category and color between runs.
type SettingsStore interface {
	LastEditedCategoryFile() (string, error)
	SetLastEditedCategoryFile(file string) error
	LastEditedColor() (core.PredefinedColor, error)
	SetLastEditedColor(c core.PredefinedColor) error
}

// CatalogClient talks to the bookmark catalog server.
type CatalogClient interface {
	Upload(ctx context.Context, filePath string, meta catalog.UploadMetadata) (string, error)
	Download(ctx context.Context, serverID, destPath string) error
}

// CatalogRegistry remembers which local files are linked to the catalog.
type CatalogRegistry interface {
	Put(e *catalog.Entry) error
	FindByFile(fileName string) (*catalog.Entry, bool, error)
	Rename(oldFile, newFile string) error
	Delete(serverID string) error
}

// Dependencies holds everything a Manager is built from. Loop and IDs are
// required; the rest is optional.
type Dependencies struct {
	Loop       *loop.Loop
	Dispatcher *dispatcher.Dispatcher
	IDs        *ids.Allocator
	Paths      storage.Paths
	Logger     Logger

	Settings      SettingsStore
	Catalog       CatalogClient
	Registry      CatalogRegistry
	Renderer      Renderer
	Addresses     RegionAddressGetter
	Indexer       SearchIndexer
	Classificator Classificator

	Names    sorting.Names
	Language language.Tag
	Clock    func() time.Time

	FileType            kml.FileType
	LoaderWorkers       int
	QueueSize           int
	DefaultCategoryName string
	UserID              string
	DeeplinkBase        string
}

// Callbacks report bookmark level changes. They fire after a flush while
// notifications are enabled.
type Callbacks struct {
	Created  func(ids []core.MarkID)
	Updated  func(ids []core.MarkID)
	Deleted  func(ids []core.MarkID)
	Attached func(byGroup map[core.GroupID][]core.MarkID)
	Detached func(byGroup map[core.GroupID][]core.MarkID)
}

// Manager owns the bookmark state.
type Manager struct {
	deps Dependencies
	log  Logger
	loop *loop.Loop
	jobs *dispatcher.Dispatcher
	ids  *ids.Allocator
	now  func() time.Time

	ownsDispatcher bool

	*stores
	categoryOrder []core.GroupID
	index         *spatial.Index

	tracker       *changes.Tracker
	renderPending *changes.Tracker
	notifyPending *changes.Tracker
	sessions      int
	skipSave      usermark.GroupIDSet

	trackSelection map[core.TrackID]core.MarkID
	trackInfo      map[core.TrackID]core.MarkID

	recentlyDeleted    *deletedBookmark
	lastEditedCategory core.GroupID
	lastEditedColor    core.PredefinedColor
	metadata           *storage.Metadata

	loading          bool
	loadQueue        *queue.Queue[loadRequest]
	loadingCallbacks LoadingCallbacks

	callbacks            Callbacks
	bookmarksChanged     func()
	categoriesChanged    func()
	notificationsEnabled bool

	renderer Renderer
	rendered bool

	addresses       RegionAddressGetter
	catalogHandlers CatalogHandlers
}

// New builds a manager and registers any dispatcher lane it needs that the
// caller did not register.
func New(deps Dependencies) (*Manager, error) {
	if deps.Loop == nil {
		return nil, errors.New("bookmarks: loop is required")
	}
	if deps.IDs == nil {
		return nil, errors.New("bookmarks: id allocator is required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.Names.Bookmarks == "" {
		deps.Names = sorting.DefaultNames()
	}
	if deps.DefaultCategoryName == "" {
		deps.DefaultCategoryName = defaultCategoryName
	}
	if deps.DeeplinkBase == "" {
		deps.DeeplinkBase = defaultDeeplinkBase
	}
	if deps.LoaderWorkers <= 0 {
		deps.LoaderWorkers = defaultLoadWorkers
	}
	if deps.QueueSize <= 0 {
		deps.QueueSize = defaultQueueSize
	}
	if !deps.FileType.IsLoadable() {
		return nil, fmt.Errorf("bookmarks: cannot keep categories as %s", deps.FileType)
	}

	m := &Manager{
		deps:                 deps,
		log:                  deps.Logger,
		loop:                 deps.Loop,
		jobs:                 deps.Dispatcher,
		ids:                  deps.IDs,
		now:                  deps.Clock,
		stores:               newStores(),
		index:                spatial.New(),
		renderPending:        changes.New(nil),
		notifyPending:        changes.New(nil),
		skipSave:             make(usermark.GroupIDSet),
		trackSelection:       make(map[core.TrackID]core.MarkID),
		trackInfo:            make(map[core.TrackID]core.MarkID),
		metadata:             storage.NewMetadata(),
		loadQueue:            queue.New[loadRequest](),
		notificationsEnabled: true,
		renderer:             deps.Renderer,
		addresses:            deps.Addresses,
	}
	m.tracker = changes.New(source{m.stores})

	for t := usermark.TypeBookmark + 1; t < usermark.TypeCount; t++ {
		layer := usermark.NewLayer(t)
		layer.ResetChanges()
		m.groups[layer.ID()] = layer
	}

	if m.jobs == nil {
		d, err := dispatcher.New(m.loop, m.log)
		if err != nil {
			return nil, fmt.Errorf("creating dispatcher: %w", err)
		}
		m.jobs = d
		m.ownsDispatcher = true
	}
	m.registerLanes()
	m.restoreLastEditedColor()

	return m, nil
}

func (m *Manager) registerLanes() {
	size := m.deps.QueueSize
	lanes := []struct {
		kind dispatcher.Kind
		opts []dispatcher.Option
	}{
		{dispatcher.KindLoad, []dispatcher.Option{dispatcher.Buffered(size), dispatcher.Logged()}},
		// one worker keeps writes, trash moves and purges in submission order
		{dispatcher.KindSave, []dispatcher.Option{dispatcher.Buffered(size), dispatcher.Blocking(), dispatcher.Logged()}},
		{dispatcher.KindExport, []dispatcher.Option{dispatcher.Buffered(size), dispatcher.Logged()}},
		{dispatcher.KindSort, []dispatcher.Option{dispatcher.Buffered(size), dispatcher.Workers(2)}},
		{dispatcher.KindCatalog, []dispatcher.Option{dispatcher.Buffered(size), dispatcher.Workers(2), dispatcher.Logged()}},
	}
	for _, l := range lanes {
		if !m.jobs.HasKind(l.kind) {
			m.jobs.Register(l.kind, l.opts...)
		}
	}
}

// Close persists id counters and stops a dispatcher the manager created.
func (m *Manager) Close() error {
	if m.ownsDispatcher {
		m.jobs.Close()
	}
	if err := m.ids.Flush(); err != nil {
		return fmt.Errorf("flushing id counters: %w", err)
	}
	return nil
}

// assertOnLoop panics when the loop goroutine is parked, since the caller
// is then some other goroutine.
func (m *Manager) assertOnLoop() {
	if m.loop.Waiting() {
		panic("bookmarks: manager used off the core loop")
	}
}

func (m *Manager) submit(j dispatcher.Job) {
	m.assertOnLoop()
	if err := m.jobs.Submit(j); err != nil {
		m.log.Warn("job not accepted", "kind", j.Kind, "name", j.Name, "error", err)
	}
}

// SetRenderer attaches the renderer. Changes made while no renderer was
// attached are delivered right away.
func (m *Manager) SetRenderer(r Renderer) {
	m.renderer = r
	if r != nil {
		m.deliverRender()
	}
}

// SetRegionAddressGetter installs the resolver used by distance sorting.
func (m *Manager) SetRegionAddressGetter(g RegionAddressGetter) {
	m.addresses = g
}

func (m *Manager) SetCallbacks(cb Callbacks) {
	m.callbacks = cb
}

func (m *Manager) SetBookmarksChangedCallback(fn func()) {
	m.bookmarksChanged = fn
}

func (m *Manager) SetCategoriesChangedCallback(fn func()) {
	m.categoriesChanged = fn
}

// SetNotificationsEnabled toggles the bookmark callbacks. While disabled the
// changes accumulate and are reported together once re-enabled.
func (m *Manager) SetNotificationsEnabled(enabled bool) {
	if m.notificationsEnabled == enabled {
		return
	}
	m.notificationsEnabled = enabled
	if enabled {
		m.deliverNotifications()
	}
}

func (m *Manager) AreNotificationsEnabled() bool {
	return m.notificationsEnabled
}
