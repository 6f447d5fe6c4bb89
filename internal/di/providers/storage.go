package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/openarklib/openark-server/internal/config"
	"github.com/openarklib/openark-server/internal/logger"
	"github.com/openarklib/openark-server/internal/search"
	"github.com/openarklib/openark-server/internal/sse"
	"github.com/openarklib/openark-server/internal/store"
	"github.com/openarklib/openark-server/internal/store/sqlite"
	"github.com/openarklib/openark-server/internal/tasks"
	"github.com/openarklib/openark-server/internal/uploads"
)

// SSEManagerHandle wraps the SSE manager with its context for lifecycle management.
type SSEManagerHandle struct {
	*sse.Manager
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *SSEManagerHandle) Shutdown() error {
	h.cancel()
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Manager.Shutdown(ctx)
}

// ProvideSSEManager provides the server-sent events manager.
func ProvideSSEManager(i do.Injector) (*SSEManagerHandle, error) {
	log := do.MustInvoke[*logger.Logger](i)

	manager := sse.NewManager(log.Logger)

	// Start in background
	ctx, cancel := context.WithCancel(context.Background())
	go manager.Start(ctx)

	log.Info("SSE manager started")

	return &SSEManagerHandle{
		Manager: manager,
		cancel:  cancel,
	}, nil
}

// StoreHandle wraps the library store with shutdown capability.
type StoreHandle struct {
	*store.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore provides the library store.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)

	dbPath := cfg.LibraryPath()
	db, err := store.New(dbPath, log.Logger, sseHandle.Manager)
	if err != nil {
		return nil, err
	}

	log.Info("Library store initialized", "path", dbPath)

	return &StoreHandle{Store: db}, nil
}

// ActivityDBHandle wraps the activity/report database with shutdown capability.
type ActivityDBHandle struct {
	*sqlite.Store
}

// Shutdown implements do.Shutdownable.
func (h *ActivityDBHandle) Shutdown() error {
	return h.Close()
}

// ProvideActivityDB provides the activity and report database.
func ProvideActivityDB(i do.Injector) (*ActivityDBHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	db, err := sqlite.Open(cfg.ActivityDBPath(), log.Logger)
	if err != nil {
		return nil, err
	}

	log.Info("Activity database initialized", "path", cfg.ActivityDBPath())

	return &ActivityDBHandle{Store: db}, nil
}

// SearchIndexHandle wraps the search index with shutdown capability.
type SearchIndexHandle struct {
	*search.Index
}

// Shutdown implements do.Shutdownable.
func (h *SearchIndexHandle) Shutdown() error {
	return h.Close()
}

// ProvideSearchIndex provides the full-text search index and wires it into
// the store so book writes are indexed as they happen.
func ProvideSearchIndex(i do.Injector) (*SearchIndexHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)

	idx, err := search.NewIndex(search.Options{
		Path:   cfg.SearchIndexPath(),
		Logger: log.Logger,
	})
	if err != nil {
		return nil, err
	}

	storeHandle.SetSearchIndexer(idx)

	log.Info("Search index initialized", "path", cfg.SearchIndexPath())

	return &SearchIndexHandle{Index: idx}, nil
}

// ProvideSpool provides the upload spool directory.
func ProvideSpool(i do.Injector) (*uploads.Spool, error) {
	cfg := do.MustInvoke[*config.Config](i)

	return uploads.NewSpool(cfg.UploadsPath())
}

// WatcherHandle wraps the spool watcher with shutdown capability.
type WatcherHandle struct {
	*uploads.Watcher
}

// Shutdown implements do.Shutdownable.
func (h *WatcherHandle) Shutdown() error {
	return h.Close()
}

// ProvideWatcher provides the spool watcher that reports leaked upload files.
func ProvideWatcher(i do.Injector) (*WatcherHandle, error) {
	log := do.MustInvoke[*logger.Logger](i)
	spool := do.MustInvoke[*uploads.Spool](i)

	w, err := uploads.NewWatcher(spool, log.Logger)
	if err != nil {
		return nil, err
	}

	return &WatcherHandle{Watcher: w}, nil
}

// DispatcherHandle wraps the background task dispatcher with shutdown capability.
type DispatcherHandle struct {
	*tasks.Dispatcher
}

// Shutdown implements do.Shutdownable.
func (h *DispatcherHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	h.Dispatcher.Shutdown(ctx)
	return nil
}

// ProvideDispatcher provides the background task dispatcher used for
// activity writes and report recomputation.
func ProvideDispatcher(i do.Injector) (*DispatcherHandle, error) {
	log := do.MustInvoke[*logger.Logger](i)

	d := tasks.NewDispatcher(2, 256, log.Logger)

	return &DispatcherHandle{Dispatcher: d}, nil
}
