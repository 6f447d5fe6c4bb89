package uploads

import (
	"log/slog"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
)

// settleDelay is how long a spooled file must sit untouched before the
// watcher reports it. Files younger than this are probably still mid-pipeline.
const settleDelay = 5 * time.Minute

// Watcher observes the uploads spool and logs files left behind by failed
// media pushes so operators can inspect them. It never deletes anything;
// cleanup is a human decision.
type Watcher struct {
	watcher *fsnotify.Watcher
	spool   *Spool
	logger  *slog.Logger
	done    chan struct{}
}

// NewWatcher starts watching the spool directory.
func NewWatcher(spool *Spool, logger *slog.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(spool.Dir()); err != nil {
		fw.Close()
		return nil, err
	}

	w := &Watcher{
		watcher: fw,
		spool:   spool,
		logger:  logger,
		done:    make(chan struct{}),
	}
	go w.run()
	return w, nil
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}

// run drains watcher events. Creations arm a timer; if the file still
// exists when it fires, the pipeline abandoned it.
func (w *Watcher) run() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op.Has(fsnotify.Create) {
				w.armReport(event.Name)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			if w.logger != nil {
				w.logger.Warn("Uploads watcher error", "error", err)
			}
		}
	}
}

// armReport schedules a leftover check for a newly spooled file.
func (w *Watcher) armReport(path string) {
	timer := time.NewTimer(settleDelay)
	go func() {
		defer timer.Stop()
		select {
		case <-w.done:
		case <-timer.C:
			info, err := os.Stat(path)
			if err != nil {
				return // Gone - the pipeline cleaned it up
			}
			if w.logger != nil {
				w.logger.Warn("Upload left behind in spool",
					"path", path,
					"size", info.Size(),
				)
			}
		}
	}()
}
