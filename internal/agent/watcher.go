package agent

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Rogue-Bear-Innovations/bookmarksync/internal/models"
)

// Syncer pushes the bookmarks bar of one profile file. It remembers the last
// snapshot the server accepted so later runs can send only what changed. It
// is not safe for concurrent use.
type Syncer struct {
	client *Client
	path   string
	logger *zap.SugaredLogger

	last *Snapshot
}

func NewSyncer(client *Client, path string, logger *zap.SugaredLogger) *Syncer {
	return &Syncer{
		client: client,
		path:   path,
		logger: logger,
	}
}

func (s *Syncer) read() (*Snapshot, error) {
	f, err := ReadChromeBookmarks(s.path)
	if err != nil {
		return nil, err
	}
	return TakeSnapshot(f.Roots.BookmarkBar), nil
}

// SyncFile replaces the server's copy with the whole bookmarks bar.
func (s *Syncer) SyncFile(ctx context.Context) (*models.SyncResponse, error) {
	snap, err := s.read()
	if err != nil {
		return nil, err
	}
	return s.syncAll(ctx, snap)
}

func (s *Syncer) syncAll(ctx context.Context, snap *Snapshot) (*models.SyncResponse, error) {
	s.logger.Infow("full sync", "folders", len(snap.Folders), "bookmarks", len(snap.Bookmarks))
	resp, err := s.client.SyncAll(ctx, snap.Folders, snap.Bookmarks)
	if err != nil {
		s.last = nil
		return nil, err
	}
	s.last = snap
	return resp, nil
}

// SyncChanges sends one event per node that changed since the last
// successful sync and returns how many were sent. Without a previous
// snapshot, or when an event is refused, it falls back to a full sync.
func (s *Syncer) SyncChanges(ctx context.Context) (int, error) {
	snap, err := s.read()
	if err != nil {
		return 0, err
	}
	if s.last == nil {
		_, err := s.syncAll(ctx, snap)
		return 0, err
	}

	events := Diff(s.last, snap)
	for i, ev := range events {
		if _, err := s.client.Push(ctx, ev.Action, ev.Node); err != nil {
			if errors.Is(err, ErrNoAPIKey) || ctx.Err() != nil {
				s.last = nil
				return i, err
			}
			s.logger.Warnw("incremental sync failed, falling back to full sync",
				"action", ev.Action, "chrome_id", ev.Node.ChromeID, "error", err)
			_, err := s.syncAll(ctx, snap)
			return i, err
		}
	}
	s.logger.Infow("incremental sync", "events", len(events))
	s.last = snap
	return len(events), nil
}

// Watch syncs whenever the profile file changes, until ctx is done. Bursts
// of events within debounce collapse into one sync. With full set every
// sync is a full sync, otherwise only changes are sent. The directory is
// watched because Chrome replaces the file by renaming.
func (s *Syncer) Watch(ctx context.Context, debounce time.Duration, full bool) error {
	return watchFile(ctx, s.path, debounce, s.logger, func(ctx context.Context) {
		var err error
		if full {
			_, err = s.SyncFile(ctx)
		} else {
			_, err = s.SyncChanges(ctx)
		}
		if err != nil {
			s.logger.Errorw("sync after change", "error", err)
		}
	})
}

// debouncer fires once wait has passed since the last Touch.
type debouncer struct {
	wait  time.Duration
	timer *time.Timer
}

func newDebouncer(wait time.Duration) *debouncer {
	timer := time.NewTimer(wait)
	if !timer.Stop() {
		<-timer.C
	}
	return &debouncer{wait: wait, timer: timer}
}

// Touch restarts the quiet period. A tick that fired but was not received
// yet is dropped, so it cannot cut the new period short.
func (d *debouncer) Touch() {
	if !d.timer.Stop() {
		select {
		case <-d.timer.C:
		default:
		}
	}
	d.timer.Reset(d.wait)
}

func (d *debouncer) C() <-chan time.Time {
	return d.timer.C
}

func (d *debouncer) Stop() {
	d.timer.Stop()
}

func watchFile(ctx context.Context, path string, debounce time.Duration, logger *zap.SugaredLogger, onChange func(context.Context)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "create watcher")
	}
	defer w.Close()

	dir, name := filepath.Split(filepath.Clean(path))
	if dir == "" {
		dir = "."
	}
	if err := w.Add(dir); err != nil {
		return errors.Wrapf(err, "watch %s", dir)
	}

	quiet := newDebouncer(debounce)
	defer quiet.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			logger.Debugw("bookmarks file changed", "op", event.Op.String())
			quiet.Touch()

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warnw("watcher error", "error", err)

		case <-quiet.C():
			onChange(ctx)
		}
	}
}
