package config

import (
	"bufio"
	"context"
	"os"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"

	"github.com/trustbrokerd/trustbroker/internal/agent"
	"github.com/trustbrokerd/trustbroker/internal/logger"
	"github.com/trustbrokerd/trustbroker/internal/request"
)

// WhitelistWatcher serves a whitelist predicate backed by a file of
// application ids, one per line, reloading it whenever the file changes.
// The zero value is not usable; construct with NewWhitelistWatcher.
type WhitelistWatcher struct {
	path    string
	current atomic.Value // agent.Predicate
	watcher *fsnotify.Watcher
}

// NewWhitelistWatcher loads path once synchronously and arms a watcher for
// subsequent changes. Call Run in a goroutine to start picking up edits.
func NewWhitelistWatcher(path string) (*WhitelistWatcher, error) {
	w := &WhitelistWatcher{path: path}

	ids, err := readIDList(path)
	if err != nil {
		return nil, err
	}
	w.current.Store(agent.IDSet(ids))

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(path); err != nil {
		fsw.Close()
		return nil, err
	}
	w.watcher = fsw

	return w, nil
}

// Predicate returns an agent.Predicate that, on every call, consults the
// most-recently-loaded id set, so later reloads take effect without
// fetching a new predicate.
func (w *WhitelistWatcher) Predicate() agent.Predicate {
	return func(params request.Parameters) bool {
		return w.current.Load().(agent.Predicate)(params)
	}
}

// Run watches the backing file for writes and renames (editors commonly
// replace a file rather than write in place) until ctx is cancelled,
// reloading the id set on every such event; events are not debounced.
func (w *WhitelistWatcher) Run(ctx context.Context) {
	defer w.watcher.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			// Editors that rename-over-write drop the watch on the old
			// inode; re-arm it before reloading.
			_ = w.watcher.Add(w.path)
			w.reload(ctx)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.WarnCtx(ctx, "whitelist watcher error", logger.Err(err))
		}
	}
}

func (w *WhitelistWatcher) reload(ctx context.Context) {
	ids, err := readIDList(w.path)
	if err != nil {
		logger.WarnCtx(ctx, "failed to reload whitelist, keeping prior id set", logger.Err(err))
		return
	}
	w.current.Store(agent.IDSet(ids))
	logger.InfoCtx(ctx, "whitelist reloaded", logger.Count(len(ids)))
}

func readIDList(path string) ([]request.ApplicationID, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var ids []request.ApplicationID
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ids = append(ids, request.ApplicationID(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}
