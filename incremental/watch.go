// Copyright 2020-2023 Buf Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package incremental

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch is an optional push-based companion to DetectChanges: instead of
// polling, it fires the same change-classification logic whenever
// fsnotify reports an event under dir. It runs until ctx is canceled or the
// watcher itself fails irrecoverably.
//
// Nothing in the core pipeline requires this; it exists for callers who
// want to drive DetectChanges from filesystem events rather than a poll
// loop.
func (d *Driver) Watch(ctx context.Context, dir string, recursive bool, onChange func(ChangeSet)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addWatchTree(w, dir, recursive); err != nil {
		return err
	}

	logger := slog.Default().With("component", "incremental.watch", "dir", dir)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			cs, err := d.DetectChanges(dir, recursive)
			if err != nil {
				logger.Warn("detect changes failed after fs event", "error", err)
				continue
			}
			if len(cs.Added)+len(cs.Modified)+len(cs.Removed)+len(cs.Affected) > 0 {
				onChange(cs)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", "error", err)
		}
	}
}

func addWatchTree(w *fsnotify.Watcher, dir string, recursive bool) error {
	if err := w.Add(dir); err != nil {
		return err
	}
	if !recursive {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() {
			if err := addWatchTree(w, filepath.Join(dir, e.Name()), recursive); err != nil {
				return err
			}
		}
	}
	return nil
}
