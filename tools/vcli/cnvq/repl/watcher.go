// Copyright 2015 Google Inc. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package repl

import (
	"context"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the watcher waits for more changes before
// reloading.
const DefaultDebounce = 300 * time.Millisecond

// Watcher reloads the ontology when its Turtle sources change.
type Watcher struct {
	fsw      *fsnotify.Watcher
	logger   *slog.Logger
	reload   func() error
	debounce time.Duration
	reloads  chan error
}

// NewWatcher watches the directories holding the files. Reload is called
// once per burst of changes to .ttl files.
func NewWatcher(files []string, reload func() error, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	dirs := map[string]bool{}
	for _, f := range files {
		dirs[filepath.Dir(f)] = true
	}
	var ds []string
	for d := range dirs {
		ds = append(ds, d)
	}
	sort.Strings(ds)
	for _, d := range ds {
		if err := fsw.Add(d); err != nil {
			fsw.Close()
			return nil, err
		}
		logger.Debug("watching directory", slog.String("path", d))
	}
	return &Watcher{
		fsw:      fsw,
		logger:   logger,
		reload:   reload,
		debounce: DefaultDebounce,
		reloads:  make(chan error, 1),
	}, nil
}

// Reloads returns the outcome of every reload. Outcomes are dropped if
// nobody reads them.
func (w *Watcher) Reloads() <-chan error {
	return w.reloads
}

// Start processes file events until the context is done or the watcher is
// closed.
func (w *Watcher) Start(ctx context.Context) {
	go w.processEvents(ctx)
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

func (w *Watcher) processEvents(ctx context.Context) {
	var (
		timer   *time.Timer
		trigger <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !strings.HasSuffix(event.Name, ".ttl") {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			w.logger.Debug("ontology source changed", slog.String("path", event.Name), slog.String("op", event.Op.String()))
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			trigger = timer.C
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", slog.Any("error", err))
		case <-trigger:
			trigger = nil
			err := w.reload()
			if err != nil {
				w.logger.Error("ontology reload failed", slog.Any("error", err))
			} else {
				w.logger.Info("ontology reloaded")
			}
			select {
			case w.reloads <- err:
			default:
			}
		}
	}
}
