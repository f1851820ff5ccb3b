// Package watcher runs a handler for every archive dropped into an inbox directory.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// Handler processes one archive.
type Handler func(ctx context.Context, path string) error

// settleDelay gives the writer time to finish copying before the archive is opened.
const settleDelay = 500 * time.Millisecond

type Watcher struct {
	inbox   string
	handler Handler
	log     logrus.FieldLogger
	fs      *fsnotify.Watcher
	sem     chan struct{}
	settle  time.Duration
	wg      sync.WaitGroup
}

func New(inbox string, handler Handler, log logrus.FieldLogger, maxConcurrent int) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fs.Add(inbox); err != nil {
		fs.Close()
		return nil, fmt.Errorf("add watch path: %w", err)
	}
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &Watcher{
		inbox:   inbox,
		handler: handler,
		log:     log,
		fs:      fs,
		sem:     make(chan struct{}, maxConcurrent),
		settle:  settleDelay,
	}, nil
}

// Start blocks until ctx is cancelled, then waits for in-flight handlers.
func (w *Watcher) Start(ctx context.Context) error {
	w.log.WithFields(logrus.Fields{"inbox": w.inbox, "max_concurrent": cap(w.sem)}).Info("watching for archives")
	for {
		select {
		case <-ctx.Done():
			w.wg.Wait()
			return ctx.Err()

		case event, ok := <-w.fs.Events:
			if !ok {
				w.wg.Wait()
				return errors.New("watcher events channel closed")
			}
			if !event.Has(fsnotify.Create) {
				continue
			}
			if !IsArchive(event.Name) {
				w.log.WithField("file", event.Name).Debug("ignoring non-archive")
				continue
			}
			if err := w.dispatch(ctx, event.Name); err != nil {
				w.wg.Wait()
				return err
			}

		case err, ok := <-w.fs.Errors:
			if !ok {
				w.wg.Wait()
				return errors.New("watcher errors channel closed")
			}
			w.log.WithError(err).Error("watcher error")
		}
	}
}

func (w *Watcher) dispatch(ctx context.Context, path string) error {
	w.log.WithField("file", path).Info("new archive detected")
	select {
	case <-time.After(w.settle):
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case w.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer func() { <-w.sem }()
		if err := w.handler(ctx, path); err != nil {
			w.log.WithField("file", path).WithError(err).Error("archive processing failed")
		}
	}()
	return nil
}

func (w *Watcher) Stop() error { return w.fs.Close() }

func IsArchive(path string) bool {
	base := filepath.Base(path)
	return strings.EqualFold(filepath.Ext(base), ".zip") && !strings.HasPrefix(base, ".")
}

// OutDirFor returns the per-archive output directory under root.
func OutDirFor(root, archive string) string {
	base := filepath.Base(archive)
	return filepath.Join(root, strings.TrimSuffix(base, filepath.Ext(base)))
}
