package scanner

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Event is a debounced change to an MP3 file in the watched directory.
type Event struct {
	Path string `json:"path"`
	Op   string `json:"op"`
}

// Watcher reports MP3 changes in a single directory (not recursive).
type Watcher struct {
	dir      string
	debounce time.Duration
	fs       *fsnotify.Watcher
	events   chan Event
}

// NewWatcher starts watching dir. Call Run to deliver events.
func NewWatcher(dir string, debounce time.Duration) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, &ScanError{Dir: dir, Original: err}
	}
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	return &Watcher{
		dir:      dir,
		debounce: debounce,
		fs:       fw,
		events:   make(chan Event, 64),
	}, nil
}

// Events returns the delivery channel. It is closed when Run returns.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Run forwards events until ctx is cancelled. Bursts on the same path within
// the debounce window collapse into one event carrying the last operation.
func (w *Watcher) Run(ctx context.Context) {
	defer close(w.events)
	defer w.fs.Close()

	pending := make(map[string]string)
	timer := time.NewTimer(w.debounce)
	timer.Stop()

	flush := func() {
		paths := make([]string, 0, len(pending))
		for p := range pending {
			paths = append(paths, p)
		}
		sort.Strings(paths)
		for _, p := range paths {
			select {
			case w.events <- Event{Path: p, Op: pending[p]}:
			case <-ctx.Done():
				return
			}
		}
		pending = make(map[string]string)
	}

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if !IsMP3(ev.Name) {
				continue
			}
			op := opName(ev.Op)
			if op == "" {
				continue
			}
			pending[ev.Name] = op
			timer.Reset(w.debounce)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			log.Printf("WARN: watcher_error dir=%s error=%v", w.dir, err)
		case <-timer.C:
			flush()
		}
	}
}

func opName(op fsnotify.Op) string {
	switch {
	case op.Has(fsnotify.Remove):
		return "remove"
	case op.Has(fsnotify.Rename):
		return "rename"
	case op.Has(fsnotify.Create):
		return "create"
	case op.Has(fsnotify.Write):
		return "write"
	}
	return ""
}
