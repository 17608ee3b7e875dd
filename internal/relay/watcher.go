package relay

import (
	"context"
	"encoding/json"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// debounceWindow coalesces the burst of fsnotify events an editor save
// produces into a single reload broadcast.
const debounceWindow = 200 * time.Millisecond

// DeckWatcher broadcasts a reload event whenever a file in the deck
// directory changes.
type DeckWatcher struct {
	dir     string
	hub     *Hub
	logger  *log.Logger
	watcher *fsnotify.Watcher
}

func NewDeckWatcher(dir string, hub *Hub, logger *log.Logger) (*DeckWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, err
	}
	logger.Info("watching deck dir", "dir", dir)
	return &DeckWatcher{dir: dir, hub: hub, logger: logger, watcher: watcher}, nil
}

// Run blocks until ctx is cancelled, broadcasting debounced reload events.
func (w *DeckWatcher) Run(ctx context.Context) {
	defer w.watcher.Close()

	var timer *time.Timer
	var pending string
	var fire <-chan time.Time

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			w.logger.Debug("deck changed", "file", event.Name, "event", event.Op)
			pending = filepath.Base(event.Name)
			if timer == nil {
				timer = time.NewTimer(debounceWindow)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(debounceWindow)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			w.broadcastReload(pending)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Debug("deck watch error", "dir", w.dir, "error", err)
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

func (w *DeckWatcher) broadcastReload(file string) {
	msg, err := json.Marshal(Event{Type: "reload", Payload: file})
	if err != nil {
		return
	}
	w.logger.Info("deck reload", "file", file, "clients", w.hub.ClientCount())
	w.hub.Broadcast(msg)
}
