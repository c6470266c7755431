// Package watch triggers a refresh whenever the posts directory changes.
package watch

import (
	"context"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

var watchLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	watchLogger = l
}

const DefaultDebounce = 250 * time.Millisecond

// RefreshFunc rebuilds whatever depends on the watched directory.
type RefreshFunc func(ctx context.Context) error

// Watch observes dir until ctx is cancelled. Bursts of events are collapsed: refresh
// runs once the directory has been quiet for debounce. A failed refresh is logged and
// the watch continues.
func Watch(ctx context.Context, dir string, debounce time.Duration, refresh RefreshFunc) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	watchLogger.Info().Str("dir", dir).Dur("debounce", debounce).Msg("Watching posts directory")

	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			watchLogger.Info().Str("dir", dir).Msg("Stopped watching posts directory")
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op == fsnotify.Chmod {
				continue
			}
			watchLogger.Debug().Str("file", ev.Name).Str("op", ev.Op.String()).Msg("Posts directory changed")
			timer.Reset(debounce)

		case <-timer.C:
			if err := refresh(ctx); err != nil {
				watchLogger.Error().Err(err).Str("dir", dir).Msg("Refresh after change failed")
			}

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			watchLogger.Error().Err(err).Msg("Watcher error")
		}
	}
}
