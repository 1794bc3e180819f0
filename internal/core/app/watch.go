package app

import "changeimpact/internal/core/watcher"

// StartWatcher feeds debounced file changes under the project root into the
// pipeline.
func (a *App) StartWatcher() error {
	w, err := watcher.NewWatcher(a.Config.Watch.Debounce, a.Filter, a.Pipeline.HandleChanges)
	if err != nil {
		return err
	}
	if err := w.Watch([]string{a.Root}); err != nil {
		_ = w.Close()
		return err
	}
	a.activeWatcher = w
	return nil
}
