package tuning

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watch reloads path whenever it changes and hands every valid result to
// onChange. Invalid edits are logged and skipped. It blocks until ctx is
// done.
func Watch(ctx context.Context, path string, log *zap.Logger, onChange func(Tuning)) error {
	if log == nil {
		log = zap.NewNop()
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	// Editors replace files by rename, so watch the directory.
	target := filepath.Clean(path)
	if err := w.Add(filepath.Dir(target)); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			t, err := Load(target)
			if err != nil {
				log.Warn("tuning reload rejected", zap.String("path", target), zap.Error(err))
				continue
			}
			log.Info("tuning reloaded", zap.String("path", target))
			onChange(t)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn("tuning watcher", zap.Error(err))
		}
	}
}
