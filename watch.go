package etc

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/afero"
)

// Watch resolves name and calls fn with the freshly parsed content of the file
// each time it is written or replaced, until ctx is done. It blocks the calling
// goroutine and returns nil on cancellation.
//
// The parent directory is watched rather than the file, so atomic replacements
// (such as the ones Save performs) are observed too. Watch requires the OS
// filesystem and returns ErrWatchUnsupported otherwise.
func (r *Resolver) Watch(ctx context.Context, t Type, name string, fn func(Doc)) error {
	if _, ok := r.fs.(*afero.OsFs); !ok {
		return ErrWatchUnsupported
	}
	p, err := r.FilePath(t, name)
	if err != nil {
		return err
	}
	p = filepath.Clean(p)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	dir := filepath.Dir(p)
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	r.log.Debug().Str("path", p).Msg("watching config file")

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != p || !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			fn(r.parseOrEmpty(t, p))
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			r.warn("watch %s: %v", p, err)
		}
	}
}
