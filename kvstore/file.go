package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// File keeps the whole store in one YAML document:
//
//	local:
//	  blockingEnabled: true
//	  blockedChannels:
//	    - name: Foo
//	      dateAdded: "2026-01-02T03:04:05Z"
//
// Hand edits are picked up through fsnotify.
type File struct {
	mu      sync.Mutex
	path    string
	opts    options
	changes *hub

	watchOnce sync.Once
	watcher   *fsnotify.Watcher
	done      chan struct{}
}

// OpenFile opens the YAML store at path. The file is created on first write.
func OpenFile(path string, opts ...Option) (*File, error) {
	f := &File{path: path, opts: buildOptions(opts), changes: newHub()}
	if _, err := f.load(); err != nil {
		return nil, err
	}
	return f, nil
}

type document map[string]map[string]any

func (f *File) load() (document, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return document{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("kvstore: read %s: %w", f.path, err)
	}
	doc := document{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("kvstore: parse %s: %w", f.path, err)
	}
	return doc, nil
}

func (f *File) save(doc document) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("kvstore: encode: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("kvstore: mkdir: %w", err)
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("kvstore: write: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("kvstore: rename: %w", err)
	}
	return nil
}

func (f *File) Get(_ context.Context, namespace string, keys ...string) (map[string]json.RawMessage, error) {
	f.mu.Lock()
	doc, err := f.load()
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}

	out := make(map[string]json.RawMessage, len(keys))
	for _, k := range keys {
		v, ok := doc[namespace][k]
		if !ok {
			continue
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("kvstore: get %s/%s: %w", namespace, k, err)
		}
		out[k] = raw
	}
	return out, nil
}

func (f *File) Set(_ context.Context, namespace string, values map[string]json.RawMessage) error {
	f.mu.Lock()
	doc, err := f.load()
	if err != nil {
		f.mu.Unlock()
		return err
	}
	if doc[namespace] == nil {
		doc[namespace] = make(map[string]any)
	}
	for k, v := range values {
		var decoded any
		if err := json.Unmarshal(v, &decoded); err != nil {
			f.mu.Unlock()
			return fmt.Errorf("kvstore: set %s/%s: %w", namespace, k, err)
		}
		doc[namespace][k] = decoded
	}
	err = f.save(doc)
	f.mu.Unlock()
	if err != nil {
		return err
	}

	f.changes.publish(Change{Namespace: namespace, Keys: keysOf(values)})
	return nil
}

func (f *File) Delete(_ context.Context, namespace string, keys ...string) error {
	f.mu.Lock()
	doc, err := f.load()
	if err != nil {
		f.mu.Unlock()
		return err
	}
	for _, k := range keys {
		delete(doc[namespace], k)
	}
	err = f.save(doc)
	f.mu.Unlock()
	if err != nil {
		return err
	}

	f.changes.publish(Change{Namespace: namespace, Keys: keys})
	return nil
}

// Watch subscribes to changes. The first call starts watching the file's
// directory, since editors often replace the file rather than write it.
func (f *File) Watch(ctx context.Context) (<-chan Change, error) {
	ch, err := f.changes.subscribe(ctx)
	if err != nil {
		return nil, err
	}
	var werr error
	f.watchOnce.Do(func() { werr = f.startWatcher() })
	if werr != nil {
		return nil, werr
	}
	return ch, nil
}

func (f *File) startWatcher() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("kvstore: fsnotify: %w", err)
	}
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		w.Close()
		return fmt.Errorf("kvstore: mkdir: %w", err)
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return fmt.Errorf("kvstore: watch %s: %w", dir, err)
	}
	f.watcher = w
	f.done = make(chan struct{})
	go f.watchLoop()
	return nil
}

func (f *File) watchLoop() {
	defer close(f.done)
	const quiet = 100 * time.Millisecond
	name := filepath.Clean(f.path)

	var timer *time.Timer
	var timerC <-chan time.Time
	for {
		select {
		case ev, ok := <-f.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != name {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) &&
				!ev.Has(fsnotify.Rename) && !ev.Has(fsnotify.Remove) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(quiet)
			timerC = timer.C

		case err, ok := <-f.watcher.Errors:
			if !ok {
				return
			}
			f.opts.logger.Warn("kvstore: fsnotify error", "path", f.path, "error", err)

		case <-timerC:
			timerC = nil
			f.publishAll()
		}
	}
}

func (f *File) publishAll() {
	f.mu.Lock()
	doc, err := f.load()
	f.mu.Unlock()
	if err != nil {
		f.opts.logger.Warn("kvstore: reload after change failed", "error", err)
		return
	}
	for ns := range doc {
		f.changes.publish(Change{Namespace: ns})
	}
}

func (f *File) Close() error {
	var err error
	if f.watcher != nil {
		err = f.watcher.Close()
		<-f.done
	}
	f.changes.close()
	return err
}
