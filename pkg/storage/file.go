package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// FileStorage persists all keys in one JSON document (key -> string value).
// Writes go through a temp file and rename so a reader never sees a partial
// document.
type FileStorage struct {
	mu       sync.Mutex
	path     string
	logger   *slog.Logger
	last     []byte // document as last written or observed by this process
	onChange []func()
}

// NewFileStorage creates the parent directory if needed; the file itself is
// created on first write.
func NewFileStorage(path string, logger *slog.Logger) (*FileStorage, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o700); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &FileStorage{path: abs, logger: logger}
	if raw, err := os.ReadFile(abs); err == nil {
		s.last = raw
	}
	return s, nil
}

// Path returns the absolute path of the backing file.
func (s *FileStorage) Path() string {
	return s.path
}

func (s *FileStorage) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return nil, err
	}
	v, ok := doc[key]
	if !ok {
		return nil, ErrNotFound
	}
	return []byte(v), nil
}

func (s *FileStorage) Set(_ context.Context, key string, value []byte) error {
	if key == "" {
		return ErrEmptyKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return err
	}
	doc[key] = string(value)
	return s.write(doc)
}

func (s *FileStorage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return err
	}
	if _, ok := doc[key]; !ok {
		return nil
	}
	delete(doc, key)
	return s.write(doc)
}

func (s *FileStorage) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove storage file: %w", err)
	}
	s.last = nil
	return nil
}

// OnChange registers a callback invoked when another process modifies or
// removes the file. Changes made through this FileStorage do not fire it.
func (s *FileStorage) OnChange(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = append(s.onChange, fn)
}

// Watch starts watching the backing file until ctx is done. The directory is
// watched rather than the file so atomic replacements are seen.
func (s *FileStorage) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch directory: %w", err)
	}

	go s.watchLoop(ctx, watcher)
	s.logger.DebugContext(ctx, "watching storage file", slog.String("path", s.path))
	return nil
}

func (s *FileStorage) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer watcher.Close()
	name := filepath.Base(s.path)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if s.changedExternally() {
				s.logger.DebugContext(ctx, "storage file changed externally",
					slog.String("path", s.path),
					slog.String("op", event.Op.String()),
				)
				s.notify()
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.logger.ErrorContext(ctx, "storage watcher error", slog.String("error", err.Error()))

		case <-ctx.Done():
			return
		}
	}
}

func (s *FileStorage) changedExternally() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		raw = nil
	} else if err != nil {
		return false
	}
	if bytes.Equal(raw, s.last) {
		return false
	}
	s.last = raw
	return true
}

func (s *FileStorage) notify() {
	s.mu.Lock()
	callbacks := append([]func(){}, s.onChange...)
	s.mu.Unlock()

	for _, fn := range callbacks {
		fn()
	}
}

// read must be called with s.mu held.
func (s *FileStorage) read() (map[string]string, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read storage file: %w", err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return map[string]string{}, nil
	}

	doc := map[string]string{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, errors.Join(ErrCorruptFile, err)
	}
	return doc, nil
}

// write must be called with s.mu held.
func (s *FileStorage) write(doc map[string]string) error {
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode storage document: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), "."+filepath.Base(s.path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace storage file: %w", err)
	}
	s.last = raw
	return nil
}
