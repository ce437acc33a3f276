package storage

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

var errUnparseable = errors.New("unable to parse session file")

// FileStore persists values as a flat YAML map in a single file, written with mode 0600.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore returns a store backed by path. The file is created on first write.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, ErrStorage.Msg("file path cannot be empty")
	}
	return &FileStore{path: path}, nil
}

// Path returns the backing file.
func (f *FileStore) Path() string {
	return f.path
}

func (f *FileStore) Get(key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, err := f.load()
	if err != nil {
		return "", false, err
	}
	v, ok := data[key]
	return v, ok, nil
}

func (f *FileStore) Set(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, _, err := f.loadForWrite()
	if err != nil {
		return err
	}
	data[key] = value
	return f.save(data)
}

func (f *FileStore) Delete(keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, changed, err := f.loadForWrite()
	if err != nil {
		return err
	}
	for _, k := range keys {
		if _, ok := data[k]; ok {
			delete(data, k)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return f.save(data)
}

func (f *FileStore) Close() error {
	return nil
}

func (f *FileStore) load() (map[string]string, error) {
	raw, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, ErrStorage.Err(errors.Wrap(err, "unable to read session file"))
	}
	data := map[string]string{}
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, ErrStorage.Err(errors.Wrapf(errUnparseable, "%s: %v", f.path, err))
	}
	if data == nil {
		data = map[string]string{}
	}
	return data, nil
}

// loadForWrite is load for callers about to rewrite the file. An unparseable file is
// replaced by an empty map and reported as changed so the next save overwrites it.
func (f *FileStore) loadForWrite() (map[string]string, bool, error) {
	data, err := f.load()
	if errors.Is(err, errUnparseable) {
		log.Warn().Err(err).Str("path", f.path).Msg("overwriting unreadable session file")
		return map[string]string{}, true, nil
	}
	return data, false, err
}

func (f *FileStore) save(data map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return ErrStorage.Err(errors.Wrap(err, "unable to create session directory"))
	}
	out, err := yaml.Marshal(data)
	if err != nil {
		return ErrStorage.Err(errors.Wrap(err, "unable to encode session file"))
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, out, 0o600); err != nil {
		return ErrStorage.Err(errors.Wrap(err, "unable to write session file"))
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return ErrStorage.Err(errors.Wrap(err, "unable to replace session file"))
	}
	return nil
}
