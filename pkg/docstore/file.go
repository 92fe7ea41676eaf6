package docstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-logr/logr"
)

// FileOpener opens JSON file stores inside one directory. Each file holds a
// single JSON object mapping keys to documents. Open stores are cached, so
// the whole process shares one handle per file, but every Open reloads the
// handle from disk so writes by other processes are picked up.
type FileOpener struct {
	dir string
	log logr.Logger

	mu     sync.Mutex
	stores map[string]*FileStore
}

// NewFileOpener creates an opener rooted at dir. The directory is created on
// first open.
func NewFileOpener(dir string, log logr.Logger) *FileOpener {
	return &FileOpener{
		dir:    dir,
		log:    log,
		stores: make(map[string]*FileStore),
	}
}

// Dir returns the directory holding the store files
func (o *FileOpener) Dir() string {
	return o.dir
}

// Open implements Opener. A missing file opens as an empty store; a file that
// is not a JSON object is an error. Values staged on a cached handle but never
// saved are dropped by the reload.
func (o *FileOpener) Open(name string) (Store, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if store, ok := o.stores[name]; ok {
		if err := store.load(); err != nil {
			return nil, err
		}
		return store, nil
	}

	if err := os.MkdirAll(o.dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	store := &FileStore{path: filepath.Join(o.dir, name)}
	if err := store.load(); err != nil {
		return nil, err
	}

	o.log.V(1).Info("Opened document store", "path", store.path, "keys", len(store.data))
	o.stores[name] = store
	return store, nil
}

// FileStore is a Store persisted as one JSON file
type FileStore struct {
	path string

	mu   sync.RWMutex
	data map[string]json.RawMessage
}

// Path returns the backing file path
func (s *FileStore) Path() string {
	return s.path
}

// load replaces the in-memory documents with the file's current contents
func (s *FileStore) load() error {
	fresh := make(map[string]json.RawMessage)

	data, err := os.ReadFile(s.path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return fmt.Errorf("failed to read store file: %w", err)
	case len(data) > 0:
		if err := json.Unmarshal(data, &fresh); err != nil {
			return fmt.Errorf("failed to parse store file %s: %w", s.path, err)
		}
		if fresh == nil {
			fresh = make(map[string]json.RawMessage)
		}
	}

	s.mu.Lock()
	s.data = fresh
	s.mu.Unlock()
	return nil
}

// Get implements Store
func (s *FileStore) Get(key string) (json.RawMessage, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	raw, ok := s.data[key]
	return cloneRaw(raw), ok
}

// Set implements Store
func (s *FileStore) Set(key string, value json.RawMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = cloneRaw(value)
}

// Save implements Store. The file is replaced atomically with
// WriteFileAtomic.
func (s *FileStore) Save() error {
	s.mu.RLock()
	data, err := json.MarshalIndent(s.data, "", "  ")
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal store: %w", err)
	}

	return WriteFileAtomic(s.path, data, 0600)
}

// WriteFileAtomic replaces path with data. The bytes go to a uniquely named
// temporary file in the same directory, which is synced and then renamed
// over path, so readers see either the old or the new contents.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tempFile := f.Name()

	if err := writeAndSync(f, data, perm); err != nil {
		_ = os.Remove(tempFile)
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := os.Rename(tempFile, path); err != nil {
		_ = os.Remove(tempFile)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	syncDir(dir)
	return nil
}

func writeAndSync(f *os.File, data []byte, perm os.FileMode) error {
	err := f.Chmod(perm)
	if err == nil {
		_, err = f.Write(data)
	}
	if err == nil {
		err = f.Sync()
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	return err
}

// syncDir flushes the directory entry of a rename. Not every platform can
// sync a directory, so failures are ignored.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}
