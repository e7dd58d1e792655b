package baseline

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/glasshouse-qa/vizguard-agent/pkg/utils"
)

const manifestFile = "index.json"

var (
	// ErrNotFound means no baseline exists for the key; the caller is expected
	// to create one. ErrUnavailable means the store medium itself failed and
	// must never be treated as absence.
	ErrNotFound    = errors.New("baseline not found")
	ErrUnavailable = errors.New("baseline store unavailable")

	// ErrExists guards against accidental overwrite; only Regenerate replaces
	ErrExists = errors.New("baseline already exists")
)

// Entry is one stored baseline image
type Entry struct {
	Key       string    `json:"key"`
	File      string    `json:"file"`
	CreatedAt time.Time `json:"createdAt"`
}

// Store keeps baseline PNGs in a directory with an index.json manifest.
// Entries are written once and replaced only through Regenerate.
type Store struct {
	dir string
	log *zap.Logger
}

func NewStore(dir string, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{dir: dir, log: log}
}

// Dir returns the store's root directory
func (s *Store) Dir() string { return s.dir }

// Has reports whether a baseline exists for key. A manifest that cannot be
// read for any reason other than not existing yet surfaces ErrUnavailable.
func (s *Store) Has(key string) (bool, error) {
	m, err := s.loadManifest()
	if err != nil {
		return false, err
	}
	_, ok := m[key]
	return ok, nil
}

// Read returns the baseline image bytes for key
func (s *Store) Read(key string) ([]byte, error) {
	m, err := s.loadManifest()
	if err != nil {
		return nil, err
	}
	e, ok := m[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	data, err := os.ReadFile(filepath.Join(s.dir, e.File))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrUnavailable, e.File, err)
	}
	return data, nil
}

// Write stores a new baseline for key. Writing over an existing entry is
// refused; that path exists only as the explicit Regenerate operation.
func (s *Store) Write(key string, img []byte) error {
	m, err := s.loadManifest()
	if err != nil {
		return err
	}
	if _, ok := m[key]; ok {
		return fmt.Errorf("%w: %s", ErrExists, key)
	}
	return s.put(m, key, img)
}

// Regenerate replaces the baseline for key, creating it if absent. Reserved
// for deliberate operator action after an intended visual change.
func (s *Store) Regenerate(key string, img []byte) error {
	m, err := s.loadManifest()
	if err != nil {
		return err
	}
	return s.put(m, key, img)
}

// Remove deletes one baseline and its image file
func (s *Store) Remove(key string) error {
	m, err := s.loadManifest()
	if err != nil {
		return err
	}
	e, ok := m[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err := os.Remove(filepath.Join(s.dir, e.File)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: remove %s: %v", ErrUnavailable, e.File, err)
	}
	delete(m, key)
	return s.saveManifest(m)
}

// List returns every entry sorted by key
func (s *Store) List() ([]Entry, error) {
	m, err := s.loadManifest()
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(m))
	for _, e := range m {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *Store) put(m map[string]Entry, key string, img []byte) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("%w: create dir: %v", ErrUnavailable, err)
	}
	file := utils.SafeName(key) + ".png"
	if err := os.WriteFile(filepath.Join(s.dir, file), img, 0644); err != nil {
		return fmt.Errorf("%w: write %s: %v", ErrUnavailable, file, err)
	}
	m[key] = Entry{Key: key, File: file, CreatedAt: time.Now().UTC()}
	if err := s.saveManifest(m); err != nil {
		return err
	}
	s.log.Debug("baseline stored", zap.String("key", key), zap.String("file", file))
	return nil
}

func (s *Store) loadManifest() (map[string]Entry, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, manifestFile))
	if errors.Is(err, fs.ErrNotExist) {
		// store not initialized yet: valid and empty
		return map[string]Entry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read manifest: %v", ErrUnavailable, err)
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: parse manifest: %v", ErrUnavailable, err)
	}
	m := make(map[string]Entry, len(entries))
	for _, e := range entries {
		m[e.Key] = e
	}
	return m, nil
}

func (s *Store) saveManifest(m map[string]Entry) error {
	entries := make([]Entry, 0, len(m))
	for _, e := range m {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("%w: create dir: %v", ErrUnavailable, err)
	}
	fh, err := os.Create(filepath.Join(s.dir, manifestFile))
	if err != nil {
		return fmt.Errorf("%w: write manifest: %v", ErrUnavailable, err)
	}
	defer fh.Close()

	enc := json.NewEncoder(fh)
	enc.SetIndent("", "  ")
	if err := enc.Encode(entries); err != nil {
		return fmt.Errorf("%w: encode manifest: %v", ErrUnavailable, err)
	}
	return nil
}
