package settings

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ANIKETSHETTY47/solar-exec-dashboard/internal/domain"
)

// Settings is the persisted state of the data source.
type Settings struct {
	DataFolder  string         `json:"data_folder"`
	LastReload  *time.Time     `json:"last_reload"`
	FilesLoaded map[string]int `json:"files_loaded"`
}

// Store keeps Settings in a JSON file.
type Store struct {
	mu   sync.RWMutex
	path string
	data Settings
}

// Open loads path, creating it with defaultFolder when missing.
func Open(path, defaultFolder string) (*Store, error) {
	st := &Store{path: path}

	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		st.data = Settings{DataFolder: defaultFolder, FilesLoaded: map[string]int{}}
		return st, st.saveLocked()
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &st.data); err != nil {
		return nil, err
	}
	if st.data.DataFolder == "" {
		st.data.DataFolder = defaultFolder
	}
	if st.data.FilesLoaded == nil {
		st.data.FilesLoaded = map[string]int{}
	}
	return st, nil
}

func (s *Store) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.data
	out.FilesLoaded = make(map[string]int, len(s.data.FilesLoaded))
	for k, v := range s.data.FilesLoaded {
		out.FilesLoaded[k] = v
	}
	return out
}

func (s *Store) DataFolder() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.DataFolder
}

// SetDataFolder points the folder source at dir, which must exist.
func (s *Store) SetDataFolder(dir string) (Settings, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return Settings{}, domain.NotFoundf("data folder %q does not exist", dir)
	}
	s.mu.Lock()
	s.data.DataFolder = dir
	err = s.saveLocked()
	s.mu.Unlock()
	if err != nil {
		return Settings{}, err
	}
	return s.Get(), nil
}

// RecordReload stores the outcome of a reload. Counts of files that failed
// keep their previous value.
func (s *Store) RecordReload(at time.Time, files map[string]int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.LastReload = &at
	for k, v := range files {
		s.data.FilesLoaded[k] = v
	}
	return s.saveLocked()
}

func (s *Store) saveLocked() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
