package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/lullaby-stack/care-engine/internal/models"
)

// JSONStore keeps all day records in a single JSON file. Suited to small
// local installs and tests; every write rewrites the file.
type JSONStore struct {
	mu   sync.Mutex
	path string
	days map[string]models.DayRecord
}

type jsonFile struct {
	Days map[string]models.DayRecord `json:"days"`
}

// NewJSONStore opens (or creates) the JSON file at path.
func NewJSONStore(path string) (*JSONStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	st := &JSONStore{path: path, days: make(map[string]models.DayRecord)}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return st, nil
		}
		return nil, err
	}
	var file jsonFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, err
	}
	if file.Days != nil {
		st.days = file.Days
	}
	return st, nil
}

func (s *JSONStore) Close() error {
	return nil
}

func (s *JSONStore) GetDay(date string) (models.DayRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.days[date]
	return rec, ok, nil
}

func (s *JSONStore) SaveDay(rec models.DayRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.days[rec.Date] = rec
	return s.persist()
}

func (s *JSONStore) SaveDays(recs []models.DayRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range recs {
		s.days[rec.Date] = rec
	}
	return s.persist()
}

func (s *JSONStore) Range(from, to string) (map[string]models.DayRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]models.DayRecord)
	for date, rec := range s.days {
		if date >= from && date <= to {
			out[date] = rec
		}
	}
	return out, nil
}

// persist writes via a temp file then renames, keeping the file whole even
// if the process dies mid-write. Caller holds the lock.
func (s *JSONStore) persist() error {
	data, err := json.MarshalIndent(jsonFile{Days: s.days}, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
