package tracker

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Storage persists transaction records as a JSON file keyed by hash
type Storage struct {
	filePath string
	mu       sync.RWMutex
	records  map[string]*Record
}

// historyFile is the on-disk JSON layout
type historyFile struct {
	Transactions map[string]*Record `json:"transactions"`
}

// NewStorage opens the history file at filePath, creating it on first save
func NewStorage(filePath string) (*Storage, error) {
	if filePath == "" {
		return nil, fmt.Errorf("history path is required")
	}

	s := &Storage{
		filePath: filePath,
		records:  make(map[string]*Record),
	}

	if err := s.load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load transaction history: %w", err)
		}
	}

	return s, nil
}

func (s *Storage) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return err
	}

	var file historyFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to unmarshal transactions: %w", err)
	}

	s.records = make(map[string]*Record, len(file.Transactions))
	for hash, rec := range file.Transactions {
		s.records[normalizeHash(hash)] = rec
	}

	return nil
}

// saveLocked writes all records; the caller holds s.mu
func (s *Storage) saveLocked() error {
	data, err := json.MarshalIndent(historyFile{Transactions: s.records}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal transactions: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	// write then rename so a crash never leaves a truncated file
	tempFile := s.filePath + ".tmp"
	if err := os.WriteFile(tempFile, data, 0600); err != nil {
		return fmt.Errorf("failed to write transactions: %w", err)
	}
	if err := os.Rename(tempFile, s.filePath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

// Put inserts or replaces a record
func (s *Storage) Put(rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *rec
	s.records[normalizeHash(rec.Hash)] = &cp
	return s.saveLocked()
}

// Get returns a copy of the record with the given hash
func (s *Storage) Get(hash string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[normalizeHash(hash)]
	if !ok {
		return nil, fmt.Errorf("transaction %s not found", hash)
	}
	cp := *rec
	return &cp, nil
}

// List returns copies of all records, newest first
func (s *Storage) List() []*Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Record, 0, len(s.records))
	for _, rec := range s.records {
		cp := *rec
		out = append(out, &cp)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// ListByStatus returns records with the given status, newest first
func (s *Storage) ListByStatus(status Status) []*Record {
	var out []*Record
	for _, rec := range s.List() {
		if rec.Status == status {
			out = append(out, rec)
		}
	}
	return out
}

// Count returns the number of stored records
func (s *Storage) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// FilePath returns the history file location
func (s *Storage) FilePath() string {
	return s.filePath
}

func normalizeHash(hash string) string {
	return strings.ToLower(strings.TrimSpace(hash))
}
