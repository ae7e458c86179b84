package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/quantforge/riskpipe/internal/exchange"
)

// FileStore keeps order records in a single JSON file. Writes go
// through a temp file plus rename so a crash mid-write cannot corrupt
// the existing snapshot.
type FileStore struct {
	mu     sync.RWMutex
	path   string
	orders map[string]exchange.OrderRecord
}

// NewFileStore opens (or creates) the order store at path, loading any
// existing snapshot.
func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	store := &FileStore{
		path:   path,
		orders: make(map[string]exchange.OrderRecord),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return store, nil
		}
		return nil, fmt.Errorf("failed to read order store: %w", err)
	}

	var records []exchange.OrderRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse order store %s: %w", path, err)
	}
	for _, r := range records {
		store.orders[r.ID] = r
	}
	return store, nil
}

// InsertOrder saves a new order record.
func (s *FileStore) InsertOrder(record *exchange.OrderRecord) error {
	if record == nil || record.ID == "" {
		return fmt.Errorf("order record must have an ID")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.orders[record.ID]; exists {
		return fmt.Errorf("order %s already stored", record.ID)
	}
	s.orders[record.ID] = *record
	return s.flushLocked()
}

// UpdateOrder overwrites the stored record matching record.ID.
func (s *FileStore) UpdateOrder(record *exchange.OrderRecord) error {
	if record == nil || record.ID == "" {
		return fmt.Errorf("order record must have an ID")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.orders[record.ID]; !exists {
		return fmt.Errorf("order %s not found", record.ID)
	}
	s.orders[record.ID] = *record
	return s.flushLocked()
}

// FetchOrders returns all orders submitted at or after since, newest
// first.
func (s *FileStore) FetchOrders(since time.Time) ([]exchange.OrderRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]exchange.OrderRecord, 0, len(s.orders))
	for _, r := range s.orders {
		if r.SubmittedAt.Before(since) {
			continue
		}
		records = append(records, r)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].SubmittedAt.After(records[j].SubmittedAt)
	})
	return records, nil
}

// Close flushes the current snapshot.
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked()
}

// flushLocked writes the snapshot; callers must hold s.mu.
func (s *FileStore) flushLocked() error {
	records := make([]exchange.OrderRecord, 0, len(s.orders))
	for _, r := range s.orders {
		records = append(records, r)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].SubmittedAt.Before(records[j].SubmittedAt)
	})

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal order store: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write order store: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("failed to replace order store: %w", err)
	}
	return nil
}
