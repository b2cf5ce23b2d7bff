package catalog

import (
	"context"
	"sort"
	"sync"

	"github.com/clausechain/clausechain/domain/entities"
	"github.com/clausechain/clausechain/domain/repositories"
)

// MemoryCatalog is an in-memory file catalog. It backs the development
// stub and tests where no MongoDB instance is available.
type MemoryCatalog struct {
	mu      sync.RWMutex
	records []entities.FileRecord
}

var _ repositories.FileCatalog = (*MemoryCatalog)(nil)

// NewMemoryCatalog creates an empty in-memory catalog.
func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{}
}

// Record stores one successfully uploaded file.
func (c *MemoryCatalog) Record(ctx context.Context, record *entities.FileRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = append(c.records, *record)
	return nil
}

// List returns all recorded files, newest first.
func (c *MemoryCatalog) List(ctx context.Context) ([]entities.FileRecord, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	records := make([]entities.FileRecord, len(c.records))
	copy(records, c.records)
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].UploadedAt.After(records[j].UploadedAt)
	})
	return records, nil
}
