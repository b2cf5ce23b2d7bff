package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/clausechain/clausechain/domain/entities"
)

func TestMemoryCatalogListsNewestFirst(t *testing.T) {
	cat := NewMemoryCatalog()
	ctx := context.Background()

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	old := &entities.FileRecord{ID: "a", Name: "master-lease.pdf", Size: 1024, UploadedAt: base}
	recent := &entities.FileRecord{ID: "b", Name: "amendment.pdf", Size: 2048, UploadedAt: base.Add(time.Hour)}

	if err := cat.Record(ctx, old); err != nil {
		t.Fatalf("record failed: %v", err)
	}
	if err := cat.Record(ctx, recent); err != nil {
		t.Fatalf("record failed: %v", err)
	}

	records, err := cat.List(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Name != "amendment.pdf" || records[1].Name != "master-lease.pdf" {
		t.Fatalf("unexpected order: %q, %q", records[0].Name, records[1].Name)
	}
}

func TestMemoryCatalogEmptyList(t *testing.T) {
	records, err := NewMemoryCatalog().List(context.Background())
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected empty catalog, got %d records", len(records))
	}
}
