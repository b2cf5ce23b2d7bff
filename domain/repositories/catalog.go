package repositories

import (
	"context"

	"github.com/clausechain/clausechain/domain/entities"
)

// FileCatalog records resolved uploads for the file listing surface
type FileCatalog interface {
	Record(ctx context.Context, record *entities.FileRecord) error
	List(ctx context.Context) ([]entities.FileRecord, error)
}
