package usecase

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/clausechain/clausechain/domain/entities"
	"github.com/clausechain/clausechain/domain/repositories"
	"github.com/clausechain/clausechain/internal/apperr"
)

// UploadQueue admits candidate files, tracks each item's lifecycle status
// independently, and processes pending items strictly sequentially through
// the upload collaborator. One item's failure never aborts the rest.
type UploadQueue struct {
	uploader repositories.Uploader
	catalog  repositories.FileCatalog // optional; records resolved uploads
	logger   *zap.Logger

	mu      sync.Mutex
	items   []*entities.UploadItem
	running bool
}

// NewUploadQueue creates a queue. The catalog may be nil when no file
// listing surface is attached.
func NewUploadQueue(uploader repositories.Uploader, catalog repositories.FileCatalog, logger *zap.Logger) *UploadQueue {
	return &UploadQueue{
		uploader: uploader,
		catalog:  catalog,
		logger:   logger,
	}
}

// Admit filters candidates to the accepted media type and size ceiling and
// enqueues the survivors as pending items. Rejected candidates are dropped
// silently. Returns snapshots of the admitted items.
func (q *UploadQueue) Admit(candidates []entities.UploadCandidate) []entities.UploadItem {
	var admitted []*entities.UploadItem
	for _, c := range candidates {
		if !c.Acceptable() {
			q.logger.Debug("Candidate rejected at admission",
				zap.String("name", c.Name),
				zap.String("mediaType", c.MediaType),
				zap.Int64("size", c.Size))
			continue
		}
		admitted = append(admitted, entities.NewUploadItem(c))
	}

	q.mu.Lock()
	q.items = append(q.items, admitted...)
	q.mu.Unlock()

	snapshots := make([]entities.UploadItem, 0, len(admitted))
	for _, item := range admitted {
		snapshots = append(snapshots, *item)
	}
	q.logger.Info("Candidates admitted",
		zap.Int("admitted", len(admitted)),
		zap.Int("rejected", len(candidates)-len(admitted)))
	return snapshots
}

// Remove deletes an item while it is still pending. Anything past pending is
// left untouched and Remove reports false.
func (q *UploadQueue) Remove(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, item := range q.items {
		if item.ID != id {
			continue
		}
		if !item.Removable() {
			return false
		}
		q.items = append(q.items[:i], q.items[i+1:]...)
		return true
	}
	return false
}

// UploadAll processes every pending item through the uploader. The whole
// cohort is marked uploading first, then items are uploaded one at a time in
// admission order; each resolves to success or error independently. The
// queue is idle again once the last item resolves.
func (q *UploadQueue) UploadAll(ctx context.Context) error {
	const op = "UploadQueue.UploadAll"

	q.mu.Lock()
	if q.running {
		q.mu.Unlock()
		return apperr.E(apperr.CodeBusy, op, "an upload batch is already running", nil)
	}
	var batch []*entities.UploadItem
	for _, item := range q.items {
		if item.Status == entities.UploadStatusPending {
			batch = append(batch, item)
		}
	}
	if len(batch) == 0 {
		q.mu.Unlock()
		return nil
	}
	for _, item := range batch {
		if err := item.Transition(entities.UploadStatusUploading); err != nil {
			q.logger.Error("Unexpected status at batch start",
				zap.String("id", item.ID), zap.Error(err))
		}
	}
	q.running = true
	q.mu.Unlock()

	defer func() {
		q.mu.Lock()
		q.running = false
		q.mu.Unlock()
	}()

	q.logger.Info("Upload batch started", zap.Int("items", len(batch)))

	for _, item := range batch {
		q.uploadOne(ctx, item)
	}

	q.logger.Info("Upload batch finished", zap.Int("items", len(batch)))
	return nil
}

// Items returns a snapshot of every tracked item in admission order
func (q *UploadQueue) Items() []entities.UploadItem {
	q.mu.Lock()
	defer q.mu.Unlock()
	snapshots := make([]entities.UploadItem, 0, len(q.items))
	for _, item := range q.items {
		snapshots = append(snapshots, *item)
	}
	return snapshots
}

// PendingCount is the number of items still awaiting upload
func (q *UploadQueue) PendingCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for _, item := range q.items {
		if item.Status == entities.UploadStatusPending {
			n++
		}
	}
	return n
}

// Running reports whether a batch is in progress
func (q *UploadQueue) Running() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.running
}

func (q *UploadQueue) uploadOne(ctx context.Context, item *entities.UploadItem) {
	rc, err := item.Open()
	if err != nil {
		q.resolve(item, entities.UploadStatusError, "could not read file: "+err.Error())
		return
	}

	receipt, err := q.uploader.Upload(ctx, item.Name, rc)
	if cerr := rc.Close(); cerr != nil {
		q.logger.Warn("Failed to close upload source",
			zap.String("name", item.Name), zap.Error(cerr))
	}
	if err != nil {
		q.logger.Warn("Upload failed",
			zap.String("name", item.Name), zap.Error(err))
		q.resolve(item, entities.UploadStatusError, apperr.UserMessage(err))
		return
	}

	q.resolve(item, entities.UploadStatusSuccess, "")
	message := ""
	if receipt != nil {
		message = receipt.Message
	}
	q.logger.Info("Upload succeeded",
		zap.String("name", item.Name),
		zap.String("message", message))

	if q.catalog != nil {
		if err := q.catalog.Record(ctx, entities.NewFileRecord(item)); err != nil {
			// The item stays successful; the catalog is a best-effort surface.
			q.logger.Warn("Failed to record upload in catalog",
				zap.String("name", item.Name), zap.Error(err))
		}
	}
}

func (q *UploadQueue) resolve(item *entities.UploadItem, status entities.UploadStatus, message string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if err := item.Transition(status); err != nil {
		q.logger.Error("Illegal upload status transition",
			zap.String("id", item.ID), zap.Error(err))
		return
	}
	item.Err = message
}
