package entities

import (
	"errors"
	"io"
	"time"

	"github.com/google/uuid"
)

// UploadStatus represents the lifecycle status of an upload item
type UploadStatus string

const (
	UploadStatusPending   UploadStatus = "pending"
	UploadStatusUploading UploadStatus = "uploading"
	UploadStatusSuccess   UploadStatus = "success"
	UploadStatusError     UploadStatus = "error"
)

// AcceptedMediaType is the single document type the queue admits
const AcceptedMediaType = "application/pdf"

// MaxUploadBytes is the advertised size ceiling, enforced at admission
const MaxUploadBytes = 50 << 20 // 50 MB

// Opener supplies the file content when the item is uploaded
type Opener func() (io.ReadCloser, error)

// UploadCandidate is a user-selected file before admission filtering
type UploadCandidate struct {
	Name      string
	Size      int64
	MediaType string
	Open      Opener
}

// Acceptable reports whether the candidate passes admission filtering.
func (c UploadCandidate) Acceptable() bool {
	return c.MediaType == AcceptedMediaType && c.Size <= MaxUploadBytes
}

// UploadItem is one candidate file tracked through the batch queue.
// Status moves forward only; once uploading an item must reach success or
// error and can no longer be removed.
type UploadItem struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Size      int64        `json:"size"`
	MediaType string       `json:"media_type"`
	Status    UploadStatus `json:"status"`
	Err       string       `json:"error,omitempty"`
	Open      Opener       `json:"-"`
}

// NewUploadItem admits a candidate as a pending item
func NewUploadItem(c UploadCandidate) *UploadItem {
	return &UploadItem{
		ID:        uuid.NewString(),
		Name:      c.Name,
		Size:      c.Size,
		MediaType: c.MediaType,
		Status:    UploadStatusPending,
		Open:      c.Open,
	}
}

// CanTransition reports whether the status change is a legal forward move
func (i *UploadItem) CanTransition(to UploadStatus) bool {
	switch i.Status {
	case UploadStatusPending:
		return to == UploadStatusUploading
	case UploadStatusUploading:
		return to == UploadStatusSuccess || to == UploadStatusError
	default:
		return false
	}
}

// Transition applies a status change, rejecting illegal moves
func (i *UploadItem) Transition(to UploadStatus) error {
	if !i.CanTransition(to) {
		return errors.New("illegal upload status transition: " + string(i.Status) + " -> " + string(to))
	}
	i.Status = to
	return nil
}

// Removable reports whether the user may still remove the item
func (i *UploadItem) Removable() bool {
	return i.Status == UploadStatusPending
}

// Terminal reports whether the item has resolved
func (i *UploadItem) Terminal() bool {
	return i.Status == UploadStatusSuccess || i.Status == UploadStatusError
}

// FileRecord is a resolved upload as recorded in the file catalog
type FileRecord struct {
	ID         string    `json:"id" bson:"_id"`
	Name       string    `json:"name" bson:"name"`
	Size       int64     `json:"size" bson:"size"`
	UploadedAt time.Time `json:"uploaded_at" bson:"uploaded_at"`
}

// NewFileRecord builds a catalog record from a successfully uploaded item
func NewFileRecord(item *UploadItem) *FileRecord {
	return &FileRecord{
		ID:         item.ID,
		Name:       item.Name,
		Size:       item.Size,
		UploadedAt: time.Now(),
	}
}
