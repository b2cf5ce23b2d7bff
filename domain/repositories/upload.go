package repositories

import (
	"context"
	"io"
)

// UploadReceipt is the backend's acknowledgement of a stored file
type UploadReceipt struct {
	Message string `json:"message,omitempty"`
}

// Uploader abstracts the file storage collaborator
type Uploader interface {
	// Upload stores one file's content under its original filename
	Upload(ctx context.Context, filename string, r io.Reader) (*UploadReceipt, error)
}
