package domain

import "time"

// DocumentStatus is the processing state of an uploaded document.
type DocumentStatus string

// Document processing states.
const (
	// DocumentProcessing means the backend is still extracting and indexing the file.
	DocumentProcessing DocumentStatus = "processing"

	// DocumentProcessed means the document is ready to chat with.
	DocumentProcessed DocumentStatus = "processed"

	// DocumentFailed means processing ended with an error.
	DocumentFailed DocumentStatus = "failed"
)

// IsTerminal returns true once no further transition can occur.
func (s DocumentStatus) IsTerminal() bool {
	return s == DocumentProcessed || s == DocumentFailed
}

// IsValid returns true if the status is recognised.
func (s DocumentStatus) IsValid() bool {
	switch s {
	case DocumentProcessing, DocumentProcessed, DocumentFailed:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (s DocumentStatus) String() string {
	return string(s)
}

// Document represents an uploaded file as known to the backend.
// The client copy is a cache; the backend is the source of truth for Status.
type Document struct {
	// ID is assigned by the backend.
	ID string

	// FileName is the original name of the uploaded file.
	FileName string

	// OwnerID is the user who uploaded the document.
	OwnerID string

	// StoragePath is the backend's object storage location.
	StoragePath string

	// CreatedAt is when the document was uploaded.
	CreatedAt time.Time

	// Status is the processing state.
	Status DocumentStatus

	// ProcessingError explains a failure. Only meaningful when Status is failed.
	ProcessingError string
}

// Key returns the document ID. It lets documents live in keyed collections.
func (d Document) Key() string {
	return d.ID
}

// Ref returns an attachment reference to this document.
func (d Document) Ref() AttachmentRef {
	return AttachmentRef{ID: d.ID, Title: d.FileName}
}

// UploadProgress reports bytes sent for an in-flight upload.
type UploadProgress struct {
	// Sent is the number of bytes written so far.
	Sent int64

	// Total is the request size, or 0 when unknown.
	Total int64
}

// Percent returns the rounded completion percentage (0-100).
// An unknown total counts as 1 so the result never divides by zero.
func (p UploadProgress) Percent() int {
	total := p.Total
	if total <= 0 {
		total = 1
	}
	pct := int((p.Sent*100 + total/2) / total)
	if pct > 100 {
		return 100
	}
	return pct
}
