package models

import "time"

// Attachment is a file bound to a document, or a temporary upload held
// under a session token until a post is saved.
type Attachment struct {
	ID           int64     `json:"id"`
	GUID         string    `json:"guid"`
	DocumentID   int64     `json:"document_id,omitempty"`
	SessionToken string    `json:"session_token,omitempty"`
	Name         string    `json:"name"`
	Extension    string    `json:"extension"`
	MimeType     string    `json:"mime_type"`
	SizeBytes    int64     `json:"size_bytes"`
	Width        int       `json:"width,omitempty"`
	Height       int       `json:"height,omitempty"`
	BlobKey      string    `json:"blob_key"`
	IsUnsorted   bool      `json:"is_unsorted"`
	LastModified time.Time `json:"last_modified"`
	CreatedAt    time.Time `json:"created_at"`
}

// IsTemporary reports whether the attachment is not yet bound to a document.
func (a *Attachment) IsTemporary() bool {
	return a.DocumentID == 0
}
