package store

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"strings"
	"time"

	"weblogd/internal/blobstore"
	"weblogd/internal/models"
)

const attachmentColumns = "id, guid, document_id, session_token, name, extension, mime_type, size_bytes, width, height, blob_key, is_unsorted, last_modified, created_at"

// AddTemporary stores content and records it as an unbound attachment held
// under the upload session token.
func (s *Store) AddTemporary(ctx context.Context, token string, att *models.Attachment, content io.Reader) error {
	if att == nil {
		return fmt.Errorf("attachment is required")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("upload session token is required")
	}
	if s.blobs == nil {
		return fmt.Errorf("blob store is not configured")
	}

	put, err := s.blobs.Put(ctx, content, blobstore.PutOptions{ContentType: att.MimeType})
	if err != nil {
		return fmt.Errorf("store attachment bytes: %w", err)
	}

	now := s.clock()
	if att.GUID == "" {
		att.GUID = NewGUID()
	}
	att.GUID = strings.ToLower(att.GUID)
	att.DocumentID = 0
	att.SessionToken = token
	att.BlobKey = put.BlobKey
	att.SizeBytes = put.SizeBytes
	att.IsUnsorted = true
	att.CreatedAt = now
	if att.LastModified.IsZero() {
		att.LastModified = now
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO attachments (guid, document_id, session_token, name, extension, mime_type, size_bytes, width, height, blob_key, is_unsorted, last_modified, created_at)
		VALUES (?, NULL, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)
	`, att.GUID, att.SessionToken, att.Name, att.Extension, att.MimeType, att.SizeBytes, att.Width, att.Height, att.BlobKey,
		dbFormatTime(att.LastModified), dbFormatTime(att.CreatedAt))
	if err != nil {
		s.releaseBlob(ctx, put.BlobKey)
		return err
	}
	att.ID, err = result.LastInsertId()
	return err
}

// CommitTemporary binds every attachment held under token to doc and
// returns how many were bound.
func (s *Store) CommitTemporary(ctx context.Context, doc *models.Document, token string) (int, error) {
	if doc == nil || doc.ID <= 0 {
		return 0, fmt.Errorf("document is required")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return 0, nil
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE attachments
		SET document_id = ?, session_token = ''
		WHERE session_token = ? AND document_id IS NULL
	`, doc.ID, token)
	if err != nil {
		return 0, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

// UnsortedAttachments lists the attachments of doc that are not bound to a
// document field, which are the ones embedded in post text.
func (s *Store) UnsortedAttachments(ctx context.Context, documentID int64) ([]models.Attachment, error) {
	return s.queryAttachments(ctx, `
		SELECT `+attachmentColumns+` FROM attachments
		WHERE document_id = ? AND is_unsorted = 1
		ORDER BY id ASC
	`, documentID)
}

// TemporaryAttachments lists the attachments held under token.
func (s *Store) TemporaryAttachments(ctx context.Context, token string) ([]models.Attachment, error) {
	return s.queryAttachments(ctx, `
		SELECT `+attachmentColumns+` FROM attachments
		WHERE session_token = ? AND document_id IS NULL
		ORDER BY id ASC
	`, token)
}

// GetAttachmentByGUID returns one attachment, bound or temporary.
func (s *Store) GetAttachmentByGUID(ctx context.Context, guid string) (*models.Attachment, error) {
	guid = strings.ToLower(strings.TrimSpace(guid))
	if guid == "" {
		return nil, nil
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+attachmentColumns+` FROM attachments WHERE guid = ?`, guid)
	return scanAttachment(row)
}

// OpenAttachment returns the attachment record and a reader for its bytes.
// It returns a nil attachment when guid is unknown.
func (s *Store) OpenAttachment(ctx context.Context, guid string) (*models.Attachment, io.ReadCloser, error) {
	att, err := s.GetAttachmentByGUID(ctx, guid)
	if err != nil || att == nil {
		return nil, nil, err
	}
	if s.blobs == nil {
		return nil, nil, fmt.Errorf("blob store is not configured")
	}
	rc, err := s.blobs.Open(ctx, att.BlobKey)
	if err != nil {
		return nil, nil, err
	}
	return att, rc, nil
}

// DeleteAttachment removes one attachment and frees its bytes when no other
// attachment shares them.
func (s *Store) DeleteAttachment(ctx context.Context, att *models.Attachment) error {
	if att == nil || att.ID <= 0 {
		return fmt.Errorf("attachment is required")
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM attachments WHERE id = ?`, att.ID); err != nil {
		return err
	}
	s.releaseBlob(ctx, att.BlobKey)
	return nil
}

// PurgeTemporary deletes temporary attachments created before cutoff.
func (s *Store) PurgeTemporary(ctx context.Context, cutoff time.Time) (int, error) {
	stale, err := s.queryAttachments(ctx, `
		SELECT `+attachmentColumns+` FROM attachments
		WHERE document_id IS NULL AND created_at < ?
		ORDER BY id ASC
	`, dbFormatTime(cutoff))
	if err != nil {
		return 0, err
	}
	purged := 0
	for i := range stale {
		if err := ctx.Err(); err != nil {
			return purged, err
		}
		if err := s.DeleteAttachment(ctx, &stale[i]); err != nil {
			return purged, err
		}
		purged++
	}
	return purged, nil
}

func (s *Store) releaseBlob(ctx context.Context, key string) {
	if s.blobs == nil || key == "" {
		return
	}
	var refs int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM attachments WHERE blob_key = ?`, key).Scan(&refs); err != nil {
		s.log().Warn("count blob references", "blob_key", key, "error", err)
		return
	}
	if refs > 0 {
		return
	}
	if err := s.blobs.Delete(ctx, key); err != nil {
		s.log().Warn("delete blob", "blob_key", key, "error", err)
	}
}

func (s *Store) queryAttachments(ctx context.Context, query string, args ...any) ([]models.Attachment, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Attachment{}
	for rows.Next() {
		att, err := scanAttachment(rows)
		if err != nil {
			return nil, err
		}
		if att == nil {
			continue
		}
		out = append(out, *att)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func scanAttachment(scanner interface {
	Scan(dest ...any) error
}) (*models.Attachment, error) {
	var att models.Attachment
	var documentID sql.NullInt64
	var unsorted int
	var lastModified, createdAt string
	if err := scanner.Scan(&att.ID, &att.GUID, &documentID, &att.SessionToken, &att.Name, &att.Extension, &att.MimeType,
		&att.SizeBytes, &att.Width, &att.Height, &att.BlobKey, &unsorted, &lastModified, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	if documentID.Valid {
		att.DocumentID = documentID.Int64
	}
	att.IsUnsorted = unsorted != 0

	var err error
	if att.LastModified, err = dbParseTime(lastModified); err != nil {
		return nil, err
	}
	if att.CreatedAt, err = dbParseTime(createdAt); err != nil {
		return nil, err
	}
	return &att, nil
}
