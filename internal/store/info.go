package store

import (
	"context"
)

// StoreInfo summarizes what the platform holds.
type StoreInfo struct {
	SchemaVersion        int            `json:"schema_version"`
	DocumentCounts       map[string]int `json:"document_counts"`
	TotalUsers           int            `json:"total_users"`
	TotalAttachments     int            `json:"total_attachments"`
	TemporaryAttachments int            `json:"temporary_attachments"`
}

// StoreInfo reports schema version and row counts.
func (s *Store) StoreInfo(ctx context.Context) (*StoreInfo, error) {
	version, err := currentVersion(s.db)
	if err != nil {
		return nil, err
	}
	info := &StoreInfo{SchemaVersion: version, DocumentCounts: map[string]int{}}

	rows, err := s.db.QueryContext(ctx, `SELECT type, COUNT(*) FROM documents GROUP BY type`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var docType string
		var count int
		if err := rows.Scan(&docType, &count); err != nil {
			rows.Close()
			return nil, err
		}
		info.DocumentCounts[docType] = count
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&info.TotalUsers); err != nil {
		return nil, err
	}
	if err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN document_id IS NULL THEN 1 ELSE 0 END), 0) FROM attachments
	`).Scan(&info.TotalAttachments, &info.TemporaryAttachments); err != nil {
		return nil, err
	}
	return info, nil
}
