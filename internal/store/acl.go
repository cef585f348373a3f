package store

import (
	"context"
	"database/sql"
	"fmt"

	"weblogd/internal/models"
)

// Grant gives userID permission on a document and its subtree.
func (s *Store) Grant(ctx context.Context, documentID, userID int64, permission models.Permission) error {
	if _, err := models.ParsePermission(string(permission)); err != nil {
		return err
	}
	if documentID <= 0 || userID <= 0 {
		return fmt.Errorf("document and user are required")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO document_acl (document_id, user_id, permission) VALUES (?, ?, ?)
	`, documentID, userID, string(permission))
	return err
}

// Revoke removes one grant. It reports whether a grant existed.
func (s *Store) Revoke(ctx context.Context, documentID, userID int64, permission models.Permission) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM document_acl WHERE document_id = ? AND user_id = ? AND permission = ?
	`, documentID, userID, string(permission))
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// ListGrants lists the entries set directly on a document.
func (s *Store) ListGrants(ctx context.Context, documentID int64) ([]models.DocumentACE, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT document_id, user_id, permission FROM document_acl
		WHERE document_id = ?
		ORDER BY user_id ASC, permission ASC
	`, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.DocumentACE{}
	for rows.Next() {
		var ace models.DocumentACE
		var permission string
		if err := rows.Scan(&ace.DocumentID, &ace.UserID, &permission); err != nil {
			return nil, err
		}
		ace.Permission = models.Permission(permission)
		out = append(out, ace)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// IsAuthorized reports whether user holds permission on doc through a grant
// on doc or any of its ancestors. Global administrators always pass.
func (s *Store) IsAuthorized(ctx context.Context, user *models.User, doc *models.Document, permission models.Permission) (bool, error) {
	if user == nil || doc == nil {
		return false, nil
	}
	if user.IsGlobalAdmin {
		return true, nil
	}
	var found int
	err := s.db.QueryRowContext(ctx, chainCTE+`
		SELECT 1
		FROM document_acl a JOIN chain c ON a.document_id = c.id
		WHERE a.user_id = ? AND a.permission = ?
		LIMIT 1
	`, doc.ID, user.ID, string(permission)).Scan(&found)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
