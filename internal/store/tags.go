package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"weblogd/internal/models"
)

// EnsureTagGroup returns the tag group with name, creating it if needed.
func (s *Store) EnsureTagGroup(ctx context.Context, name string) (*models.TagGroup, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("tag group name is required")
	}
	if _, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO tag_groups (name) VALUES (?)`, name); err != nil {
		return nil, err
	}
	group := &models.TagGroup{Name: name}
	if err := s.db.QueryRowContext(ctx, `SELECT id FROM tag_groups WHERE name = ?`, name).Scan(&group.ID); err != nil {
		return nil, err
	}
	return group, nil
}

// GroupTags lists the tags of a group alphabetically with their usage counts.
func (s *Store) GroupTags(ctx context.Context, groupID int64) ([]models.Tag, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.group_id, t.name, COUNT(dt.document_id)
		FROM tags t
		LEFT JOIN document_tags dt ON dt.tag_id = t.id
		WHERE t.group_id = ?
		GROUP BY t.id, t.group_id, t.name
		ORDER BY t.name COLLATE NOCASE ASC, t.id ASC
	`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tags := []models.Tag{}
	for rows.Next() {
		var tag models.Tag
		if err := rows.Scan(&tag.ID, &tag.GroupID, &tag.Name, &tag.Count); err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tags, nil
}

// DocumentTags lists the tag names assigned to a document alphabetically.
func (s *Store) DocumentTags(ctx context.Context, documentID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.name
		FROM document_tags dt
		JOIN tags t ON t.id = dt.tag_id
		WHERE dt.document_id = ?
		ORDER BY t.name COLLATE NOCASE ASC
	`, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return names, nil
}

// InheritedTagGroupID returns the tag group of the nearest ancestor of doc
// that has one, or 0.
func (s *Store) InheritedTagGroupID(ctx context.Context, doc *models.Document) (int64, error) {
	if doc == nil {
		return 0, nil
	}
	return inheritedTagGroupID(ctx, s.db, doc.ID)
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func inheritedTagGroupID(ctx context.Context, q queryRower, documentID int64) (int64, error) {
	var groupID int64
	err := q.QueryRowContext(ctx, chainCTE+`
		SELECT d.tag_group_id
		FROM documents d JOIN chain c ON d.id = c.id
		WHERE c.depth > 0 AND d.tag_group_id > 0
		ORDER BY c.depth ASC
		LIMIT 1
	`, documentID).Scan(&groupID)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return groupID, nil
}

// syncDocumentTagsTx replaces the tag links of doc with the tags parsed
// from doc.Tags, creating missing tags in the effective tag group.
func (s *Store) syncDocumentTagsTx(ctx context.Context, tx *sql.Tx, doc *models.Document) error {
	names := ParseTags(doc.Tags)

	if _, err := tx.ExecContext(ctx, `DELETE FROM document_tags WHERE document_id = ?`, doc.ID); err != nil {
		return err
	}
	if len(names) == 0 {
		return nil
	}

	groupID := doc.TagGroupID
	if groupID == 0 {
		var err error
		groupID, err = inheritedTagGroupID(ctx, tx, doc.ID)
		if err != nil {
			return err
		}
	}
	if groupID == 0 {
		return fmt.Errorf("no tag group is available for %s", doc.AliasPath)
	}

	for _, name := range names {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO tags (group_id, name) VALUES (?, ?)`, groupID, name); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO document_tags (document_id, tag_id)
			SELECT ?, id FROM tags WHERE group_id = ? AND name = ?
		`, doc.ID, groupID, name); err != nil {
			return err
		}
	}
	return nil
}

// ParseTags splits a tag string into tag names. Quoted tags may contain
// commas and spaces; unquoted tags are separated by commas. Duplicates are
// dropped case-insensitively, keeping the first spelling.
func ParseTags(raw string) []string {
	var (
		tags    []string
		seen    = map[string]struct{}{}
		current strings.Builder
		quoted  bool
	)
	flush := func() {
		name := strings.TrimSpace(current.String())
		current.Reset()
		if name == "" {
			return
		}
		key := strings.ToLower(name)
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		tags = append(tags, name)
	}

	for _, r := range raw {
		switch {
		case r == '"':
			quoted = !quoted
		case r == ',' && !quoted:
			flush()
		default:
			current.WriteRune(r)
		}
	}
	flush()
	return tags
}
