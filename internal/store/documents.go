package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"weblogd/internal/models"
)

const documentColumns = "id, guid, parent_id, type, name, alias, alias_path, culture, owner_id, body, summary, tags, tag_group_id, post_date, publish_from, publish_to, checked_out_by, workflow_id, step_id, created_at, updated_at"

const defaultCulture = "en-US"

// chainCTE selects a document and all its ancestors with their distance from it.
const chainCTE = `
WITH RECURSIVE chain(id, parent_id, depth) AS (
  SELECT id, parent_id, 0 FROM documents WHERE id = ?
  UNION ALL
  SELECT d.id, d.parent_id, c.depth + 1 FROM documents d JOIN chain c ON d.id = c.parent_id
)`

// BlogSpec describes a blog to create.
type BlogSpec struct {
	Name     string
	Alias    string
	Culture  string
	OwnerID  int64
	ParentID int64
	// TagGroup names the blog's own tag group. Empty uses the blog alias;
	// InheritTags leaves the blog without a group of its own.
	TagGroup    string
	InheritTags bool
}

// CreateBlog creates a blog node and, unless it inherits, its tag group.
func (s *Store) CreateBlog(ctx context.Context, spec BlogSpec) (*models.Document, error) {
	name := strings.TrimSpace(spec.Name)
	if name == "" {
		return nil, fmt.Errorf("blog name is required")
	}
	alias := strings.TrimSpace(spec.Alias)
	if alias == "" {
		alias = Slugify(name)
	}

	var parent *models.Document
	if spec.ParentID > 0 {
		var err error
		parent, err = s.GetDocument(ctx, spec.ParentID)
		if err != nil {
			return nil, err
		}
		if parent == nil {
			return nil, fmt.Errorf("parent document %d not found", spec.ParentID)
		}
	}

	blog := &models.Document{
		Type:     models.DocumentBlog,
		Name:     name,
		Alias:    alias,
		Culture:  spec.Culture,
		OwnerID:  spec.OwnerID,
		PostDate: s.clock(),
	}

	if !spec.InheritTags {
		groupName := strings.TrimSpace(spec.TagGroup)
		if groupName == "" {
			groupName = alias
		}
		group, err := s.EnsureTagGroup(ctx, groupName)
		if err != nil {
			return nil, err
		}
		blog.TagGroupID = group.ID
	}

	if err := s.InsertDocument(ctx, blog, parent); err != nil {
		return nil, err
	}
	return blog, nil
}

// GetDocument returns any document by id.
func (s *Store) GetDocument(ctx context.Context, id int64) (*models.Document, error) {
	if id <= 0 {
		return nil, nil
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = ?`, id)
	return scanDocument(row)
}

// GetDocumentByGUID returns any document by guid.
func (s *Store) GetDocumentByGUID(ctx context.Context, guid string) (*models.Document, error) {
	guid = strings.ToLower(strings.TrimSpace(guid))
	if guid == "" {
		return nil, nil
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE guid = ?`, guid)
	return scanDocument(row)
}

// GetBlog returns the blog with the given id, or nil if there is none.
func (s *Store) GetBlog(ctx context.Context, id int64) (*models.Document, error) {
	return s.getTyped(ctx, id, models.DocumentBlog)
}

// GetPost returns the blog post with the given id, or nil if there is none.
func (s *Store) GetPost(ctx context.Context, id int64) (*models.Document, error) {
	return s.getTyped(ctx, id, models.DocumentBlogPost)
}

func (s *Store) getTyped(ctx context.Context, id int64, docType models.DocumentType) (*models.Document, error) {
	if id <= 0 {
		return nil, nil
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = ? AND type = ?`, id, string(docType))
	return scanDocument(row)
}

// BlogForPost returns the nearest blog above doc.
func (s *Store) BlogForPost(ctx context.Context, doc *models.Document) (*models.Document, error) {
	if doc == nil {
		return nil, nil
	}
	row := s.db.QueryRowContext(ctx, chainCTE+`
		SELECT `+prefixColumns("d.", documentColumns)+`
		FROM documents d JOIN chain c ON d.id = c.id
		WHERE d.type = ? AND c.depth > 0
		ORDER BY c.depth ASC
		LIMIT 1
	`, doc.ID, string(models.DocumentBlog))
	return scanDocument(row)
}

// ListBlogs lists blogs owned by ownerID, or every blog when ownerID is 0.
func (s *Store) ListBlogs(ctx context.Context, ownerID int64) ([]models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE type = ?`
	args := []any{string(models.DocumentBlog)}
	if ownerID > 0 {
		query += ` AND owner_id = ?`
		args = append(args, ownerID)
	}
	query += ` ORDER BY name ASC, id ASC`
	return s.queryDocuments(ctx, query, args...)
}

// ListPosts lists the posts below blog in its culture, newest post date first.
func (s *Store) ListPosts(ctx context.Context, blog *models.Document) ([]models.Document, error) {
	if blog == nil {
		return nil, fmt.Errorf("blog is required")
	}
	return s.queryDocuments(ctx, `
		SELECT `+documentColumns+`
		FROM documents
		WHERE type = ? AND culture = ? AND alias_path LIKE ? ESCAPE '\'
		ORDER BY post_date DESC, id DESC
	`, string(models.DocumentBlogPost), blog.Culture, escapeLike(blog.AliasPath)+"/%")
}

// EnsurePostParent returns the month folder below blog for postDate, creating it if needed.
func (s *Store) EnsurePostParent(ctx context.Context, blog *models.Document, postDate time.Time) (*models.Document, error) {
	if blog == nil {
		return nil, fmt.Errorf("blog is required")
	}
	alias, name := MonthAlias(postDate)
	row := s.db.QueryRowContext(ctx, `
		SELECT `+documentColumns+` FROM documents
		WHERE parent_id = ? AND type = ? AND alias = ?
		LIMIT 1
	`, blog.ID, string(models.DocumentBlogMonth), alias)
	month, err := scanDocument(row)
	if err != nil || month != nil {
		return month, err
	}

	month = &models.Document{
		Type:     models.DocumentBlogMonth,
		Name:     name,
		Alias:    alias,
		Culture:  blog.Culture,
		OwnerID:  blog.OwnerID,
		PostDate: postDate,
	}
	if err := s.InsertDocument(ctx, month, blog); err != nil {
		return nil, err
	}
	return month, nil
}

// InsertDocument stores doc below parent. It assigns identity and alias path,
// attaches the workflow whose scope covers the document and stores its tags.
// Documents entering a check-in/check-out workflow start checked out by their owner.
func (s *Store) InsertDocument(ctx context.Context, doc *models.Document, parent *models.Document) (err error) {
	if doc == nil {
		return fmt.Errorf("document is required")
	}
	if strings.TrimSpace(doc.Name) == "" {
		return fmt.Errorf("document name is required")
	}
	if _, err := models.ParseDocumentType(string(doc.Type)); err != nil {
		return err
	}

	now := s.clock()
	doc.GUID = NewGUID()
	if doc.Culture == "" {
		if parent != nil {
			doc.Culture = parent.Culture
		} else {
			doc.Culture = defaultCulture
		}
	}
	if doc.Alias == "" {
		doc.Alias = Slugify(doc.Name)
	}
	if doc.PostDate.IsZero() {
		doc.PostDate = now
	}
	doc.CreatedAt = now
	doc.UpdatedAt = now

	basePath := ""
	var parentID any
	if parent != nil {
		basePath = parent.AliasPath
		parentID = parent.ID
		doc.ParentID = parent.ID
	}
	alias, err := UniqueAlias(doc.Alias, func(candidate string) (bool, error) {
		return s.aliasPathExists(ctx, basePath+"/"+candidate, doc.Culture)
	})
	if err != nil {
		return err
	}
	doc.Alias = alias
	doc.AliasPath = basePath + "/" + alias

	workflow, err := s.matchWorkflow(ctx, doc)
	if err != nil {
		return err
	}
	if workflow != nil && len(workflow.Steps) > 0 {
		doc.WorkflowID = workflow.ID
		doc.StepID = workflow.Steps[0].ID
		if workflow.UseCheckInCheckOut {
			doc.CheckedOutBy = doc.OwnerID
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	result, err := tx.ExecContext(ctx, `
		INSERT INTO documents (guid, parent_id, type, name, alias, alias_path, culture, owner_id, body, summary, tags, tag_group_id,
			post_date, publish_from, publish_to, checked_out_by, workflow_id, step_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, doc.GUID, parentID, string(doc.Type), doc.Name, doc.Alias, doc.AliasPath, doc.Culture, doc.OwnerID, doc.Body, doc.Summary,
		doc.Tags, doc.TagGroupID, dbFormatTime(doc.PostDate), dbFormatNullTime(doc.PublishFrom), dbFormatNullTime(doc.PublishTo),
		doc.CheckedOutBy, doc.WorkflowID, doc.StepID, dbFormatTime(doc.CreatedAt), dbFormatTime(doc.UpdatedAt))
	if err != nil {
		return err
	}
	doc.ID, err = result.LastInsertId()
	if err != nil {
		return err
	}

	if err := s.syncDocumentTagsTx(ctx, tx, doc); err != nil {
		return err
	}

	return tx.Commit()
}

// UpdateDocument persists the mutable fields of doc and re-parses its tags.
func (s *Store) UpdateDocument(ctx context.Context, doc *models.Document) (err error) {
	if doc == nil || doc.ID <= 0 {
		return fmt.Errorf("document is required")
	}
	doc.UpdatedAt = s.clock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	result, err := tx.ExecContext(ctx, `
		UPDATE documents
		SET name = ?, culture = ?, owner_id = ?, body = ?, summary = ?, tags = ?, tag_group_id = ?, post_date = ?,
			publish_from = ?, publish_to = ?, checked_out_by = ?, workflow_id = ?, step_id = ?, updated_at = ?
		WHERE id = ?
	`, doc.Name, doc.Culture, doc.OwnerID, doc.Body, doc.Summary, doc.Tags, doc.TagGroupID, dbFormatTime(doc.PostDate),
		dbFormatNullTime(doc.PublishFrom), dbFormatNullTime(doc.PublishTo), doc.CheckedOutBy, doc.WorkflowID, doc.StepID,
		dbFormatTime(doc.UpdatedAt), doc.ID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("document %d not found", doc.ID)
	}

	if err := s.syncDocumentTagsTx(ctx, tx, doc); err != nil {
		return err
	}

	return tx.Commit()
}

// DeleteDocument permanently removes doc, its subtree and their attachments.
func (s *Store) DeleteDocument(ctx context.Context, doc *models.Document) error {
	if doc == nil || doc.ID <= 0 {
		return fmt.Errorf("document is required")
	}

	rows, err := s.db.QueryContext(ctx, `
		WITH RECURSIVE subtree(id) AS (
		  SELECT id FROM documents WHERE id = ?
		  UNION ALL
		  SELECT d.id FROM documents d JOIN subtree t ON d.parent_id = t.id
		)
		SELECT DISTINCT blob_key FROM attachments WHERE document_id IN (SELECT id FROM subtree)
	`, doc.ID)
	if err != nil {
		return err
	}
	var blobKeys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			rows.Close()
			return err
		}
		blobKeys = append(blobKeys, key)
	}
	if err := rows.Close(); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, doc.ID); err != nil {
		return err
	}

	for _, key := range blobKeys {
		s.releaseBlob(ctx, key)
	}
	return nil
}

func (s *Store) aliasPathExists(ctx context.Context, aliasPath, culture string) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM documents WHERE alias_path = ? AND culture = ? LIMIT 1`, aliasPath, culture).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) queryDocuments(ctx context.Context, query string, args ...any) ([]models.Document, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := []models.Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		if doc == nil {
			continue
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return docs, nil
}

func scanDocument(scanner interface {
	Scan(dest ...any) error
}) (*models.Document, error) {
	var doc models.Document
	var parentID sql.NullInt64
	var docType string
	var postDate, createdAt, updatedAt string
	var publishFrom, publishTo sql.NullString

	if err := scanner.Scan(&doc.ID, &doc.GUID, &parentID, &docType, &doc.Name, &doc.Alias, &doc.AliasPath, &doc.Culture,
		&doc.OwnerID, &doc.Body, &doc.Summary, &doc.Tags, &doc.TagGroupID, &postDate, &publishFrom, &publishTo,
		&doc.CheckedOutBy, &doc.WorkflowID, &doc.StepID, &createdAt, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	if parentID.Valid {
		doc.ParentID = parentID.Int64
	}
	doc.Type = models.DocumentType(docType)

	var err error
	if doc.PostDate, err = dbParseTime(postDate); err != nil {
		return nil, err
	}
	if doc.CreatedAt, err = dbParseTime(createdAt); err != nil {
		return nil, err
	}
	if doc.UpdatedAt, err = dbParseTime(updatedAt); err != nil {
		return nil, err
	}
	if doc.PublishFrom, err = dbParseNullTime(publishFrom); err != nil {
		return nil, err
	}
	if doc.PublishTo, err = dbParseNullTime(publishTo); err != nil {
		return nil, err
	}
	return &doc, nil
}

func prefixColumns(prefix, columns string) string {
	parts := strings.Split(columns, ",")
	for i, part := range parts {
		parts[i] = prefix + strings.TrimSpace(part)
	}
	return strings.Join(parts, ", ")
}

func escapeLike(value string) string {
	value = strings.ReplaceAll(value, `\`, `\\`)
	value = strings.ReplaceAll(value, `%`, `\%`)
	return strings.ReplaceAll(value, `_`, `\_`)
}
