package models

import "time"

// Document is one node of the content tree: a blog, a month folder or a post.
type Document struct {
	ID           int64        `json:"id"`
	GUID         string       `json:"guid"`
	ParentID     int64        `json:"parent_id,omitempty"`
	Type         DocumentType `json:"type"`
	Name         string       `json:"name"`
	Alias        string       `json:"alias"`
	AliasPath    string       `json:"alias_path"`
	Culture      string       `json:"culture"`
	OwnerID      int64        `json:"owner_id"`
	Body         string       `json:"body,omitempty"`
	Summary      string       `json:"summary,omitempty"`
	Tags         string       `json:"tags,omitempty"`
	TagGroupID   int64        `json:"tag_group_id,omitempty"`
	PostDate     time.Time    `json:"post_date"`
	PublishFrom  *time.Time   `json:"publish_from,omitempty"`
	PublishTo    *time.Time   `json:"publish_to,omitempty"`
	CheckedOutBy int64        `json:"checked_out_by,omitempty"`
	WorkflowID   int64        `json:"workflow_id,omitempty"`
	StepID       int64        `json:"step_id,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// IsCheckedOut reports whether some user holds the edit lock.
func (d *Document) IsCheckedOut() bool {
	return d.CheckedOutBy != 0
}

// IsLive reports whether now falls inside the publish window.
func (d *Document) IsLive(now time.Time) bool {
	if d.PublishFrom != nil && now.Before(*d.PublishFrom) {
		return false
	}
	if d.PublishTo != nil && !now.Before(*d.PublishTo) {
		return false
	}
	return true
}

// DocumentACE grants one user one permission on a subtree.
type DocumentACE struct {
	DocumentID int64      `json:"document_id"`
	UserID     int64      `json:"user_id"`
	Permission Permission `json:"permission"`
}

// TagGroup owns a flat set of tags shared by a blog subtree.
type TagGroup struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Tag is one named tag inside a group.
type Tag struct {
	ID      int64  `json:"id"`
	GroupID int64  `json:"group_id"`
	Name    string `json:"name"`
	Count   int    `json:"count"`
}
