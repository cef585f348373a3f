package store

import (
	"context"
	"io"
	"time"

	"weblogd/internal/models"
)

// ContentStore abstracts the content tree, tags and workflow state.
type ContentStore interface {
	GetBlog(ctx context.Context, id int64) (*models.Document, error)
	GetPost(ctx context.Context, id int64) (*models.Document, error)
	BlogForPost(ctx context.Context, doc *models.Document) (*models.Document, error)
	ListBlogs(ctx context.Context, ownerID int64) ([]models.Document, error)
	ListPosts(ctx context.Context, blog *models.Document) ([]models.Document, error)
	EnsurePostParent(ctx context.Context, blog *models.Document, postDate time.Time) (*models.Document, error)
	InsertDocument(ctx context.Context, doc *models.Document, parent *models.Document) error
	UpdateDocument(ctx context.Context, doc *models.Document) error
	DeleteDocument(ctx context.Context, doc *models.Document) error

	GroupTags(ctx context.Context, groupID int64) ([]models.Tag, error)
	DocumentTags(ctx context.Context, documentID int64) ([]string, error)
	InheritedTagGroupID(ctx context.Context, doc *models.Document) (int64, error)

	NodeWorkflow(ctx context.Context, doc *models.Document) (*models.Workflow, error)
	Step(ctx context.Context, doc *models.Document) (*models.WorkflowStep, error)
	CanApprove(ctx context.Context, doc *models.Document, step *models.WorkflowStep, user *models.User) (bool, error)
	Scope(ctx context.Context, doc *models.Document) (*models.WorkflowScope, error)
	MoveToFirstStep(ctx context.Context, doc *models.Document) error
	Publish(ctx context.Context, doc *models.Document, user *models.User) (*models.WorkflowStep, error)
	CheckOut(ctx context.Context, doc *models.Document, user *models.User) error
	CheckIn(ctx context.Context, doc *models.Document, user *models.User) error
	RemoveWorkflow(ctx context.Context, doc *models.Document) error
}

// AttachmentStore is the persistence surface for uploaded media.
//
// This is separate from ContentStore so the download endpoint and the
// maintenance job can depend on attachments alone.
type AttachmentStore interface {
	AddTemporary(ctx context.Context, token string, att *models.Attachment, content io.Reader) error
	CommitTemporary(ctx context.Context, doc *models.Document, token string) (int, error)
	UnsortedAttachments(ctx context.Context, documentID int64) ([]models.Attachment, error)
	DeleteAttachment(ctx context.Context, att *models.Attachment) error
	OpenAttachment(ctx context.Context, guid string) (*models.Attachment, io.ReadCloser, error)
	PurgeTemporary(ctx context.Context, cutoff time.Time) (int, error)
}

// SecurityStore covers accounts, permissions, bans and the audit log.
type SecurityStore interface {
	Authenticate(ctx context.Context, username, password string) (*models.User, error)
	IsAuthorized(ctx context.Context, user *models.User, doc *models.Document, permission models.Permission) (bool, error)
	IsAllowed(ctx context.Context, ip string, category models.BanCategory) (bool, error)
	LogEvent(ctx context.Context, event models.Event) error
}

var (
	_ ContentStore    = (*Store)(nil)
	_ AttachmentStore = (*Store)(nil)
	_ SecurityStore   = (*Store)(nil)
)
