package weblog

import (
	"context"
	"io"
	"time"

	"weblogd/internal/media"
	"weblogd/internal/models"
)

// Documents is the content tree the facade reads and writes.
type Documents interface {
	GetBlog(ctx context.Context, id int64) (*models.Document, error)
	GetPost(ctx context.Context, id int64) (*models.Document, error)
	BlogForPost(ctx context.Context, doc *models.Document) (*models.Document, error)
	ListBlogs(ctx context.Context, ownerID int64) ([]models.Document, error)
	ListPosts(ctx context.Context, blog *models.Document) ([]models.Document, error)
	EnsurePostParent(ctx context.Context, blog *models.Document, postDate time.Time) (*models.Document, error)
	InsertDocument(ctx context.Context, doc *models.Document, parent *models.Document) error
	UpdateDocument(ctx context.Context, doc *models.Document) error
	DeleteDocument(ctx context.Context, doc *models.Document) error
}

// Tags reads tag groups and document tags.
type Tags interface {
	GroupTags(ctx context.Context, groupID int64) ([]models.Tag, error)
	DocumentTags(ctx context.Context, documentID int64) ([]string, error)
	InheritedTagGroupID(ctx context.Context, doc *models.Document) (int64, error)
}

// Attachments stores uploaded media.
type Attachments interface {
	AddTemporary(ctx context.Context, token string, att *models.Attachment, content io.Reader) error
	CommitTemporary(ctx context.Context, doc *models.Document, token string) (int, error)
	UnsortedAttachments(ctx context.Context, documentID int64) ([]models.Attachment, error)
	DeleteAttachment(ctx context.Context, att *models.Attachment) error
}

// Workflows looks up and advances approval state.
type Workflows interface {
	NodeWorkflow(ctx context.Context, doc *models.Document) (*models.Workflow, error)
	Step(ctx context.Context, doc *models.Document) (*models.WorkflowStep, error)
	CanApprove(ctx context.Context, doc *models.Document, step *models.WorkflowStep, user *models.User) (bool, error)
	Scope(ctx context.Context, doc *models.Document) (*models.WorkflowScope, error)
	MoveToFirstStep(ctx context.Context, doc *models.Document) error
	Publish(ctx context.Context, doc *models.Document, user *models.User) (*models.WorkflowStep, error)
}

// Versions holds the edit lock of workflow documents.
type Versions interface {
	CheckOut(ctx context.Context, doc *models.Document, user *models.User) error
	CheckIn(ctx context.Context, doc *models.Document, user *models.User) error
	RemoveWorkflow(ctx context.Context, doc *models.Document) error
}

// Authenticator verifies credentials. It returns a nil user when they do not match.
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (*models.User, error)
}

// Authorizer evaluates document permissions.
type Authorizer interface {
	IsAuthorized(ctx context.Context, user *models.User, doc *models.Document, permission models.Permission) (bool, error)
}

// BanList reports whether an address may use a part of the site.
type BanList interface {
	IsAllowed(ctx context.Context, ip string, category models.BanCategory) (bool, error)
}

// EventLog records audit events.
type EventLog interface {
	LogEvent(ctx context.Context, event models.Event) error
}

// UploadSessions hands out the per-blog correlation token for temporary uploads.
type UploadSessions interface {
	Token(ctx context.Context, blogID int64) (string, error)
	Peek(ctx context.Context, blogID int64) (string, bool, error)
}

// LoginThrottle blocks origins after repeated failed sign-ins.
type LoginThrottle interface {
	Allow(key string, now time.Time) bool
	RegisterFailure(key string, now time.Time)
	Reset(key string)
}

// Linker converts between stored and public URLs.
type Linker interface {
	Unresolve(body string) string
	MakeAbsolute(body string) string
	DocumentURL(doc *models.Document) string
	AttachmentURL(guid string) string
}

// Deps are the collaborators of a Facade. Throttle and Inspector are optional.
type Deps struct {
	Documents   Documents
	Tags        Tags
	Attachments Attachments
	Workflows   Workflows
	Versions    Versions
	Auth        Authenticator
	Authorizer  Authorizer
	Bans        BanList
	Events      EventLog
	Uploads     UploadSessions
	Links       Linker
	Inspector   media.Inspector
	Throttle    LoginThrottle
}

// Options tune post translation.
type Options struct {
	MaxTitleLength  int
	GenerateSummary bool
	SummaryLength   int
	DeleteUnused    bool
	MaxUploadBytes  int64
	Location        *time.Location
	Now             func() time.Time
}

const (
	DefaultMaxTitleLength = 100
	DefaultSummaryLength  = 200
)
