// Package weblog translates MetaWeblog and Blogger API calls into content
// platform operations.
//
// Every call authenticates the caller, resolves the blog or post it names,
// checks document permissions and then delegates to the collaborators in
// Deps. Failures are returned as the typed errors of this package; platform
// errors are wrapped in *Fault.
package weblog

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"weblogd/internal/media"
	"weblogd/internal/models"
)

const (
	eventSource = "MetaWeblog API"
	eventCode   = "EXCEPTION"
)

// Facade serves the blogging API on top of a content platform.
type Facade struct {
	docs        Documents
	tags        Tags
	attachments Attachments
	workflows   Workflows
	versions    Versions
	auth        Authenticator
	authorizer  Authorizer
	bans        BanList
	events      EventLog
	uploads     UploadSessions
	links       Linker
	inspector   media.Inspector
	throttle    LoginThrottle

	opts   Options
	logger *slog.Logger
}

// New builds a Facade. All collaborators except Throttle and Inspector are required.
func New(deps Deps, opts Options, logger *slog.Logger) (*Facade, error) {
	required := []struct {
		name string
		ok   bool
	}{
		{"documents", deps.Documents != nil},
		{"tags", deps.Tags != nil},
		{"attachments", deps.Attachments != nil},
		{"workflows", deps.Workflows != nil},
		{"versions", deps.Versions != nil},
		{"authenticator", deps.Auth != nil},
		{"authorizer", deps.Authorizer != nil},
		{"ban list", deps.Bans != nil},
		{"event log", deps.Events != nil},
		{"upload sessions", deps.Uploads != nil},
		{"links", deps.Links != nil},
	}
	for _, dep := range required {
		if !dep.ok {
			return nil, fmt.Errorf("weblog: %s is required", dep.name)
		}
	}

	if opts.MaxTitleLength <= 0 {
		opts.MaxTitleLength = DefaultMaxTitleLength
	}
	if opts.SummaryLength <= 0 {
		opts.SummaryLength = DefaultSummaryLength
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if deps.Inspector == nil {
		deps.Inspector = media.Sniffer{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Facade{
		docs:        deps.Documents,
		tags:        deps.Tags,
		attachments: deps.Attachments,
		workflows:   deps.Workflows,
		versions:    deps.Versions,
		auth:        deps.Auth,
		authorizer:  deps.Authorizer,
		bans:        deps.Bans,
		events:      deps.Events,
		uploads:     deps.Uploads,
		links:       deps.Links,
		inspector:   deps.Inspector,
		throttle:    deps.Throttle,
		opts:        opts,
		logger:      logger,
	}, nil
}

func (f *Facade) now() time.Time {
	return f.opts.Now()
}

// Authenticate verifies the caller. Banned origins are rejected before the
// credentials are looked at. Every rejection is written to the event log.
func (f *Facade) Authenticate(ctx context.Context, creds Credentials) (*models.User, error) {
	ip := RemoteIP(ctx)
	for _, category := range models.AllBanCategories() {
		allowed, err := f.bans.IsAllowed(ctx, ip, category)
		if err != nil {
			return nil, wrapFault("authenticate", err)
		}
		if !allowed {
			f.audit(ctx, nil, creds.Username, msgBannedIP)
			return nil, &AuthError{Message: msgBannedIP}
		}
	}

	now := f.now()
	if f.throttle != nil && !f.throttle.Allow(ip, now) {
		f.audit(ctx, nil, creds.Username, msgTooManyAttempts)
		return nil, &AuthError{Message: msgTooManyAttempts}
	}

	var user *models.User
	if err := creds.Validate(); err == nil {
		user, err = f.auth.Authenticate(ctx, creds.Username, creds.Password)
		if err != nil {
			return nil, wrapFault("authenticate", err)
		}
	}
	if user == nil {
		if f.throttle != nil {
			f.throttle.RegisterFailure(ip, now)
		}
		f.audit(ctx, nil, creds.Username, msgUserNotVerified)
		return nil, &AuthError{Message: msgUserNotVerified}
	}
	if f.throttle != nil {
		f.throttle.Reset(ip)
	}
	return user, nil
}

// Authorize decides whether user may perform permission on doc. Owners and
// global administrators skip the ACL. With checkWorkflow set, a document
// outside its default workflow step also needs approval rights on the step.
func (f *Facade) Authorize(ctx context.Context, user *models.User, doc *models.Document, permission models.Permission, checkWorkflow bool) (Decision, error) {
	decision := Decision{Allowed: true}
	if user == nil || doc == nil {
		return Decision{Reason: "no user or document"}, nil
	}

	if doc.OwnerID != user.ID && !user.IsGlobalAdmin {
		ok, err := f.authorizer.IsAuthorized(ctx, user, doc, permission)
		if err != nil {
			return Decision{}, err
		}
		if !ok {
			decision = Decision{Reason: permissionMessage(permission, doc.AliasPath)}
		}
	}

	if checkWorkflow {
		workflow, err := f.workflows.NodeWorkflow(ctx, doc)
		if err != nil {
			return Decision{}, err
		}
		if workflow != nil {
			step, err := f.workflows.Step(ctx, doc)
			if err != nil {
				return Decision{}, err
			}
			if step != nil && !step.IsDefault() {
				ok, err := f.workflows.CanApprove(ctx, doc, step, user)
				if err != nil {
					return Decision{}, err
				}
				if !ok {
					decision = Decision{Reason: fmt.Sprintf(msgNotAuthorizedStep, step.Name), Step: step.Name}
				}
			}
		}
	}
	return decision, nil
}

// requirePermission turns a denied decision into an audited *PermissionError.
func (f *Facade) requirePermission(ctx context.Context, user *models.User, doc *models.Document, permission models.Permission, checkWorkflow bool) error {
	decision, err := f.Authorize(ctx, user, doc, permission, checkWorkflow)
	if err != nil {
		return wrapFault("authorize", err)
	}
	if decision.Allowed {
		return nil
	}
	f.audit(ctx, user, user.Username, decision.Reason)
	return &PermissionError{Permission: permission, Path: doc.AliasPath, Step: decision.Step, Message: decision.Reason}
}

// audit writes a failed security check to the event log and the diagnostic log.
func (f *Facade) audit(ctx context.Context, user *models.User, username, message string) {
	event := models.Event{
		Type:        models.EventError,
		Source:      eventSource,
		Code:        eventCode,
		Description: message,
		IPAddress:   RemoteIP(ctx),
	}
	if user != nil {
		event.UserID = user.ID
	}
	f.logger.Warn("blog api request rejected", "username", username, "remote_ip", event.IPAddress, "reason", message)
	if err := f.events.LogEvent(ctx, event); err != nil {
		f.logger.Error("write audit event", "error", err)
	}
}

func (f *Facade) blog(ctx context.Context, rawID string) (*models.Document, error) {
	id, ok := parseID(rawID)
	if !ok {
		return nil, blogNotFound(rawID)
	}
	blog, err := f.docs.GetBlog(ctx, id)
	if err != nil {
		return nil, wrapFault("get blog", err)
	}
	if blog == nil {
		return nil, blogNotFound(rawID)
	}
	return blog, nil
}

// post returns the post named by rawID, or nil when there is none.
func (f *Facade) post(ctx context.Context, rawID string) (*models.Document, error) {
	id, ok := parseID(rawID)
	if !ok {
		return nil, nil
	}
	post, err := f.docs.GetPost(ctx, id)
	if err != nil {
		return nil, wrapFault("get post", err)
	}
	return post, nil
}

func parseID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
