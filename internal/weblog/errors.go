package weblog

import (
	"errors"
	"fmt"

	"weblogd/internal/models"
)

const (
	msgBannedIP           = "Your IP is banned in the system."
	msgUserNotVerified    = "User could not be verified. Please check your user name and password."
	msgTooManyAttempts    = "Too many failed sign-in attempts. Please try again later."
	msgPostCheckedOut     = "The blog post is exclusively checked out by another user."
	msgBlogUnavailable    = "The blog couldn't be found or obtained."
	msgPostUnavailable    = "The blog post isn't present on server any more."
	msgNotAuthorizedPage  = "You're not authorized to %s the page '%s'."
	msgNotAuthorizedStep  = "You're not authorized to approve the document. Workflow step: %s."
	msgWorkflowPathAbsent = "The page has not been published. You are either not authorized to approve the page through all the workflow steps or there are multiple or no approval paths."
	msgWorkflowLoop       = "The page has not been published. Possible loop in the page workflow detected."
)

// AuthError reports a banned origin or credentials that could not be verified.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string { return e.Message }

// PermissionError reports a denied permission or workflow step approval.
type PermissionError struct {
	Permission models.Permission
	Path       string
	Step       string
	Message    string
}

func (e *PermissionError) Error() string { return e.Message }

// NotFoundError reports a blog or post that does not exist.
type NotFoundError struct {
	Kind    models.DocumentType
	ID      string
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// CheckedOutError reports a post locked by another user.
type CheckedOutError struct {
	Path string
}

func (e *CheckedOutError) Error() string { return msgPostCheckedOut }

// WorkflowLoopError reports an approval path that never reaches a final step.
type WorkflowLoopError struct {
	Path string
}

func (e *WorkflowLoopError) Error() string { return msgWorkflowLoop }

// WorkflowPathNotFoundError reports a publish that stopped before a published step.
type WorkflowPathNotFoundError struct {
	Path string
	Step string
}

func (e *WorkflowPathNotFoundError) Error() string { return msgWorkflowPathAbsent }

// Fault wraps a platform failure raised while serving a call. Its message is
// the underlying error text.
type Fault struct {
	Op  string
	Err error
}

func (f *Fault) Error() string { return f.Err.Error() }

func (f *Fault) Unwrap() error { return f.Err }

// Decision is the outcome of a permission check. Reason is set when denied.
type Decision struct {
	Allowed bool
	Reason  string
	Step    string
}

// wrapFault turns err into a *Fault unless it already is one of the typed
// facade errors.
func wrapFault(op string, err error) error {
	if err == nil {
		return nil
	}
	var (
		authErr       *AuthError
		permissionErr *PermissionError
		notFoundErr   *NotFoundError
		checkedOutErr *CheckedOutError
		loopErr       *WorkflowLoopError
		pathErr       *WorkflowPathNotFoundError
		fault         *Fault
	)
	switch {
	case errors.As(err, &authErr), errors.As(err, &permissionErr), errors.As(err, &notFoundErr),
		errors.As(err, &checkedOutErr), errors.As(err, &loopErr), errors.As(err, &pathErr), errors.As(err, &fault):
		return err
	}
	return &Fault{Op: op, Err: err}
}

func blogNotFound(id string) error {
	return &NotFoundError{Kind: models.DocumentBlog, ID: id, Message: msgBlogUnavailable}
}

func postNotFound(id string) error {
	return &NotFoundError{Kind: models.DocumentBlogPost, ID: id, Message: msgPostUnavailable}
}

func permissionMessage(permission models.Permission, path string) string {
	return fmt.Sprintf(msgNotAuthorizedPage, permission, path)
}
