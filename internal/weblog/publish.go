package weblog

import (
	"context"

	"weblogd/internal/models"
)

// setPublished publishes or withdraws doc. A document whose workflow scope
// no longer covers it leaves the workflow first.
func (f *Facade) setPublished(ctx context.Context, doc *models.Document, user *models.User, publish bool) error {
	if err := f.ensureWorkflowScope(ctx, doc); err != nil {
		return err
	}
	if publish {
		return f.publish(ctx, doc, user)
	}
	return f.unpublish(ctx, doc)
}

func (f *Facade) ensureWorkflowScope(ctx context.Context, doc *models.Document) error {
	if doc.WorkflowID == 0 {
		return nil
	}
	workflow, err := f.workflows.NodeWorkflow(ctx, doc)
	if err != nil {
		return err
	}
	if workflow == nil {
		f.logger.Info("document workflow no longer exists", "path", doc.AliasPath, "workflow_id", doc.WorkflowID)
		return f.versions.RemoveWorkflow(ctx, doc)
	}
	scope, err := f.workflows.Scope(ctx, doc)
	if err != nil {
		return err
	}
	if scope != nil {
		return nil
	}
	f.logger.Info("document left workflow scope", "path", doc.AliasPath, "workflow_id", doc.WorkflowID)
	return f.versions.RemoveWorkflow(ctx, doc)
}

// unpublish ends the publish window of a document without workflow, or sends
// a workflow document back to its first step.
func (f *Facade) unpublish(ctx context.Context, doc *models.Document) error {
	if doc.StepID != 0 {
		return f.workflows.MoveToFirstStep(ctx, doc)
	}
	now := f.now()
	doc.PublishTo = &now
	return f.docs.UpdateDocument(ctx, doc)
}

// publish clears an expired publish window, or advances a workflow document
// along its approval path until it is published.
func (f *Facade) publish(ctx context.Context, doc *models.Document, user *models.User) error {
	if doc.StepID == 0 {
		if doc.PublishTo != nil && doc.PublishTo.Before(f.now()) {
			doc.PublishTo = nil
		}
		return f.docs.UpdateDocument(ctx, doc)
	}

	step, err := f.workflows.Publish(ctx, doc, user)
	if err != nil {
		return err
	}
	if step == nil {
		return &WorkflowLoopError{Path: doc.AliasPath}
	}
	if !step.IsPublished() {
		return &WorkflowPathNotFoundError{Path: doc.AliasPath, Step: step.Name}
	}
	return f.docs.UpdateDocument(ctx, doc)
}

// publishAttachments removes unsorted attachments no longer linked from the
// post when configured, then binds the blog's pending uploads to the post.
func (f *Facade) publishAttachments(ctx context.Context, blog, doc *models.Document) error {
	if f.opts.DeleteUnused {
		referenced := referencedGUIDs(doc.Summary, doc.Body)
		unsorted, err := f.attachments.UnsortedAttachments(ctx, doc.ID)
		if err != nil {
			return err
		}
		for i := range unsorted {
			if _, ok := referenced[unsorted[i].GUID]; ok {
				continue
			}
			if err := f.attachments.DeleteAttachment(ctx, &unsorted[i]); err != nil {
				return err
			}
			f.logger.Debug("unused attachment deleted", "guid", unsorted[i].GUID, "path", doc.AliasPath)
		}
	}

	token, ok, err := f.uploads.Peek(ctx, blog.ID)
	if err != nil || !ok {
		return err
	}
	committed, err := f.attachments.CommitTemporary(ctx, doc, token)
	if err != nil {
		return err
	}
	if committed > 0 {
		f.logger.Info("uploads attached to post", "count", committed, "path", doc.AliasPath)
	}
	return nil
}
