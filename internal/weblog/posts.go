package weblog

import (
	"context"
	"time"

	"weblogd/internal/models"
)

// AddPost creates a post in the blog and returns its id.
func (f *Facade) AddPost(ctx context.Context, blogID string, creds Credentials, post Post, publish bool) (string, error) {
	user, err := f.Authenticate(ctx, creds)
	if err != nil {
		return "", err
	}
	blog, err := f.blog(ctx, blogID)
	if err != nil {
		return "", err
	}
	if err := f.requirePermission(ctx, user, blog, models.PermissionCreate, false); err != nil {
		return "", err
	}
	if err := post.Validate(); err != nil {
		return "", &Fault{Op: "add post", Err: err}
	}

	postDate, scheduled := f.postDate(post.DateCreated)
	doc := &models.Document{
		Type:     models.DocumentBlogPost,
		Culture:  blog.Culture,
		OwnerID:  user.ID,
		PostDate: postDate,
	}
	if scheduled {
		doc.PublishFrom = &postDate
	}
	f.applyPost(doc, post)

	parent, err := f.docs.EnsurePostParent(ctx, blog, postDate)
	if err != nil {
		return "", wrapFault("add post", err)
	}
	if err := f.docs.InsertDocument(ctx, doc, parent); err != nil {
		return "", wrapFault("add post", err)
	}
	f.logger.Info("blog post created", "post_id", doc.ID, "path", doc.AliasPath, "user", user.Username)

	if doc.IsCheckedOut() {
		if err := f.versions.CheckIn(ctx, doc, user); err != nil {
			return "", wrapFault("add post", err)
		}
	}
	if err := f.publishAttachments(ctx, blog, doc); err != nil {
		return "", wrapFault("add post", err)
	}
	if err := f.setPublished(ctx, doc, user, publish); err != nil {
		return "", wrapFault("add post", err)
	}
	return formatID(doc.ID), nil
}

// UpdatePost replaces the content of a post. It returns false when the post
// does not exist.
func (f *Facade) UpdatePost(ctx context.Context, postID string, creds Credentials, post Post, publish bool) (bool, error) {
	user, err := f.Authenticate(ctx, creds)
	if err != nil {
		return false, err
	}
	doc, err := f.post(ctx, postID)
	if err != nil || doc == nil {
		return false, err
	}
	if err := f.requirePermission(ctx, user, doc, models.PermissionModify, true); err != nil {
		return false, err
	}
	if err := post.Validate(); err != nil {
		return false, &Fault{Op: "edit post", Err: err}
	}
	blog, err := f.docs.BlogForPost(ctx, doc)
	if err != nil {
		return false, wrapFault("edit post", err)
	}
	if blog == nil {
		return false, blogNotFound("")
	}

	workflow, err := f.workflows.NodeWorkflow(ctx, doc)
	if err != nil {
		return false, wrapFault("edit post", err)
	}
	checkedOut := false
	if workflow != nil {
		switch doc.CheckedOutBy {
		case 0:
			if err := f.versions.CheckOut(ctx, doc, user); err != nil {
				return false, wrapFault("edit post", err)
			}
			checkedOut = true
		case user.ID:
		default:
			return false, &CheckedOutError{Path: doc.AliasPath}
		}
	}

	postDate, scheduled := f.postDate(post.DateCreated)
	doc.Culture = blog.Culture
	doc.PostDate = postDate
	if scheduled {
		doc.PublishFrom = &postDate
	}
	if publish && workflow != nil {
		doc.PublishTo = nil
	}
	f.applyPost(doc, post)

	if err := f.docs.UpdateDocument(ctx, doc); err != nil {
		return false, wrapFault("edit post", err)
	}
	f.logger.Info("blog post updated", "post_id", doc.ID, "path", doc.AliasPath, "user", user.Username)

	if checkedOut {
		if err := f.versions.CheckIn(ctx, doc, user); err != nil {
			return false, wrapFault("edit post", err)
		}
	}
	if err := f.publishAttachments(ctx, blog, doc); err != nil {
		return false, wrapFault("edit post", err)
	}
	if err := f.setPublished(ctx, doc, user, publish); err != nil {
		return false, wrapFault("edit post", err)
	}
	return true, nil
}

// GetPost returns one post.
func (f *Facade) GetPost(ctx context.Context, postID string, creds Credentials) (*Post, error) {
	user, err := f.Authenticate(ctx, creds)
	if err != nil {
		return nil, err
	}
	doc, err := f.post(ctx, postID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, postNotFound(postID)
	}
	if err := f.requirePermission(ctx, user, doc, models.PermissionRead, true); err != nil {
		return nil, err
	}
	post, err := f.projectPost(ctx, doc)
	if err != nil {
		return nil, wrapFault("get post", err)
	}
	return post, nil
}

// GetRecentPosts returns up to count readable posts of the blog, newest
// first. A non-positive count returns all of them.
func (f *Facade) GetRecentPosts(ctx context.Context, blogID string, creds Credentials, count int) ([]Post, error) {
	user, err := f.Authenticate(ctx, creds)
	if err != nil {
		return nil, err
	}
	blog, err := f.blog(ctx, blogID)
	if err != nil {
		return nil, err
	}
	if err := f.requirePermission(ctx, user, blog, models.PermissionRead, false); err != nil {
		return nil, err
	}

	docs, err := f.docs.ListPosts(ctx, blog)
	if err != nil {
		return nil, wrapFault("get recent posts", err)
	}
	posts := make([]Post, 0, len(docs))
	for i := range docs {
		if count > 0 && len(posts) >= count {
			break
		}
		decision, err := f.Authorize(ctx, user, &docs[i], models.PermissionRead, false)
		if err != nil {
			return nil, wrapFault("get recent posts", err)
		}
		if !decision.Allowed {
			continue
		}
		post, err := f.projectPost(ctx, &docs[i])
		if err != nil {
			return nil, wrapFault("get recent posts", err)
		}
		posts = append(posts, *post)
	}
	return posts, nil
}

// DeletePost permanently removes a post. It returns false when the post does
// not exist.
func (f *Facade) DeletePost(ctx context.Context, postID string, creds Credentials) (bool, error) {
	user, err := f.Authenticate(ctx, creds)
	if err != nil {
		return false, err
	}
	doc, err := f.post(ctx, postID)
	if err != nil || doc == nil {
		return false, err
	}
	if err := f.requirePermission(ctx, user, doc, models.PermissionDelete, false); err != nil {
		return false, err
	}
	if err := f.docs.DeleteDocument(ctx, doc); err != nil {
		return false, wrapFault("delete post", err)
	}
	f.logger.Info("blog post deleted", "post_id", doc.ID, "path", doc.AliasPath, "user", user.Username)
	return true, nil
}

// postDate converts a client date to server time. A zero date means now and
// is not a scheduled publish.
func (f *Facade) postDate(created time.Time) (time.Time, bool) {
	if created.IsZero() {
		return f.now().In(f.opts.Location), false
	}
	return created.In(f.opts.Location), true
}

// applyPost copies the client's content fields onto doc.
func (f *Facade) applyPost(doc *models.Document, post Post) {
	doc.Name = cleanTitle(post.Title, f.opts.MaxTitleLength)
	doc.Body = f.links.Unresolve(post.Description)
	doc.Summary = ""
	if f.opts.GenerateSummary {
		doc.Summary = LimitLength(StripTags(post.Description), f.opts.SummaryLength)
	}
	if len(post.Categories) > 0 {
		doc.Tags = tagsString(post.Categories)
	}
}

func (f *Facade) projectPost(ctx context.Context, doc *models.Document) (*Post, error) {
	tags, err := f.tags.DocumentTags(ctx, doc.ID)
	if err != nil {
		return nil, err
	}
	if tags == nil {
		tags = []string{}
	}
	return &Post{
		DateCreated: doc.PostDate,
		Description: f.links.MakeAbsolute(doc.Body),
		Title:       doc.Name,
		Categories:  tags,
		Permalink:   f.links.DocumentURL(doc),
		PostID:      formatID(doc.ID),
		UserID:      formatID(doc.OwnerID),
	}, nil
}
