package weblog

import (
	"bytes"
	"context"
	"fmt"

	"weblogd/internal/models"
)

// GetCategories lists the tags of the blog's tag group alphabetically. A
// blog without its own group uses the nearest ancestor's.
func (f *Facade) GetCategories(ctx context.Context, blogID string, creds Credentials) ([]CategoryInfo, error) {
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

	groupID := blog.TagGroupID
	if groupID == 0 {
		groupID, err = f.tags.InheritedTagGroupID(ctx, blog)
		if err != nil {
			return nil, wrapFault("get categories", err)
		}
	}
	tags, err := f.tags.GroupTags(ctx, groupID)
	if err != nil {
		return nil, wrapFault("get categories", err)
	}

	categories := make([]CategoryInfo, 0, len(tags))
	for _, tag := range tags {
		categories = append(categories, CategoryInfo{
			CategoryID:  formatID(tag.ID),
			Title:       tag.Name,
			Description: tag.Name,
		})
	}
	return categories, nil
}

// NewMediaObject stores an upload for the blog until the next saved post
// picks it up, and returns its download URL.
func (f *Facade) NewMediaObject(ctx context.Context, blogID string, creds Credentials, obj MediaObject) (*MediaObjectInfo, error) {
	user, err := f.Authenticate(ctx, creds)
	if err != nil {
		return nil, err
	}
	blog, err := f.blog(ctx, blogID)
	if err != nil {
		return nil, err
	}
	if err := f.requirePermission(ctx, user, blog, models.PermissionModify, false); err != nil {
		return nil, err
	}
	if err := obj.Validate(); err != nil {
		return nil, &Fault{Op: "new media object", Err: err}
	}
	if f.opts.MaxUploadBytes > 0 && int64(len(obj.Bits)) > f.opts.MaxUploadBytes {
		return nil, &Fault{Op: "new media object", Err: fmt.Errorf("media object exceeds %d bytes", f.opts.MaxUploadBytes)}
	}

	info := f.inspector.Inspect(obj.Name, obj.Type, obj.Bits)
	token, err := f.uploads.Token(ctx, blog.ID)
	if err != nil {
		return nil, wrapFault("new media object", err)
	}
	att := &models.Attachment{
		Name:         info.Name,
		Extension:    info.Extension,
		MimeType:     info.MimeType,
		Width:        info.Width,
		Height:       info.Height,
		LastModified: f.now(),
	}
	if err := f.attachments.AddTemporary(ctx, token, att, bytes.NewReader(obj.Bits)); err != nil {
		return nil, wrapFault("new media object", err)
	}
	f.logger.Info("media object uploaded", "guid", att.GUID, "name", att.Name, "size_bytes", att.SizeBytes, "blog_id", blog.ID, "user", user.Username)
	return &MediaObjectInfo{URL: f.links.AttachmentURL(att.GUID)}, nil
}

// GetUsersBlogs lists the caller's blogs, or every blog for a global administrator.
func (f *Facade) GetUsersBlogs(ctx context.Context, creds Credentials) ([]BlogInfo, error) {
	user, err := f.Authenticate(ctx, creds)
	if err != nil {
		return nil, err
	}
	ownerID := user.ID
	if user.IsGlobalAdmin {
		ownerID = 0
	}
	blogs, err := f.docs.ListBlogs(ctx, ownerID)
	if err != nil {
		return nil, wrapFault("get users blogs", err)
	}
	out := make([]BlogInfo, 0, len(blogs))
	for i := range blogs {
		out = append(out, BlogInfo{
			BlogID:   formatID(blogs[i].ID),
			URL:      f.links.DocumentURL(&blogs[i]),
			BlogName: fmt.Sprintf("%s (%s)", blogs[i].Name, blogs[i].Culture),
		})
	}
	return out, nil
}

// GetUserInfo returns the caller's profile.
func (f *Facade) GetUserInfo(ctx context.Context, creds Credentials) (*UserInfo, error) {
	user, err := f.Authenticate(ctx, creds)
	if err != nil {
		return nil, err
	}
	return &UserInfo{
		UserID:    formatID(user.ID),
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Nickname:  user.Nickname,
		Email:     user.Email,
		URL:       user.URL,
	}, nil
}
