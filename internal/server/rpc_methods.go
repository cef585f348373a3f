package server

import (
	"context"
	"fmt"
	"sort"

	"weblogd/internal/weblog"
	"weblogd/internal/xmlrpc"
)

type rpcMethod func(ctx context.Context, params []any) (any, error)

func (s *Server) rpcMethods() map[string]rpcMethod {
	return map[string]rpcMethod{
		"metaWeblog.newPost":        s.rpcNewPost,
		"metaWeblog.editPost":       s.rpcEditPost,
		"metaWeblog.getPost":        s.rpcGetPost,
		"metaWeblog.getCategories":  s.rpcGetCategories,
		"metaWeblog.getRecentPosts": s.rpcGetRecentPosts,
		"metaWeblog.newMediaObject": s.rpcNewMediaObject,
		"metaWeblog.deletePost":     s.rpcDeletePost,
		"blogger.deletePost":        s.rpcDeletePost,
		"blogger.getUsersBlogs":     s.rpcGetUsersBlogs,
		"blogger.getUserInfo":       s.rpcGetUserInfo,
		"system.listMethods":        s.rpcListMethods,
	}
}

func (s *Server) methodNames() []string {
	names := make([]string, 0, len(s.methods))
	for name := range s.methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// bind copies positional params into targets. A nil target skips its
// param, which is how the Blogger appkey is ignored.
func bind(params []any, targets ...any) error {
	if len(params) < len(targets) {
		return invalidParams(fmt.Errorf("expected %d params, got %d", len(targets), len(params)))
	}
	for i, target := range targets {
		if target == nil {
			continue
		}
		if err := xmlrpc.Unmarshal(params[i], target); err != nil {
			return invalidParams(fmt.Errorf("param %d: %w", i+1, err))
		}
	}
	return nil
}

// metaWeblog.newPost(blogid, username, password, struct, publish) returns the new post id.
func (s *Server) rpcNewPost(ctx context.Context, params []any) (any, error) {
	var (
		blogID  string
		creds   weblog.Credentials
		post    weblog.Post
		publish bool
	)
	if err := bind(params, &blogID, &creds.Username, &creds.Password, &post, &publish); err != nil {
		return nil, err
	}
	id, err := s.api.AddPost(ctx, blogID, creds, post, publish)
	if err != nil {
		return nil, err
	}
	return id, nil
}

// metaWeblog.editPost(postid, username, password, struct, publish)
func (s *Server) rpcEditPost(ctx context.Context, params []any) (any, error) {
	var (
		postID  string
		creds   weblog.Credentials
		post    weblog.Post
		publish bool
	)
	if err := bind(params, &postID, &creds.Username, &creds.Password, &post, &publish); err != nil {
		return nil, err
	}
	ok, err := s.api.UpdatePost(ctx, postID, creds, post, publish)
	if err != nil {
		return nil, err
	}
	return ok, nil
}

// metaWeblog.getPost(postid, username, password)
func (s *Server) rpcGetPost(ctx context.Context, params []any) (any, error) {
	var (
		postID string
		creds  weblog.Credentials
	)
	if err := bind(params, &postID, &creds.Username, &creds.Password); err != nil {
		return nil, err
	}
	post, err := s.api.GetPost(ctx, postID, creds)
	if err != nil {
		return nil, err
	}
	return post, nil
}

// metaWeblog.getCategories(blogid, username, password)
func (s *Server) rpcGetCategories(ctx context.Context, params []any) (any, error) {
	var (
		blogID string
		creds  weblog.Credentials
	)
	if err := bind(params, &blogID, &creds.Username, &creds.Password); err != nil {
		return nil, err
	}
	categories, err := s.api.GetCategories(ctx, blogID, creds)
	if err != nil {
		return nil, err
	}
	if categories == nil {
		categories = []weblog.CategoryInfo{}
	}
	return categories, nil
}

// metaWeblog.getRecentPosts(blogid, username, password, numberOfPosts)
func (s *Server) rpcGetRecentPosts(ctx context.Context, params []any) (any, error) {
	var (
		blogID string
		creds  weblog.Credentials
		count  int
	)
	if err := bind(params, &blogID, &creds.Username, &creds.Password, &count); err != nil {
		return nil, err
	}
	posts, err := s.api.GetRecentPosts(ctx, blogID, creds, count)
	if err != nil {
		return nil, err
	}
	if posts == nil {
		posts = []weblog.Post{}
	}
	return posts, nil
}

// metaWeblog.newMediaObject(blogid, username, password, struct{name, type, bits})
func (s *Server) rpcNewMediaObject(ctx context.Context, params []any) (any, error) {
	var (
		blogID string
		creds  weblog.Credentials
		obj    weblog.MediaObject
	)
	if err := bind(params, &blogID, &creds.Username, &creds.Password, &obj); err != nil {
		return nil, err
	}
	info, err := s.api.NewMediaObject(ctx, blogID, creds, obj)
	if err != nil {
		return nil, err
	}
	return info, nil
}

// blogger.deletePost(appkey, postid, username, password, publish)
func (s *Server) rpcDeletePost(ctx context.Context, params []any) (any, error) {
	var (
		postID string
		creds  weblog.Credentials
	)
	if err := bind(params, nil, &postID, &creds.Username, &creds.Password); err != nil {
		return nil, err
	}
	ok, err := s.api.DeletePost(ctx, postID, creds)
	if err != nil {
		return nil, err
	}
	return ok, nil
}

// blogger.getUsersBlogs(appkey, username, password)
func (s *Server) rpcGetUsersBlogs(ctx context.Context, params []any) (any, error) {
	var creds weblog.Credentials
	if err := bind(params, nil, &creds.Username, &creds.Password); err != nil {
		return nil, err
	}
	blogs, err := s.api.GetUsersBlogs(ctx, creds)
	if err != nil {
		return nil, err
	}
	if blogs == nil {
		blogs = []weblog.BlogInfo{}
	}
	return blogs, nil
}

// blogger.getUserInfo(appkey, username, password)
func (s *Server) rpcGetUserInfo(ctx context.Context, params []any) (any, error) {
	var creds weblog.Credentials
	if err := bind(params, nil, &creds.Username, &creds.Password); err != nil {
		return nil, err
	}
	info, err := s.api.GetUserInfo(ctx, creds)
	if err != nil {
		return nil, err
	}
	return info, nil
}

func (s *Server) rpcListMethods(context.Context, []any) (any, error) {
	return s.methodNames(), nil
}
