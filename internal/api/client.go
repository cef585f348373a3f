package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kolo/xmlrpc"

	"weblogd/internal/weblog"
)

const (
	defaultHTTPTimeout = 30 * time.Second
	httpTimeoutEnvKey  = "WEBLOGD_HTTP_TIMEOUT"
	usernameEnvKey     = "WEBLOGD_USERNAME"
	passwordEnvKey     = "WEBLOGD_PASSWORD"
	rpcPath            = "/xmlrpc"
)

// Client is a MetaWeblog client for a weblogd server.
type Client struct {
	baseURL  string
	http     *http.Client
	username string
	password string
}

// NewClient creates a new API client. Credentials default to
// WEBLOGD_USERNAME and WEBLOGD_PASSWORD.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &http.Client{Timeout: httpTimeoutFromEnv()},
		username: strings.TrimSpace(os.Getenv(usernameEnvKey)),
		password: os.Getenv(passwordEnvKey),
	}
}

// WithCredentials sets the account every call is made as.
func (c *Client) WithCredentials(username, password string) *Client {
	c.username = username
	c.password = password
	return c
}

// Username returns the account calls are made as.
func (c *Client) Username() string {
	return c.username
}

// Ping checks whether the API server is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, "/health", nil)
}

// GetInfo returns server and platform statistics.
func (c *Client) GetInfo(ctx context.Context) (InfoResponse, error) {
	var resp InfoResponse
	err := c.do(ctx, "/v1/info", &resp)
	return resp, err
}

// NewPost creates a post in blogID and returns its id.
func (c *Client) NewPost(ctx context.Context, blogID string, post weblog.Post, publish bool) (string, error) {
	var id string
	err := c.call(ctx, "metaWeblog.newPost", &id, blogID, c.username, c.password, outgoingPost(post), publish)
	return id, err
}

// EditPost replaces a post's content.
func (c *Client) EditPost(ctx context.Context, postID string, post weblog.Post, publish bool) (bool, error) {
	var ok bool
	err := c.call(ctx, "metaWeblog.editPost", &ok, postID, c.username, c.password, outgoingPost(post), publish)
	return ok, err
}

// GetPost returns one post.
func (c *Client) GetPost(ctx context.Context, postID string) (weblog.Post, error) {
	var post weblog.Post
	err := c.call(ctx, "metaWeblog.getPost", &post, postID, c.username, c.password)
	return post, err
}

// GetCategories lists the categories available to posts in blogID.
func (c *Client) GetCategories(ctx context.Context, blogID string) ([]weblog.CategoryInfo, error) {
	var categories []weblog.CategoryInfo
	err := c.call(ctx, "metaWeblog.getCategories", &categories, blogID, c.username, c.password)
	return categories, err
}

// GetRecentPosts returns up to count posts, newest first.
func (c *Client) GetRecentPosts(ctx context.Context, blogID string, count int) ([]weblog.Post, error) {
	var posts []weblog.Post
	err := c.call(ctx, "metaWeblog.getRecentPosts", &posts, blogID, c.username, c.password, count)
	return posts, err
}

// NewMediaObject uploads a file to blogID and returns where it is served.
func (c *Client) NewMediaObject(ctx context.Context, blogID string, obj weblog.MediaObject) (weblog.MediaObjectInfo, error) {
	var info weblog.MediaObjectInfo
	err := c.call(ctx, "metaWeblog.newMediaObject", &info, blogID, c.username, c.password, mediaObjectParam{
		Name: obj.Name,
		Type: obj.Type,
		Bits: xmlrpc.Base64(base64.StdEncoding.EncodeToString(obj.Bits)),
	})
	return info, err
}

// DeletePost removes a post.
func (c *Client) DeletePost(ctx context.Context, postID string) (bool, error) {
	var ok bool
	err := c.call(ctx, "blogger.deletePost", &ok, "", postID, c.username, c.password, false)
	return ok, err
}

// GetUsersBlogs lists the blogs the account owns.
func (c *Client) GetUsersBlogs(ctx context.Context) ([]weblog.BlogInfo, error) {
	var blogs []weblog.BlogInfo
	err := c.call(ctx, "blogger.getUsersBlogs", &blogs, "", c.username, c.password)
	return blogs, err
}

// GetUserInfo returns the account's profile.
func (c *Client) GetUserInfo(ctx context.Context) (weblog.UserInfo, error) {
	var info weblog.UserInfo
	err := c.call(ctx, "blogger.getUserInfo", &info, "", c.username, c.password)
	return info, err
}

// ListMethods returns the method names the server supports.
func (c *Client) ListMethods(ctx context.Context) ([]string, error) {
	var names []string
	err := c.call(ctx, "system.listMethods", &names)
	return names, err
}

func (c *Client) call(ctx context.Context, method string, out any, params ...any) error {
	body, err := xmlrpc.EncodeMethodCall(method, params...)
	if err != nil {
		return fmt.Errorf("encode %s: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+rpcPath, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s response: %w", method, err)
	}
	result := xmlrpc.Response(data)
	if err := result.Err(); err != nil {
		var fault xmlrpc.FaultError
		if errors.As(err, &fault) {
			return &APIError{Status: resp.StatusCode, ErrorCode: fault.Code, Message: fault.String}
		}
		return fmt.Errorf("decode %s response: %w", method, err)
	}
	if out == nil {
		return nil
	}
	if err := result.Unmarshal(out); err != nil {
		return fmt.Errorf("decode %s result: %w", method, err)
	}
	return nil
}

// mediaObjectParam is weblog.MediaObject with its bits sent as <base64>.
type mediaObjectParam struct {
	Name string        `xmlrpc:"name"`
	Type string        `xmlrpc:"type"`
	Bits xmlrpc.Base64 `xmlrpc:"bits"`
}

// outgoingPost sends dates in UTC, the zone servers assume for
// dateCreated values without one.
func outgoingPost(post weblog.Post) weblog.Post {
	post.DateCreated = post.DateCreated.UTC()
	return post
}

func (c *Client) do(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}

	if out == nil {
		return nil
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeError(resp *http.Response) error {
	var errResp ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Error != "" {
		return &APIError{Status: resp.StatusCode, Code: errResp.Code, ErrorCode: errResp.ErrorCode, Message: errResp.Error}
	}
	return &APIError{Status: resp.StatusCode, Message: fmt.Sprintf("api error: %s", resp.Status)}
}

func httpTimeoutFromEnv() time.Duration {
	value := strings.TrimSpace(os.Getenv(httpTimeoutEnvKey))
	if value == "" {
		return defaultHTTPTimeout
	}

	if duration, err := time.ParseDuration(value); err == nil && duration > 0 {
		return duration
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}

	return defaultHTTPTimeout
}
