package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"weblogd/internal/weblog"
	"weblogd/internal/xmlrpc"
)

func TestHTTPTimeoutFromEnv(t *testing.T) {
	t.Run("default", func(t *testing.T) {
		t.Setenv(httpTimeoutEnvKey, "")
		if got := httpTimeoutFromEnv(); got != defaultHTTPTimeout {
			t.Fatalf("expected default timeout %v, got %v", defaultHTTPTimeout, got)
		}
	})

	t.Run("duration format", func(t *testing.T) {
		t.Setenv(httpTimeoutEnvKey, "45s")
		if got := httpTimeoutFromEnv(); got != 45*time.Second {
			t.Fatalf("expected 45s timeout, got %v", got)
		}
	})

	t.Run("integer seconds", func(t *testing.T) {
		t.Setenv(httpTimeoutEnvKey, "25")
		if got := httpTimeoutFromEnv(); got != 25*time.Second {
			t.Fatalf("expected 25s timeout, got %v", got)
		}
	})

	t.Run("invalid falls back", func(t *testing.T) {
		t.Setenv(httpTimeoutEnvKey, "invalid")
		if got := httpTimeoutFromEnv(); got != defaultHTTPTimeout {
			t.Fatalf("expected default timeout %v, got %v", defaultHTTPTimeout, got)
		}
	})
}

func TestNewClientReadsCredentialsFromEnv(t *testing.T) {
	t.Setenv(usernameEnvKey, " alice ")
	t.Setenv(passwordEnvKey, "secret")
	c := NewClient("http://127.0.0.1:7380/")
	if c.baseURL != "http://127.0.0.1:7380" {
		t.Fatalf("unexpected base url %s", c.baseURL)
	}
	if c.Username() != "alice" || c.password != "secret" {
		t.Fatalf("unexpected credentials %s/%s", c.username, c.password)
	}
	c.WithCredentials("bob", "pw")
	if c.Username() != "bob" {
		t.Fatalf("expected override, got %s", c.Username())
	}
}

// rpcServer answers XML-RPC calls with handle and records the last call.
func rpcServer(t *testing.T, handle func(call *xmlrpc.MethodCall) (any, *xmlrpc.Fault)) (*httptest.Server, *xmlrpc.MethodCall) {
	t.Helper()
	last := &xmlrpc.MethodCall{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != rpcPath || r.Method != http.MethodPost {
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(ErrorResponse{Error: "no route", Code: "not_found", ErrorCode: 2003})
			return
		}
		call, err := xmlrpc.DecodeCall(r.Body)
		if err != nil {
			t.Errorf("decode call: %v", err)
			return
		}
		*last = *call
		w.Header().Set("Content-Type", "text/xml")
		result, fault := handle(call)
		if fault != nil {
			_ = xmlrpc.EncodeFault(w, fault.Code, fault.Message)
			return
		}
		_ = xmlrpc.EncodeResponse(w, result)
	}))
	t.Cleanup(srv.Close)
	return srv, last
}

func TestClientCalls(t *testing.T) {
	srv, last := rpcServer(t, func(call *xmlrpc.MethodCall) (any, *xmlrpc.Fault) {
		switch call.Method {
		case "metaWeblog.newPost":
			return "17", nil
		case "metaWeblog.getRecentPosts":
			return []weblog.Post{{PostID: "17", Title: "Hello", Categories: []string{"go"}}}, nil
		case "blogger.getUsersBlogs":
			return []weblog.BlogInfo{{BlogID: "1", BlogName: "Tech (en-US)"}}, nil
		case "blogger.deletePost":
			return true, nil
		case "system.listMethods":
			return []string{"blogger.deletePost", "metaWeblog.newPost"}, nil
		}
		return nil, &xmlrpc.Fault{Code: xmlrpc.FaultMethodNotFound, Message: "unknown"}
	})
	c := NewClient(srv.URL).WithCredentials("alice", "pw")
	ctx := context.Background()

	id, err := c.NewPost(ctx, "1", weblog.Post{Title: "Hello"}, true)
	if err != nil {
		t.Fatalf("new post: %v", err)
	}
	if id != "17" {
		t.Fatalf("unexpected id %s", id)
	}
	if len(last.Params) != 5 || last.Params[1] != "alice" || last.Params[2] != "pw" || last.Params[4] != true {
		t.Fatalf("unexpected params %#v", last.Params)
	}

	posts, err := c.GetRecentPosts(ctx, "1", 10)
	if err != nil {
		t.Fatalf("recent posts: %v", err)
	}
	if len(posts) != 1 || posts[0].Title != "Hello" || posts[0].Categories[0] != "go" {
		t.Fatalf("unexpected posts %+v", posts)
	}
	if last.Params[3] != 10 {
		t.Fatalf("expected count param, got %#v", last.Params[3])
	}

	blogs, err := c.GetUsersBlogs(ctx)
	if err != nil {
		t.Fatalf("users blogs: %v", err)
	}
	if len(blogs) != 1 || blogs[0].BlogName != "Tech (en-US)" {
		t.Fatalf("unexpected blogs %+v", blogs)
	}

	ok, err := c.DeletePost(ctx, "17")
	if err != nil || !ok {
		t.Fatalf("delete post: ok=%v err=%v", ok, err)
	}
	if last.Params[1] != "17" {
		t.Fatalf("expected post id after appkey, got %#v", last.Params)
	}

	names, err := c.ListMethods(ctx)
	if err != nil {
		t.Fatalf("list methods: %v", err)
	}
	if len(names) != 2 {
		t.Fatalf("unexpected names %v", names)
	}
}

func TestClientEncodesMediaAndDates(t *testing.T) {
	srv, last := rpcServer(t, func(call *xmlrpc.MethodCall) (any, *xmlrpc.Fault) {
		switch call.Method {
		case "metaWeblog.newMediaObject":
			return weblog.MediaObjectInfo{URL: "http://blog.example.com/getfile?guid=abc"}, nil
		case "metaWeblog.editPost":
			return true, nil
		}
		return nil, &xmlrpc.Fault{Code: xmlrpc.FaultMethodNotFound, Message: "unknown"}
	})
	c := NewClient(srv.URL).WithCredentials("alice", "pw")
	ctx := context.Background()

	info, err := c.NewMediaObject(ctx, "1", weblog.MediaObject{Name: "cat.png", Type: "image/png", Bits: []byte{0x89, 'P', 'N', 'G'}})
	if err != nil {
		t.Fatalf("new media object: %v", err)
	}
	if info.URL != "http://blog.example.com/getfile?guid=abc" {
		t.Fatalf("unexpected media info %+v", info)
	}
	var sent weblog.MediaObject
	if err := xmlrpc.Unmarshal(last.Params[3], &sent); err != nil {
		t.Fatalf("decode sent media object: %v", err)
	}
	if sent.Name != "cat.png" || string(sent.Bits) != "\x89PNG" {
		t.Fatalf("expected bits sent as base64, got %+v", sent)
	}

	local := time.Date(2024, 3, 1, 10, 30, 0, 0, time.FixedZone("CET", 3600))
	if _, err := c.EditPost(ctx, "9", weblog.Post{Title: "T", DateCreated: local}, false); err != nil {
		t.Fatalf("edit post: %v", err)
	}
	var post weblog.Post
	if err := xmlrpc.Unmarshal(last.Params[3], &post); err != nil {
		t.Fatalf("decode sent post: %v", err)
	}
	if !post.DateCreated.Equal(local) {
		t.Fatalf("expected %s sent as UTC, got %s", local, post.DateCreated)
	}
}

func TestClientFaultBecomesAPIError(t *testing.T) {
	srv, _ := rpcServer(t, func(*xmlrpc.MethodCall) (any, *xmlrpc.Fault) {
		return nil, &xmlrpc.Fault{Code: 3001, Message: "User could not be verified."}
	})
	c := NewClient(srv.URL).WithCredentials("alice", "wrong")

	_, err := c.GetUserInfo(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.ErrorCode != 3001 || apiErr.Message != "User could not be verified." {
		t.Fatalf("unexpected api error %+v", apiErr)
	}
}

func TestClientHTTPError(t *testing.T) {
	srv, _ := rpcServer(t, nil)
	c := NewClient(srv.URL)

	err := c.Ping(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusNotFound || apiErr.Code != "not_found" || apiErr.ErrorCode != 2003 {
		t.Fatalf("unexpected api error %+v", apiErr)
	}
}
