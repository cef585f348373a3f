package server

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"weblogd/internal/models"
	"weblogd/internal/store"
	"weblogd/internal/weblog"
)

const (
	allowRemoteEnvKey   = "WEBLOGD_ALLOW_REMOTE"
	readHeaderTimeout   = 5 * time.Second
	readTimeout         = 30 * time.Second
	writeTimeout        = 60 * time.Second
	idleTimeout         = 60 * time.Second
	rpcConcurrencyLimit = 16
	defaultMaxBodyBytes = 8 << 20 // 8 MiB
)

// BlogAPI is the call surface served over XML-RPC.
type BlogAPI interface {
	AddPost(ctx context.Context, blogID string, creds weblog.Credentials, post weblog.Post, publish bool) (string, error)
	UpdatePost(ctx context.Context, postID string, creds weblog.Credentials, post weblog.Post, publish bool) (bool, error)
	GetPost(ctx context.Context, postID string, creds weblog.Credentials) (*weblog.Post, error)
	GetCategories(ctx context.Context, blogID string, creds weblog.Credentials) ([]weblog.CategoryInfo, error)
	GetRecentPosts(ctx context.Context, blogID string, creds weblog.Credentials, count int) ([]weblog.Post, error)
	NewMediaObject(ctx context.Context, blogID string, creds weblog.Credentials, obj weblog.MediaObject) (*weblog.MediaObjectInfo, error)
	DeletePost(ctx context.Context, postID string, creds weblog.Credentials) (bool, error)
	GetUsersBlogs(ctx context.Context, creds weblog.Credentials) ([]weblog.BlogInfo, error)
	GetUserInfo(ctx context.Context, creds weblog.Credentials) (*weblog.UserInfo, error)
}

// AttachmentOpener serves attachment bytes for /getfile. A nil attachment
// means the guid is unknown.
type AttachmentOpener interface {
	OpenAttachment(ctx context.Context, guid string) (*models.Attachment, io.ReadCloser, error)
}

// InfoProvider reports platform statistics for /v1/info.
type InfoProvider interface {
	StoreInfo(ctx context.Context) (*store.StoreInfo, error)
}

// Options configures optional server behaviour.
type Options struct {
	PublicURL    string
	SiteName     string
	DBPath       string
	TrustProxy   bool
	MaxBodyBytes int64
	Files        AttachmentOpener
	Info         InfoProvider
	Logger       *slog.Logger
}

// Server wraps the HTTP handlers for the blogging API.
type Server struct {
	addr         string
	api          BlogAPI
	files        AttachmentOpener
	info         InfoProvider
	publicURL    string
	siteName     string
	dbPath       string
	trustProxy   bool
	maxBodyBytes int64
	methods      map[string]rpcMethod
	logger       *slog.Logger
	rpcLimiter   chan struct{}
}

// New creates a new server instance.
func New(addr string, api BlogAPI, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxBody := opts.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}

	s := &Server{
		addr:         addr,
		api:          api,
		files:        opts.Files,
		info:         opts.Info,
		publicURL:    strings.TrimRight(strings.TrimSpace(opts.PublicURL), "/"),
		siteName:     opts.SiteName,
		dbPath:       opts.DBPath,
		trustProxy:   opts.TrustProxy,
		maxBodyBytes: maxBody,
		logger:       logger,
		rpcLimiter:   make(chan struct{}, rpcConcurrencyLimit),
	}
	s.methods = s.rpcMethods()
	return s
}

// Handler returns the routed handler, for embedding and tests.
func (s *Server) Handler() http.Handler {
	return s.routes()
}

// ListenAndServe starts the HTTP server and shuts it down when ctx ends.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.log().Info("starting server", "addr", s.addr, "public_url", s.publicURL)
	server := &http.Server{
		Addr:              s.addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()
		s.log().Info("stopping server", "addr", s.addr)
		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

// ListenAddr converts a listen address or base URL into a host:port.
func ListenAddr(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("listen address is required")
	}
	if u, err := url.Parse(raw); err == nil && u.Host != "" {
		host := u.Hostname()
		if !isAllowedListenHost(host) {
			return "", fmt.Errorf("remote listen host %q requires %s=true", host, allowRemoteEnvKey)
		}
		return u.Host, nil
	}

	host, _, err := net.SplitHostPort(raw)
	if err == nil && !isAllowedListenHost(host) {
		return "", fmt.Errorf("remote listen host %q requires %s=true", host, allowRemoteEnvKey)
	}

	return raw, nil
}

func isAllowedListenHost(host string) bool {
	if host == "" {
		return true
	}
	if strings.EqualFold(strings.TrimSpace(os.Getenv(allowRemoteEnvKey)), "true") {
		return true
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func (s *Server) acquireLimiter(limiter chan struct{}) bool {
	if limiter == nil {
		return true
	}
	select {
	case limiter <- struct{}{}:
		return true
	default:
		return false
	}
}

func (s *Server) releaseLimiter(limiter chan struct{}) {
	if limiter == nil {
		return
	}
	select {
	case <-limiter:
	default:
	}
}

func (s *Server) log() *slog.Logger {
	if s != nil && s.logger != nil {
		return s.logger
	}
	return slog.Default()
}

// baseURL is the public site root, falling back to the request host.
func (s *Server) baseURL(r *http.Request) string {
	if s.publicURL != "" {
		return s.publicURL
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if s.trustProxy {
		if proto := strings.TrimSpace(r.Header.Get("X-Forwarded-Proto")); proto != "" {
			scheme = proto
		}
	}
	return scheme + "://" + r.Host
}
