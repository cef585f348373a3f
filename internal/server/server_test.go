package server

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"weblogd/internal/api"
	"weblogd/internal/models"
	"weblogd/internal/store"
)

func TestListenAddrRemoteGuard(t *testing.T) {
	t.Run("allows loopback", func(t *testing.T) {
		t.Setenv(allowRemoteEnvKey, "")
		addr, err := ListenAddr("http://127.0.0.1:7380")
		if err != nil {
			t.Fatalf("expected loopback to be allowed, got error: %v", err)
		}
		if addr != "127.0.0.1:7380" {
			t.Fatalf("unexpected addr: %s", addr)
		}
	})

	t.Run("accepts host and port", func(t *testing.T) {
		t.Setenv(allowRemoteEnvKey, "")
		addr, err := ListenAddr("localhost:7380")
		if err != nil {
			t.Fatalf("listen addr: %v", err)
		}
		if addr != "localhost:7380" {
			t.Fatalf("unexpected addr: %s", addr)
		}
	})

	t.Run("blocks non-loopback by default", func(t *testing.T) {
		t.Setenv(allowRemoteEnvKey, "")
		if _, err := ListenAddr("0.0.0.0:7380"); err == nil {
			t.Fatal("expected error for non-loopback listen host")
		}
	})

	t.Run("allows non-loopback when explicitly enabled", func(t *testing.T) {
		t.Setenv(allowRemoteEnvKey, "true")
		addr, err := ListenAddr("http://0.0.0.0:7380")
		if err != nil {
			t.Fatalf("expected allow-remote to permit host, got error: %v", err)
		}
		if addr != "0.0.0.0:7380" {
			t.Fatalf("unexpected addr: %s", addr)
		}
	})

	t.Run("rejects empty", func(t *testing.T) {
		if _, err := ListenAddr(" "); err == nil {
			t.Fatal("expected error for empty listen address")
		}
	})
}

type fakeInfo struct {
	info *store.StoreInfo
	err  error
}

func (f fakeInfo) StoreInfo(context.Context) (*store.StoreInfo, error) {
	return f.info, f.err
}

func TestHealthAndInfo(t *testing.T) {
	srv := New("127.0.0.1:0", &fakeAPI{}, Options{
		PublicURL: "https://blog.example.com/",
		SiteName:  "Example",
		Info: fakeInfo{info: &store.StoreInfo{
			SchemaVersion:  3,
			DocumentCounts: map[string]int{"blog": 1, "blog_post": 4},
			TotalUsers:     2,
		}},
	})
	h := srv.Handler()

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/info", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	var info api.InfoResponse
	if err := json.Unmarshal(w.Body.Bytes(), &info); err != nil {
		t.Fatalf("decode info: %v", err)
	}
	if info.SiteName != "Example" || info.PublicURL != "https://blog.example.com" {
		t.Fatalf("unexpected info: %+v", info)
	}
	if info.SchemaVersion != 3 || info.DocumentCounts["blog_post"] != 4 || info.TotalUsers != 2 {
		t.Fatalf("unexpected store info: %+v", info)
	}
	if len(info.Methods) != len(srv.methods) {
		t.Fatalf("expected %d methods, got %v", len(srv.methods), info.Methods)
	}
}

func TestInfoStoreFailureIsInternal(t *testing.T) {
	srv := New("127.0.0.1:0", &fakeAPI{}, Options{Info: fakeInfo{err: errors.New("disk on fire")}})

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/info", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	var errResp api.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &errResp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if errResp.ErrorCode != ErrCodeInternal || errResp.Error != "internal error" {
		t.Fatalf("unexpected error response: %+v", errResp)
	}
}

func TestRSD(t *testing.T) {
	srv := New("127.0.0.1:0", &fakeAPI{}, Options{SiteName: "Example"})
	h := srv.Handler()

	req := httptest.NewRequest(http.MethodGet, "/rsd.xml?blog=7", nil)
	req.Host = "blog.example.com"
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", w.Code, w.Body.String())
	}

	var doc rsdDocument
	if err := xml.Unmarshal(w.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decode rsd: %v", err)
	}
	if doc.Service.EngineName != "Example" || doc.Service.HomePageLink != "http://blog.example.com" {
		t.Fatalf("unexpected service: %+v", doc.Service)
	}
	if len(doc.Service.APIs) != 2 {
		t.Fatalf("expected 2 apis, got %+v", doc.Service.APIs)
	}
	metaWeblog := doc.Service.APIs[0]
	if metaWeblog.Name != "MetaWeblog" || !metaWeblog.Preferred || metaWeblog.BlogID != "7" || metaWeblog.APILink != "http://blog.example.com/xmlrpc" {
		t.Fatalf("unexpected metaweblog api: %+v", metaWeblog)
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/rsd.xml?blog=abc", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad blog id, got %d", w.Code)
	}
}

type fakeFiles struct {
	atts map[string]*models.Attachment
	data map[string]string
}

func (f fakeFiles) OpenAttachment(_ context.Context, guid string) (*models.Attachment, io.ReadCloser, error) {
	att, ok := f.atts[guid]
	if !ok {
		return nil, nil, nil
	}
	return att, io.NopCloser(strings.NewReader(f.data[guid])), nil
}

func TestGetFile(t *testing.T) {
	const guid = "7c9e6679-7425-40de-944b-e07fc1f90ae7"
	modified := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	files := fakeFiles{
		atts: map[string]*models.Attachment{
			guid: {GUID: guid, Name: "cat", Extension: ".png", MimeType: "image/png", SizeBytes: 5, LastModified: modified},
		},
		data: map[string]string{guid: "bytes"},
	}
	srv := New("127.0.0.1:0", &fakeAPI{}, Options{Files: files})
	h := srv.Handler()

	t.Run("serves known attachment", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/getfile?guid="+strings.ToUpper(guid), nil))
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d (%s)", w.Code, w.Body.String())
		}
		if w.Body.String() != "bytes" {
			t.Fatalf("unexpected body %q", w.Body.String())
		}
		if got := w.Header().Get("Content-Type"); got != "image/png" {
			t.Fatalf("unexpected content type %s", got)
		}
		if got := w.Header().Get("Content-Disposition"); got != "inline; filename=cat.png" {
			t.Fatalf("unexpected disposition %s", got)
		}
		if got := w.Header().Get("Last-Modified"); got != modified.Format(http.TimeFormat) {
			t.Fatalf("unexpected last modified %s", got)
		}
	})

	t.Run("unknown guid", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/getfile?guid=0f8fad5b-d9cb-469f-a165-70867728950e", nil))
		if w.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", w.Code)
		}
		var errResp api.ErrorResponse
		if err := json.Unmarshal(w.Body.Bytes(), &errResp); err != nil {
			t.Fatalf("decode error response: %v", err)
		}
		if errResp.ErrorCode != ErrCodeAttachmentNotFound {
			t.Fatalf("expected error_code %d, got %d", ErrCodeAttachmentNotFound, errResp.ErrorCode)
		}
	})

	t.Run("malformed guid", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/getfile?guid=nope", nil))
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", w.Code)
		}
	})
}

func TestRequestLoggingRecordsRPCMethod(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	srv := New("127.0.0.1:0", &fakeAPI{}, Options{Logger: logger})

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, rpcRequest(t, "system.listMethods"))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	out := logs.String()
	if !strings.Contains(out, "request complete") || !strings.Contains(out, "rpc_method=system.listMethods") {
		t.Fatalf("expected rpc method in request log, got %s", out)
	}
}
