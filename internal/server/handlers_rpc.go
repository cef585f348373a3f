package server

import (
	"bytes"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"weblogd/internal/models"
	"weblogd/internal/weblog"
	"weblogd/internal/xmlrpc"
)

var _ weblog.LoginThrottle = (*LoginThrottle)(nil)

// rpcError is a fault raised by the transport before a call reaches the API.
type rpcError struct {
	code int
	err  error
}

func (e *rpcError) Error() string {
	if e.err == nil {
		return ""
	}
	return e.err.Error()
}

func (e *rpcError) Unwrap() error {
	return e.err
}

func invalidParams(err error) error {
	return &rpcError{code: xmlrpc.FaultInvalidParams, err: err}
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	trace, _ := rpcTraceFromContext(r.Context())
	if !s.acquireLimiter(s.rpcLimiter) {
		s.writeFault(w, r, trace, &rpcError{code: ErrCodeResourceExhausted, err: errors.New("too many concurrent requests")})
		return
	}
	defer s.releaseLimiter(s.rpcLimiter)

	r.Body = http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
	call, err := xmlrpc.DecodeCall(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			s.writeFault(w, r, trace, &rpcError{code: ErrCodeRequestTooLarge, err: fmt.Errorf("request body exceeds %d bytes", maxErr.Limit)})
			return
		}
		s.writeFault(w, r, trace, &rpcError{code: xmlrpc.FaultParse, err: fmt.Errorf("parse error: %w", err)})
		return
	}
	if trace != nil {
		trace.method = call.Method
	}

	method, ok := s.methods[call.Method]
	if !ok {
		s.writeFault(w, r, trace, &rpcError{code: xmlrpc.FaultMethodNotFound, err: fmt.Errorf("method %q is not supported", call.Method)})
		return
	}

	ctx := weblog.WithRemoteIP(r.Context(), s.clientIP(r))
	result, err := method(ctx, call.Params)
	if err != nil {
		s.writeFault(w, r, trace, err)
		return
	}

	var buf bytes.Buffer
	if err := xmlrpc.EncodeResponse(&buf, result); err != nil {
		s.writeFault(w, r, trace, fmt.Errorf("encode %s response: %w", call.Method, err))
		return
	}
	writeXML(w, buf.Bytes())
}

// writeFault reports err as an XML-RPC fault. Faults travel with HTTP 200.
func (s *Server) writeFault(w http.ResponseWriter, r *http.Request, trace *rpcTrace, err error) {
	code, message := faultFor(err)
	if trace != nil {
		trace.faultCode = code
	}

	fields := []any{"fault_code", code, "error", err, "path", r.URL.Path, "remote_addr", r.RemoteAddr}
	if trace != nil && trace.method != "" {
		fields = append(fields, "rpc_method", trace.method)
	}
	switch {
	case code >= ErrCodeInternal:
		s.log().Error("rpc fault", fields...)
	case code >= ErrCodeUnauthorized:
		s.log().Warn("rpc fault", fields...)
	default:
		s.log().Debug("rpc fault", fields...)
	}

	var buf bytes.Buffer
	if err := xmlrpc.EncodeFault(&buf, code, message); err != nil {
		s.log().Error("write fault response", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeXML(w, buf.Bytes())
}

func writeXML(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// faultFor maps an error to a fault code and the message shown to the client.
// Unclassified errors are reported without their text.
func faultFor(err error) (int, string) {
	var (
		rpcErr     *rpcError
		authErr    *weblog.AuthError
		permErr    *weblog.PermissionError
		notFound   *weblog.NotFoundError
		checkedOut *weblog.CheckedOutError
		loop       *weblog.WorkflowLoopError
		noPath     *weblog.WorkflowPathNotFoundError
		fault      *weblog.Fault
	)
	switch {
	case errors.As(err, &rpcErr):
		return rpcErr.code, rpcErr.Error()
	case errors.As(err, &authErr):
		return ErrCodeUnauthorized, authErr.Error()
	case errors.As(err, &permErr):
		return ErrCodeForbidden, permErr.Error()
	case errors.As(err, &notFound):
		if notFound.Kind == models.DocumentBlog {
			return ErrCodeBlogNotFound, notFound.Error()
		}
		return ErrCodePostNotFound, notFound.Error()
	case errors.As(err, &checkedOut):
		return ErrCodeCheckedOut, checkedOut.Error()
	case errors.As(err, &loop):
		return ErrCodeWorkflowLoop, loop.Error()
	case errors.As(err, &noPath):
		return ErrCodeWorkflowPathMissing, noPath.Error()
	case errors.As(err, &fault):
		return ErrCodePlatformFailure, fault.Error()
	default:
		return ErrCodeInternal, "internal error"
	}
}

// clientIP is the address bans and sign-in throttling apply to.
func (s *Server) clientIP(r *http.Request) string {
	if s.trustProxy {
		if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
			first, _, _ := strings.Cut(forwarded, ",")
			if ip := strings.TrimSpace(first); net.ParseIP(ip) != nil {
				return ip
			}
		}
	}
	return requestClientIP(r)
}

func requestClientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	remote := strings.TrimSpace(r.RemoteAddr)
	if remote == "" {
		return ""
	}
	host, _, err := net.SplitHostPort(remote)
	if err == nil {
		return strings.TrimSpace(host)
	}
	return remote
}
