package main

import (
	"context"
	"errors"
	"net"

	"weblogd/internal/api"
	"weblogd/internal/server"
	"weblogd/internal/xmlrpc"
)

func formatCLIError(err error) []string {
	if err == nil {
		return nil
	}

	lines := []string{err.Error()}

	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode {
		case server.ErrCodeUnauthorized:
			lines = append(lines, "hint: verify WEBLOGD_USERNAME and WEBLOGD_PASSWORD; repeated failures block the address for a while.")
		case server.ErrCodeForbidden:
			lines = append(lines, "hint: the account lacks permission; grant it with: weblogd blog grant")
		case server.ErrCodeResourceExhausted:
			lines = append(lines, "hint: the server is busy; retry shortly.")
		case server.ErrCodeRequestTooLarge:
			lines = append(lines, "hint: raise attachments.max_upload_bytes or send a smaller file.")
		case xmlrpc.FaultMethodNotFound:
			lines = append(lines, "hint: verify WEBLOGD_API_URL points to a weblogd server.")
		}
		if apiErr.Code == "" && apiErr.ErrorCode == 0 {
			lines = append(lines, "hint: verify WEBLOGD_API_URL points to a weblogd server.")
		}
		if apiErr.Status >= 500 || apiErr.ErrorCode == server.ErrCodeInternal {
			lines = append(lines, "hint: server returned an internal error; check server logs for details.")
		}
		return uniqueLines(lines)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		lines = append(lines, "hint: request timed out; check server health or increase WEBLOGD_HTTP_TIMEOUT.")
		return uniqueLines(lines)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		lines = append(lines,
			"hint: ensure a weblogd server is running at WEBLOGD_API_URL.",
			"hint: start a local server manually with: weblogd srv",
			"hint: you can increase WEBLOGD_HTTP_TIMEOUT for slower environments.",
		)
		return uniqueLines(lines)
	}

	return uniqueLines(lines)
}

func uniqueLines(lines []string) []string {
	seen := make(map[string]struct{}, len(lines))
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line == "" {
			continue
		}
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		out = append(out, line)
	}
	return out
}
