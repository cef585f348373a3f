package server

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

func (s *Server) handleGetFile(w http.ResponseWriter, r *http.Request) {
	if s.files == nil {
		s.writeErrorReq(w, r, http.StatusNotFound, notFoundCode(errors.New("attachments are not served"), ErrCodeAttachmentNotFound))
		return
	}

	raw := strings.TrimSpace(r.URL.Query().Get("guid"))
	guid, err := uuid.Parse(raw)
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, badRequestCode(fmt.Errorf("invalid guid %q", raw), ErrCodeInvalidID))
		return
	}

	att, content, err := s.files.OpenAttachment(r.Context(), guid.String())
	if err != nil {
		s.writeErrorReq(w, r, http.StatusInternalServerError, internalError(err))
		return
	}
	if att == nil {
		s.writeErrorReq(w, r, http.StatusNotFound, notFoundCode(fmt.Errorf("attachment %s not found", guid), ErrCodeAttachmentNotFound))
		return
	}
	defer content.Close()

	contentType := att.MimeType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	filename := att.Name
	if att.Extension != "" && !strings.HasSuffix(strings.ToLower(filename), strings.ToLower(att.Extension)) {
		filename += att.Extension
	}

	header := w.Header()
	header.Set("Content-Type", contentType)
	if att.SizeBytes > 0 {
		header.Set("Content-Length", strconv.FormatInt(att.SizeBytes, 10))
	}
	if disposition := mime.FormatMediaType("inline", map[string]string{"filename": filename}); disposition != "" {
		header.Set("Content-Disposition", disposition)
	}
	if !att.LastModified.IsZero() {
		header.Set("Last-Modified", att.LastModified.UTC().Format(http.TimeFormat))
	}
	header.Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)

	if r.Method == http.MethodHead {
		return
	}
	if _, err := io.Copy(w, content); err != nil {
		s.log().Warn("attachment download interrupted", "guid", att.GUID, "error", err)
	}
}
