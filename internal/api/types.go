package api

// ErrorResponse is the JSON error wrapper of the plain HTTP endpoints.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	ErrorCode int    `json:"error_code,omitempty"`
}

// HealthResponse is the response from GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// InfoResponse is the response from GET /v1/info.
type InfoResponse struct {
	SiteName             string         `json:"site_name"`
	PublicURL            string         `json:"public_url"`
	DBPath               string         `json:"db_path,omitempty"`
	SchemaVersion        int            `json:"schema_version"`
	DocumentCounts       map[string]int `json:"document_counts,omitempty"`
	TotalUsers           int            `json:"total_users"`
	TotalAttachments     int            `json:"total_attachments"`
	TemporaryAttachments int            `json:"temporary_attachments"`
	Methods              []string       `json:"methods"`
}
