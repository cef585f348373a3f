package models

import "strings"

// Workflow is an approval pipeline applied to documents matched by its scopes.
type Workflow struct {
	ID                 int64           `json:"id" yaml:"-"`
	Name               string          `json:"name" yaml:"name"`
	UseCheckInCheckOut bool            `json:"use_checkin_checkout" yaml:"use_checkin_checkout"`
	Steps              []WorkflowStep  `json:"steps" yaml:"steps"`
	Scopes             []WorkflowScope `json:"scopes" yaml:"scopes"`
}

// WorkflowStep is one state of a workflow. Steps are ordered and each
// names the step a document advances to on approval.
type WorkflowStep struct {
	ID         int64    `json:"id" yaml:"-"`
	WorkflowID int64    `json:"workflow_id" yaml:"-"`
	Name       string   `json:"name" yaml:"name"`
	Order      int      `json:"order" yaml:"-"`
	Type       StepType `json:"type" yaml:"type"`
	NextStepID int64    `json:"next_step_id,omitempty" yaml:"-"`
	Next       string   `json:"next,omitempty" yaml:"next"`
	Approvers  []string `json:"approvers,omitempty" yaml:"approvers"`
}

// IsDefault reports whether the step needs no approval permission.
func (s *WorkflowStep) IsDefault() bool {
	return s != nil && s.Type == StepEdit
}

// IsPublished reports whether documents in this step are live.
func (s *WorkflowStep) IsPublished() bool {
	return s != nil && s.Type == StepPublished
}

// WorkflowScope decides which documents a workflow applies to.
type WorkflowScope struct {
	ID           int64        `json:"id" yaml:"-"`
	WorkflowID   int64        `json:"workflow_id" yaml:"-"`
	PathPrefix   string       `json:"path_prefix" yaml:"path"`
	DocumentType DocumentType `json:"document_type,omitempty" yaml:"type"`
	Culture      string       `json:"culture,omitempty" yaml:"culture"`
}

// Matches reports whether the scope covers doc.
func (s *WorkflowScope) Matches(doc *Document) bool {
	if doc == nil {
		return false
	}
	prefix := strings.TrimRight(s.PathPrefix, "/")
	if prefix != "" && doc.AliasPath != prefix && !strings.HasPrefix(doc.AliasPath, prefix+"/") {
		return false
	}
	if s.DocumentType != "" && s.DocumentType != doc.Type {
		return false
	}
	if s.Culture != "" && !strings.EqualFold(s.Culture, doc.Culture) {
		return false
	}
	return true
}
