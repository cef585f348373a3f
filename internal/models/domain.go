package models

import (
	"fmt"
	"strings"
)

// DocumentType defines the node kinds of the content tree.
type DocumentType string

const (
	DocumentBlog      DocumentType = "blog"
	DocumentBlogMonth DocumentType = "blog_month"
	DocumentBlogPost  DocumentType = "blog_post"
)

// Permission names an action checked against a document ACL.
type Permission string

const (
	PermissionCreate Permission = "create"
	PermissionRead   Permission = "read"
	PermissionModify Permission = "modify"
	PermissionDelete Permission = "delete"
)

// BanCategory selects which part of the site a ban rule closes.
type BanCategory string

const (
	BanComplete       BanCategory = "complete"
	BanLogin          BanCategory = "login"
	BanAllNonComplete BanCategory = "all_non_complete"
)

// StepType classifies workflow steps.
type StepType string

const (
	StepEdit      StepType = "edit"
	StepStandard  StepType = "standard"
	StepPublished StepType = "published"
)

// EventType is the severity of an audit event.
type EventType string

const (
	EventInformation EventType = "I"
	EventWarning     EventType = "W"
	EventError       EventType = "E"
)

var validDocumentTypes = map[DocumentType]struct{}{
	DocumentBlog:      {},
	DocumentBlogMonth: {},
	DocumentBlogPost:  {},
}

var validPermissions = map[Permission]struct{}{
	PermissionCreate: {},
	PermissionRead:   {},
	PermissionModify: {},
	PermissionDelete: {},
}

var validBanCategories = map[BanCategory]struct{}{
	BanComplete:       {},
	BanLogin:          {},
	BanAllNonComplete: {},
}

var validStepTypes = map[StepType]struct{}{
	StepEdit:      {},
	StepStandard:  {},
	StepPublished: {},
}

// AllBanCategories lists every ban category in evaluation order.
func AllBanCategories() []BanCategory {
	return []BanCategory{BanComplete, BanLogin, BanAllNonComplete}
}

func ParseDocumentType(raw string) (DocumentType, error) {
	value := DocumentType(strings.ToLower(strings.TrimSpace(raw)))
	if value == "" {
		return "", fmt.Errorf("document type is required")
	}
	if _, ok := validDocumentTypes[value]; !ok {
		return "", fmt.Errorf("invalid document type: %s", value)
	}
	return value, nil
}

func ParsePermission(raw string) (Permission, error) {
	value := Permission(strings.ToLower(strings.TrimSpace(raw)))
	if value == "" {
		return "", fmt.Errorf("permission is required")
	}
	if _, ok := validPermissions[value]; !ok {
		return "", fmt.Errorf("invalid permission: %s", value)
	}
	return value, nil
}

func ParseBanCategory(raw string) (BanCategory, error) {
	value := BanCategory(strings.ToLower(strings.TrimSpace(raw)))
	if value == "" {
		return "", fmt.Errorf("ban category is required")
	}
	if _, ok := validBanCategories[value]; !ok {
		return "", fmt.Errorf("invalid ban category: %s", value)
	}
	return value, nil
}

func ParseStepType(raw string) (StepType, error) {
	value := StepType(strings.ToLower(strings.TrimSpace(raw)))
	if value == "" {
		return StepStandard, nil
	}
	if _, ok := validStepTypes[value]; !ok {
		return "", fmt.Errorf("invalid step type: %s", value)
	}
	return value, nil
}
