package server

const (
	// Request (1xxx)
	ErrCodeInvalidArgument = 1000
	ErrCodeRequestTooLarge = 1002
	ErrCodeInvalidID       = 1004

	// Domain state (2xxx)
	ErrCodeBlogNotFound        = 2001
	ErrCodePostNotFound        = 2002
	ErrCodeAttachmentNotFound  = 2003
	ErrCodeCheckedOut          = 2101
	ErrCodeWorkflowLoop        = 2201
	ErrCodeWorkflowPathMissing = 2202

	// Auth & limits (3xxx)
	ErrCodeUnauthorized      = 3001
	ErrCodeForbidden         = 3002
	ErrCodeResourceExhausted = 3003

	// Internal/system (4xxx)
	ErrCodeInternal        = 4001
	ErrCodePlatformFailure = 4002
)

func defaultErrorCodeByStatus(status int) int {
	switch status {
	case 400:
		return ErrCodeInvalidArgument
	case 401:
		return ErrCodeUnauthorized
	case 403:
		return ErrCodeForbidden
	case 404:
		return ErrCodeAttachmentNotFound
	case 413:
		return ErrCodeRequestTooLarge
	case 429:
		return ErrCodeResourceExhausted
	case 500:
		return ErrCodeInternal
	default:
		return 0
	}
}
