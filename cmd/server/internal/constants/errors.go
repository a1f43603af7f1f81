package constants

// API 错误码
const (
	ErrCodeInvalidRequest = "INVALID_REQUEST"
	ErrCodeInfeasible     = "SCHEDULE_INFEASIBLE"
	ErrCodeUnauthorized   = "UNAUTHORIZED"
	ErrCodeForbidden      = "FORBIDDEN"
	ErrCodeInternal       = "INTERNAL_ERROR"
)
