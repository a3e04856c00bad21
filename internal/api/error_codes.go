// internal/api/error_codes.go
package api

// API错误代码常量
const (
	// 通用错误
	ErrorBadRequest       = "BAD_REQUEST"
	ErrorNotFound         = "NOT_FOUND"
	ErrorInternalError    = "INTERNAL_ERROR"
	ErrorConflict         = "CONFLICT"
	ErrorValidationFailed = "VALIDATION_FAILED"

	// 故事相关错误
	ErrorStoryNotFound     = "STORY_NOT_FOUND"
	ErrorStoryDecodeFailed = "STORY_DECODE_FAILED"
	ErrorEventNotFound     = "EVENT_NOT_FOUND"
	ErrorOptionNotFound    = "OPTION_NOT_FOUND"

	// 存档相关错误
	ErrorSaveNotFound = "SAVE_NOT_FOUND"

	// 会话相关错误
	ErrorSessionNotFound = "SESSION_NOT_FOUND"
)
