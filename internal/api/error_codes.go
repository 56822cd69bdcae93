// internal/api/error_codes.go
package api

import (
	"net/http"

	apperrors "github.com/Corphon/SceneSplitter/internal/errors"
)

// API错误代码常量
const (
	// 通用错误
	ErrorBadRequest    = "BAD_REQUEST"
	ErrorNotFound      = "NOT_FOUND"
	ErrorInternalError = "INTERNAL_ERROR"
	ErrorConflict      = "CONFLICT"
	ErrorRateLimited   = "RATE_LIMIT_EXCEEDED"

	// 分割相关错误
	ErrorInvalidSplitOptions = "INVALID_SPLIT_OPTIONS"
	ErrorAISplitFailed       = "AI_SPLIT_FAILED"
	ErrorSplitPipeline       = "SPLIT_PIPELINE_ERROR"
	ErrorSplitTimeout        = "TIMEOUT"
	ErrorBatchTooLarge       = "BATCH_TOO_LARGE"

	// 剧本相关错误
	ErrorScenarioNotFound = "SCENARIO_NOT_FOUND"

	// LLM服务相关错误
	ErrorLLMConfigInvalid = "LLM_CONFIG_INVALID"
)

// statusForError 把服务层错误映射为 HTTP 状态码与错误代码
func statusForError(err error) (int, string) {
	errType, ok := apperrors.TypeOf(err)
	if !ok {
		return http.StatusInternalServerError, ErrorInternalError
	}

	switch errType {
	case apperrors.ErrorTypeValidation:
		return http.StatusBadRequest, ErrorBadRequest
	case apperrors.ErrorTypeInvalidOptions:
		return http.StatusBadRequest, ErrorInvalidSplitOptions
	case apperrors.ErrorTypeNotFound:
		return http.StatusNotFound, ErrorNotFound
	case apperrors.ErrorTypeConflict:
		return http.StatusConflict, ErrorConflict
	case apperrors.ErrorTypeTimeout:
		return http.StatusGatewayTimeout, ErrorSplitTimeout
	case apperrors.ErrorTypeAIFailure:
		return http.StatusBadGateway, ErrorAISplitFailed
	case apperrors.ErrorTypePipeline:
		return http.StatusInternalServerError, ErrorSplitPipeline
	default:
		return http.StatusInternalServerError, ErrorInternalError
	}
}
