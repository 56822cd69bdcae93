// internal/errors/errors.go
package errors

import (
	"errors"
	"fmt"
)

// ErrorType 定义错误类型
type ErrorType string

const (
	// 通用错误类型
	ErrorTypeValidation ErrorType = "validation_error"
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeError      ErrorType = "processing_error"
	ErrorTypeConflict   ErrorType = "conflict"
	ErrorTypeTimeout    ErrorType = "timeout"

	// 分割引擎错误类型
	ErrorTypeAIFailure      ErrorType = "ai_failure"
	ErrorTypePipeline       ErrorType = "pipeline_error"
	ErrorTypeInvalidOptions ErrorType = "invalid_options"
)

// AppError 应用程序错误结构
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
	Code    string // 用户友好的错误代码
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap 实现错误链接
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError 创建新的 AppError
func NewAppError(errType ErrorType, message string, originalError error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Err:     originalError,
		Code:    generateErrorCode(errType),
	}
}

// NewValidationError 创建验证错误
func NewValidationError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeValidation, message, originalError)
}

// NewNotFoundError 创建未找到错误
func NewNotFoundError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeNotFound, message, originalError)
}

// NewProcessingError 创建处理错误
func NewProcessingError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeError, message, originalError)
}

// NewAIFailureError AI 分割失败
func NewAIFailureError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeAIFailure, message, originalError)
}

// NewPipelineError 分割管道内部异常
func NewPipelineError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypePipeline, message, originalError)
}

// NewInvalidOptionsError 约束无法满足的分割选项
func NewInvalidOptionsError(message string) *AppError {
	return NewAppError(ErrorTypeInvalidOptions, message, nil)
}

// TypeOf 返回错误链中第一个 AppError 的类型
func TypeOf(err error) (ErrorType, bool) {
	var appError *AppError
	if errors.As(err, &appError) {
		return appError.Type, true
	}
	return "", false
}

// IsValidationError 检查是否为验证错误（包括无效选项）
func IsValidationError(err error) bool {
	t, ok := TypeOf(err)
	return ok && (t == ErrorTypeValidation || t == ErrorTypeInvalidOptions)
}

// IsNotFoundError 检查是否为未找到错误
func IsNotFoundError(err error) bool {
	t, ok := TypeOf(err)
	return ok && t == ErrorTypeNotFound
}

// IsAIFailure 检查是否为 AI 分割失败
func IsAIFailure(err error) bool {
	t, ok := TypeOf(err)
	return ok && t == ErrorTypeAIFailure
}

// IsPipelineError 检查是否为管道异常
func IsPipelineError(err error) bool {
	t, ok := TypeOf(err)
	return ok && t == ErrorTypePipeline
}

// generateErrorCode 根据错误类型生成错误代码
func generateErrorCode(errType ErrorType) string {
	switch errType {
	case ErrorTypeValidation:
		return "VALIDATION_ERROR"
	case ErrorTypeNotFound:
		return "NOT_FOUND"
	case ErrorTypeError:
		return "PROCESSING_ERROR"
	case ErrorTypeConflict:
		return "CONFLICT"
	case ErrorTypeTimeout:
		return "TIMEOUT"
	case ErrorTypeAIFailure:
		return "AI_SPLIT_FAILED"
	case ErrorTypePipeline:
		return "SPLIT_PIPELINE_ERROR"
	case ErrorTypeInvalidOptions:
		return "INVALID_SPLIT_OPTIONS"
	default:
		return "UNKNOWN_ERROR"
	}
}

// CodeOf 返回错误代码，非 AppError 返回 UNKNOWN_ERROR
func CodeOf(err error) string {
	var appError *AppError
	if errors.As(err, &appError) {
		return appError.Code
	}
	return "UNKNOWN_ERROR"
}

// WrapError 包装现有错误
func WrapError(err error, message string, errType ErrorType) error {
	if err == nil {
		return nil
	}

	var appError *AppError
	if errors.As(err, &appError) {
		// 如果已经是 AppError，只更新消息
		return &AppError{
			Type:    appError.Type,
			Message: fmt.Sprintf("%s: %s", message, appError.Message),
			Err:     appError,
			Code:    appError.Code,
		}
	}

	return NewAppError(errType, message, err)
}
