package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppErrorCodes(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		code string
	}{
		{"验证错误", NewValidationError("bad", nil), "VALIDATION_ERROR"},
		{"AI失败", NewAIFailureError("ai", errors.New("boom")), "AI_SPLIT_FAILED"},
		{"管道异常", NewPipelineError("pipe", nil), "SPLIT_PIPELINE_ERROR"},
		{"无效选项", NewInvalidOptionsError("min > max"), "INVALID_SPLIT_OPTIONS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.code, CodeOf(tt.err))
		})
	}
}

func TestIsHelpersFollowWrapChain(t *testing.T) {
	base := NewAIFailureError("AI 分割失败", errors.New("timeout"))
	wrapped := fmt.Errorf("split story: %w", base)

	assert.True(t, IsAIFailure(wrapped))
	assert.False(t, IsPipelineError(wrapped))
	assert.True(t, IsValidationError(NewInvalidOptionsError("target <= 0")))
	assert.Equal(t, "UNKNOWN_ERROR", CodeOf(errors.New("plain")))
}

func TestWrapErrorKeepsType(t *testing.T) {
	assert.Nil(t, WrapError(nil, "ignored", ErrorTypeError))

	err := WrapError(NewNotFoundError("剧本不存在", nil), "加载剧本", ErrorTypeError)
	assert.True(t, IsNotFoundError(err))
	assert.Equal(t, "加载剧本: 剧本不存在", err.Error())

	plain := WrapError(errors.New("disk full"), "保存失败", ErrorTypeError)
	typ, ok := TypeOf(plain)
	assert.True(t, ok)
	assert.Equal(t, ErrorTypeError, typ)
}
