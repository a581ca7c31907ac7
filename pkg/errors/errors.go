// Package errors 提供统一的错误定义
package errors

import (
	"fmt"
	"net/http"
)

// ErrorCode 错误码类型
type ErrorCode string

// 预定义错误码
const (
	// 通用错误 (1xxx)
	CodeSuccess            ErrorCode = "0"
	CodeUnknown            ErrorCode = "1000"
	CodeInvalidParam       ErrorCode = "1001"
	CodeNotFound           ErrorCode = "1002"
	CodeConflict           ErrorCode = "1003"
	CodeInternalError      ErrorCode = "1004"
	CodeServiceUnavailable ErrorCode = "1005"

	// 资源错误 (3xxx)
	CodeTimelineNotFound ErrorCode = "3001"
	CodeArcNotFound      ErrorCode = "3002"
	CodeEpisodeNotFound  ErrorCode = "3003"
	CodeChapterNotFound  ErrorCode = "3004"
	CodeEntityNotFound   ErrorCode = "3005"

	// 业务错误 (4xxx)
	CodeIndexFailed       ErrorCode = "4001"
	CodeSearchFailed      ErrorCode = "4002"
	CodeConsistencyFailed ErrorCode = "4003"
	CodeGraphFailed       ErrorCode = "4004"
	CodeEmbeddingFailed   ErrorCode = "4005"

	// 外部服务错误 (5xxx)
	CodeDatabaseError          ErrorCode = "5001"
	CodeCacheError             ErrorCode = "5002"
	CodeEmbeddingProviderError ErrorCode = "5003"
)

// AppError 应用错误
type AppError struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	Detail     string    `json:"detail,omitempty"`
	HTTPStatus int       `json:"-"`
	Err        error     `json:"-"`
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap 返回底层错误
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail 添加详细信息
func (e *AppError) WithDetail(detail string) *AppError {
	e.Detail = detail
	return e
}

// WithError 添加底层错误
func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

// New 创建新的应用错误
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

// Wrap 包装错误
func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Err:        err,
	}
}

// codeToHTTPStatus 错误码转 HTTP 状态码
func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case CodeSuccess:
		return http.StatusOK
	case CodeInvalidParam:
		return http.StatusBadRequest
	case CodeNotFound, CodeTimelineNotFound, CodeArcNotFound, CodeEpisodeNotFound,
		CodeChapterNotFound, CodeEntityNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeServiceUnavailable, CodeEmbeddingProviderError:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// 预定义错误
var (
	ErrInvalidParam       = New(CodeInvalidParam, "invalid parameter")
	ErrNotFound           = New(CodeNotFound, "resource not found")
	ErrConflict           = New(CodeConflict, "resource conflict")
	ErrInternalError      = New(CodeInternalError, "internal server error")
	ErrServiceUnavailable = New(CodeServiceUnavailable, "service unavailable")

	ErrTimelineNotFound = New(CodeTimelineNotFound, "timeline not found")
	ErrArcNotFound      = New(CodeArcNotFound, "arc not found")
	ErrEpisodeNotFound  = New(CodeEpisodeNotFound, "episode not found")
	ErrChapterNotFound  = New(CodeChapterNotFound, "chapter not found")
	ErrEntityNotFound   = New(CodeEntityNotFound, "entity not found")

	ErrIndexFailed     = New(CodeIndexFailed, "index operation failed")
	ErrSearchFailed    = New(CodeSearchFailed, "search failed")
	ErrEmbeddingFailed = New(CodeEmbeddingFailed, "embedding failed")
)

// IsAppError 检查是否为 AppError
func IsAppError(err error) bool {
	_, ok := err.(*AppError)
	return ok
}

// AsAppError 将错误转换为 AppError
func AsAppError(err error) *AppError {
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	return Wrap(err, CodeUnknown, "unknown error")
}
