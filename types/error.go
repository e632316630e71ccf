package types

import "fmt"

// ErrorCode 表示验证引擎统一的错误码.
type ErrorCode string

// 网络与远端错误码
const (
	ErrTransientNetwork ErrorCode = "TRANSIENT_NETWORK" // 超时/连接失败，可重试
	ErrPeerReset        ErrorCode = "PEER_RESET"        // 对端重置连接，可重试（退避加倍）
	ErrTransientServer  ErrorCode = "TRANSIENT_SERVER"  // 服务端临时故障（429/5xx），可重试
	ErrNotFound         ErrorCode = "NOT_FOUND"         // 资源不存在，不可重试
	ErrTerminalState    ErrorCode = "TERMINAL_STATE"    // 对象处于不可获取状态，不可重试
	ErrRetryExhausted   ErrorCode = "RETRY_EXHAUSTED"   // 重试次数耗尽，携带最后一次失败原因
)

// 输入与数据错误码
const (
	ErrInvalidInput      ErrorCode = "INVALID_INPUT"      // 输入记录缺少必填字段，加载期致命
	ErrMalformedCitation ErrorCode = "MALFORMED_CITATION" // 引用载荷格式异常，降级为零贡献
	ErrUnauthorized      ErrorCode = "UNAUTHORIZED"
	ErrInvalidRequest    ErrorCode = "INVALID_REQUEST"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Retryable  bool      `json:"retryable"`
	Cause      error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithHTTPStatus sets the HTTP status code.
func (e *Error) WithHTTPStatus(status int) *Error {
	e.HTTPStatus = status
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	if e, ok := err.(*Error); ok {
		return e.Retryable
	}
	return false
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) ErrorCode {
	if e, ok := err.(*Error); ok {
		return e.Code
	}
	return ""
}

// IsTerminal 判断错误是否为终态（不存在或不可获取），这类错误永不重试.
func IsTerminal(err error) bool {
	switch GetErrorCode(err) {
	case ErrNotFound, ErrTerminalState:
		return true
	}
	return false
}
