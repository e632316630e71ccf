package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"syscall"

	"github.com/BaSui01/ragcheck/types"
)

// mapHTTPError 将 HTTP 状态码映射为带重试分类的 types.Error.
// 可重试的服务端临时故障集合是有界的：429 与常见 5xx 网关类状态.
func mapHTTPError(status int, msg string) *types.Error {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return &types.Error{
			Code:       types.ErrUnauthorized,
			Message:    msg,
			HTTPStatus: status,
		}
	case http.StatusNotFound:
		return &types.Error{
			Code:       types.ErrNotFound,
			Message:    msg,
			HTTPStatus: status,
		}
	case http.StatusGone, http.StatusLocked, http.StatusConflict:
		// 资源存在过但当前不可获取（已删除/仍在解析等）
		return &types.Error{
			Code:       types.ErrTerminalState,
			Message:    msg,
			HTTPStatus: status,
		}
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return &types.Error{
			Code:       types.ErrTransientServer,
			Message:    msg,
			HTTPStatus: status,
			Retryable:  true,
		}
	case http.StatusBadRequest:
		return &types.Error{
			Code:       types.ErrInvalidRequest,
			Message:    msg,
			HTTPStatus: status,
		}
	default:
		return &types.Error{
			Code:       types.ErrTransientServer,
			Message:    msg,
			HTTPStatus: status,
			Retryable:  status >= 500,
		}
	}
}

// mapTransportError 将传输层错误映射为 types.Error.
// 对端重置单独分类（PEER_RESET），重试包装器会把它的退避时间加倍.
func mapTransportError(err error) *types.Error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return types.NewError(types.ErrTransientNetwork, "request cancelled or deadline exceeded").
			WithCause(err)
	}
	if errors.Is(err, syscall.ECONNRESET) {
		return types.NewError(types.ErrPeerReset, "connection reset by peer").
			WithCause(err).WithRetryable(true)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return types.NewError(types.ErrTransientNetwork, "request timed out").
			WithCause(err).WithRetryable(true)
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return types.NewError(types.ErrTransientNetwork, fmt.Sprintf("network error: %s", opErr.Op)).
			WithCause(err).WithRetryable(true)
	}

	return types.NewError(types.ErrTransientNetwork, "transport error").
		WithCause(err).WithRetryable(true)
}

// readErrorMessage 读取响应体中的错误消息.
// 尝试解析 JSON 错误响应，失败则回退到原始文本.
func readErrorMessage(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil {
		return "failed to read error response"
	}

	var errResp struct {
		Detail string `json:"detail"`
		Error  struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &errResp); err == nil {
		if errResp.Detail != "" {
			return errResp.Detail
		}
		if errResp.Error.Message != "" {
			return errResp.Error.Message
		}
	}
	return string(data)
}
