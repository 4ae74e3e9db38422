// Package apperr 定义各层共用的错误类别
//
// repository 和 service 返回携带类别哨兵的 *Error，HTTP 层通过 errors.Is 映射状态码
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidState    = errors.New("invalid state")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrConflict        = errors.New("conflict")
)

// Error 面向客户端的业务错误，Message 直接返回给调用方
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func New(kind error, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Newf(kind error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...interface{}) *Error {
	return Newf(ErrNotFound, format, args...)
}

func InvalidState(format string, args ...interface{}) *Error {
	return Newf(ErrInvalidState, format, args...)
}

func InvalidArgument(format string, args ...interface{}) *Error {
	return Newf(ErrInvalidArgument, format, args...)
}

func Conflict(format string, args ...interface{}) *Error {
	return Newf(ErrConflict, format, args...)
}

// Message 取错误链中最外层 *Error 的消息，没有则返回 fallback
func Message(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return fallback
}
