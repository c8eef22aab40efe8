package xerr

import "fmt"

// Error 错误码和信息，可携带底层原因
type Error struct {
	code    int32
	message string
	cause   error
}

// NewError 生成一个error
func NewError(code int32, message string) *Error {
	return &Error{
		code:    code,
		message: message,
	}
}

func (e *Error) Error() string {
	if e.cause == nil {
		return e.message
	}
	return fmt.Sprintf("%s: %v", e.message, e.cause)
}

func (e *Error) Code() int32 {
	return e.code
}

// Message 不含原因的错误信息
func (e *Error) Message() string {
	return e.message
}

// WithCause 返回携带原因的副本，原错误实例不变
func (e *Error) WithCause(cause error) *Error {
	return &Error{
		code:    e.code,
		message: e.message,
		cause:   cause,
	}
}

// Wrapf 返回携带原因并追加上下文信息的副本
func (e *Error) Wrapf(cause error, format string, args ...any) *Error {
	return &Error{
		code:    e.code,
		message: e.message + ": " + fmt.Sprintf(format, args...),
		cause:   cause,
	}
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Is 按错误码比较，使 errors.Is(err, xerr.ErrStoreOperation) 对包装后的错误成立
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.code == e.code
}
