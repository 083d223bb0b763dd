// 包 validate：导入类操作共用的校验错误类型
package validate

import (
	"errors"
	"fmt"
)

// ErrValidation：所有校验失败的哨兵错误，调用方以 errors.Is 判定
var ErrValidation = errors.New("validation error")

// Error：携带出错字段与原因的校验错误
// 约束：Field 为空表示顶层结构错误
type Error struct {
	Field  string
	Reason string
	Err    error
}

func (e *Error) Error() string {
	msg := "validation error"
	if e.Field != "" {
		msg += " in " + e.Field
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Is(target error) bool { return target == ErrValidation }

func (e *Error) Unwrap() error { return e.Err }

// New：构造校验错误
func New(field, reason string, err error) *Error {
	return &Error{Field: field, Reason: reason, Err: err}
}

// Newf：按格式构造原因文本
func Newf(field, format string, args ...any) *Error {
	return &Error{Field: field, Reason: fmt.Sprintf(format, args...)}
}
