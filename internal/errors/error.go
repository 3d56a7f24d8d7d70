package errors

import (
	stderrors "errors"
	"fmt"
)

// TError 是结构化错误，Code 取值见 codes.go。
type TError struct {
	Code    Code           `json:"code" yaml:"code"`
	Message string         `json:"message" yaml:"message"`
	Details map[string]any `json:"details,omitempty" yaml:"details,omitempty"`
	cause   error
}

func (e *TError) Error() string {
	if e == nil {
		return ""
	}
	if e.cause == nil {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
}

func (e *TError) Unwrap() error { return e.cause }

func New(code Code, message string, details map[string]any) *TError {
	return &TError{Code: code, Message: message, Details: details}
}

func Wrap(code Code, message string, details map[string]any, cause error) *TError {
	return &TError{Code: code, Message: message, Details: details, cause: cause}
}

func As(err error) (*TError, bool) {
	var te *TError
	if stderrors.As(err, &te) {
		return te, true
	}
	return nil, false
}

func AsOrWrap(err error) *TError {
	if te, ok := As(err); ok {
		return te
	}
	return Wrap(CodeInternal, err.Error(), nil, err)
}

// Is 判断 err 是否携带指定错误码。
func Is(err error, code Code) bool {
	te, ok := As(err)
	return ok && te.Code == code
}
