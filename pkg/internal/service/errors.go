package service

import (
	"errors"
	"fmt"
)

// ErrValidation 请求内容不合法.
var ErrValidation = errors.New("validation failed")

// ValidationError 指明出错的字段.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}

	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Is 让 errors.Is(err, ErrValidation) 成立.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
