// internal/templates/errors.go
// 模板錯誤定義

package templates

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMissingVariable = errors.New("missing template variable")
	ErrUnknownTemplate = errors.New("unknown template")
)

// MissingVariableError 內容片段引用了變數表中不存在的佔位符
type MissingVariableError struct {
	Template ID
	Names    []string
}

func (e *MissingVariableError) Error() string {
	return fmt.Sprintf("template %q: missing variables: %s", e.Template, strings.Join(e.Names, ", "))
}

func (e *MissingVariableError) Unwrap() error {
	return ErrMissingVariable
}

// UnknownTemplateError 模板 ID 不存在
type UnknownTemplateError struct {
	ID ID
}

func (e *UnknownTemplateError) Error() string {
	return fmt.Sprintf("unknown template: %q", e.ID)
}

func (e *UnknownTemplateError) Unwrap() error {
	return ErrUnknownTemplate
}
