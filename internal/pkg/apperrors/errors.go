// Package apperrors provides the error taxonomy used across the zabbid core.
//
// Errors are kinds, not types: every failure that crosses a package boundary
// is an *AppError carrying a Kind, a machine-readable Code, a human message,
// and the HTTP status the API layer should translate it to. The taxonomy
// has nine categories:
// ValidationError, DomainRuleViolation, LifecycleViolation,
// AuthenticationFailed, AuthorizationFailed, ResourceNotFound,
// InvalidCsvFormat, PersistenceError, Internal.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the error taxonomy category.
type Kind string

const (
	KindValidation      Kind = "ValidationError"
	KindDomainRule       Kind = "DomainRuleViolation"
	KindLifecycle        Kind = "LifecycleViolation"
	KindAuthentication   Kind = "AuthenticationFailed"
	KindAuthorization    Kind = "AuthorizationFailed"
	KindNotFound         Kind = "ResourceNotFound"
	KindInvalidCsv       Kind = "InvalidCsvFormat"
	KindPersistence      Kind = "PersistenceError"
	KindInternal         Kind = "Internal"
)

var kindStatus = map[Kind]int{
	KindValidation:     http.StatusBadRequest,
	KindDomainRule:      http.StatusConflict,
	KindLifecycle:       http.StatusConflict,
	KindAuthentication:  http.StatusUnauthorized,
	KindAuthorization:   http.StatusForbidden,
	KindNotFound:        http.StatusNotFound,
	KindInvalidCsv:      http.StatusBadRequest,
	KindPersistence:     http.StatusInternalServerError,
	KindInternal:        http.StatusInternalServerError,
}

// Sentinel errors usable with errors.Is for coarse-grained checks.
var (
	ErrNotFound       = errors.New("not found")
	ErrAlreadyExists  = errors.New("already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
)

// AppError is a structured application error.
type AppError struct {
	Kind    Kind   `json:"kind"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Rule    string `json:"rule,omitempty"`
	Field   string `json:"field,omitempty"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s[%s]: %s: %v", e.Kind, e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s[%s]: %s", e.Kind, e.Code, e.Message)
}

// Unwrap supports errors.Is/As.
func (e *AppError) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the status code the API layer should respond with.
func (e *AppError) HTTPStatus() int {
	if status, ok := kindStatus[e.Kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// New creates an AppError of the given kind.
func New(kind Kind, code, message string) *AppError {
	return &AppError{Kind: kind, Code: code, Message: message}
}

// Wrap wraps an underlying error into an AppError of the given kind.
func Wrap(err error, kind Kind, code, message string) *AppError {
	return &AppError{Kind: kind, Code: code, Message: message, Err: err}
}

// Validation creates a ValidationError, optionally naming the offending field.
func Validation(code, message, field string) *AppError {
	return &AppError{Kind: KindValidation, Code: code, Message: message, Field: field}
}

// DomainRule creates a DomainRuleViolation naming the violated rule.
func DomainRule(rule, message string) *AppError {
	return &AppError{Kind: KindDomainRule, Code: "DOMAIN_RULE_VIOLATION", Message: message, Rule: rule}
}

// Lifecycle creates a LifecycleViolation naming the rejected command/rule.
func Lifecycle(rule, message string) *AppError {
	return &AppError{Kind: KindLifecycle, Code: "LIFECYCLE_VIOLATION", Message: message, Rule: rule}
}

// AuthenticationFailed creates an AuthenticationFailed error.
func AuthenticationFailed(message string) *AppError {
	return &AppError{Kind: KindAuthentication, Code: "AUTHENTICATION_FAILED", Message: message}
}

// AuthorizationFailed creates an AuthorizationFailed error.
func AuthorizationFailed(message string) *AppError {
	return &AppError{Kind: KindAuthorization, Code: "AUTHORIZATION_FAILED", Message: message}
}

// NotFound creates a ResourceNotFound error naming the resource kind and id.
func NotFound(resource, id string) *AppError {
	return &AppError{
		Kind:    KindNotFound,
		Code:    "RESOURCE_NOT_FOUND",
		Message: fmt.Sprintf("%s %q not found", resource, id),
	}
}

// InvalidCSV creates a header-level InvalidCsvFormat error.
func InvalidCSV(message string) *AppError {
	return &AppError{Kind: KindInvalidCsv, Code: "INVALID_CSV_FORMAT", Message: message}
}

// Persistence wraps a database-level failure. Callers should log the
// underlying error and never leak it to the user; only Message is safe to
// surface externally.
func Persistence(err error) *AppError {
	return &AppError{
		Kind:    KindPersistence,
		Code:    "PERSISTENCE_ERROR",
		Message: "an internal error occurred",
		Err:     err,
	}
}

// Internal wraps a detected runtime invariant violation.
func Internal(message string, err error) *AppError {
	return &AppError{Kind: KindInternal, Code: "INTERNAL", Message: message, Err: err}
}

// As extracts an *AppError from err, if present.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsKind reports whether err is an *AppError of the given kind.
func IsKind(err error, kind Kind) bool {
	appErr, ok := As(err)
	return ok && appErr.Kind == kind
}
