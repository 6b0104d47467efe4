package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"runtime"
	"strings"
)

// ErrorCode represents application-specific error codes
type ErrorCode string

const (
	// Authentication errors (1xxx)
	ErrCodeUnauthorized ErrorCode = "E1001"
	ErrCodeAccessDenied ErrorCode = "E1005"

	// Validation errors (2xxx)
	ErrCodeValidation   ErrorCode = "E2001"
	ErrCodeInvalidInput ErrorCode = "E2002"
	ErrCodeMissingField ErrorCode = "E2003"

	// Resource errors (3xxx)
	ErrCodeNotFound      ErrorCode = "E3001"
	ErrCodeAlreadyExists ErrorCode = "E3002"
	ErrCodeConflict      ErrorCode = "E3003"

	// Business logic errors (4xxx)
	ErrCodeInvalidState        ErrorCode = "E4002"
	ErrCodeEventNotOpen        ErrorCode = "E4003"
	ErrCodeCapacityExceeded    ErrorCode = "E4004"
	ErrCodeAlreadyPaid         ErrorCode = "E4005"
	ErrCodePaymentFailed       ErrorCode = "E4006"
	ErrCodePaymentNotCompleted ErrorCode = "E4007"
	ErrCodeAlreadyUsed         ErrorCode = "E4010"
	ErrCodeRateLimited         ErrorCode = "E4029"

	// External service errors (5xxx)
	ErrCodeExternalService ErrorCode = "E5001"
	ErrCodeGatewayError    ErrorCode = "E5002"
	ErrCodeEmailError      ErrorCode = "E5003"
	ErrCodeStoreError      ErrorCode = "E5004"

	// Internal errors (9xxx)
	ErrCodeInternal ErrorCode = "E9001"
	ErrCodeDatabase ErrorCode = "E9002"
	ErrCodeTimeout  ErrorCode = "E9003"
)

// Kind groups error codes into the categories callers branch on.
type Kind string

const (
	KindNotFound     Kind = "not_found"
	KindValidation   Kind = "validation"
	KindConflict     Kind = "conflict"
	KindDenied       Kind = "denied"
	KindPrecondition Kind = "precondition"
	KindExternal     Kind = "external_failure"
	KindUnauthorized Kind = "unauthorized"
	KindInternal     Kind = "internal"
)

// AppError represents an application error with context
type AppError struct {
	Code       ErrorCode              `json:"code"`
	Message    string                 `json:"message"`
	Details    string                 `json:"details,omitempty"`
	HTTPStatus int                    `json:"-"`
	Cause      error                  `json:"-"`
	Stack      string                 `json:"-"`
	Fields     map[string]interface{} `json:"fields,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Kind returns the taxonomy bucket of the error code.
func (e *AppError) Kind() Kind {
	return kindOf(e.Code)
}

// WithDetails adds additional details to the error
func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

// WithField adds a field to the error
func (e *AppError) WithField(key string, value interface{}) *AppError {
	if e.Fields == nil {
		e.Fields = make(map[string]interface{})
	}
	e.Fields[key] = value
	return e
}

// WithCause wraps an underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Cause = err
	return e
}

// ToJSON converts error to JSON response format
func (e *AppError) ToJSON() map[string]interface{} {
	result := map[string]interface{}{
		"success": false,
		"code":    e.Code,
		"kind":    e.Kind(),
		"message": e.Message,
	}
	if e.Details != "" {
		result["details"] = e.Details
	}
	if len(e.Fields) > 0 {
		result["fields"] = e.Fields
	}
	return result
}

// ============================================================
// Error constructors
// ============================================================

// New creates a new AppError
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: getHTTPStatus(code),
		Stack:      captureStack(2),
	}
}

// Wrap attaches err as the cause of a new AppError.
func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: getHTTPStatus(code),
		Cause:      err,
		Stack:      captureStack(2),
	}
}

// Authentication errors
func Unauthorized(message string) *AppError {
	return New(ErrCodeUnauthorized, message)
}

func AccessDenied() *AppError {
	return New(ErrCodeAccessDenied, "admin access required")
}

// Validation errors
func ValidationError(message string) *AppError {
	return New(ErrCodeValidation, message)
}

func InvalidInput(field, message string) *AppError {
	return New(ErrCodeInvalidInput, message).WithField("field", field)
}

func MissingField(field string) *AppError {
	return New(ErrCodeMissingField, fmt.Sprintf("%s is required", field)).WithField("field", field)
}

// Resource errors
func NotFound(resource string) *AppError {
	return New(ErrCodeNotFound, fmt.Sprintf("%s not found", resource)).WithField("resource", resource)
}

func AlreadyExists(resource string) *AppError {
	return New(ErrCodeAlreadyExists, fmt.Sprintf("%s already exists", resource))
}

func Conflict(message string) *AppError {
	return New(ErrCodeConflict, message)
}

// Business logic errors
func InvalidState(message string) *AppError {
	return New(ErrCodeInvalidState, message)
}

func EventNotOpen(status string) *AppError {
	return New(ErrCodeEventNotOpen, fmt.Sprintf("event is not open for booking (status: %s)", status)).
		WithField("status", status)
}

func CapacityExceeded(message string, remaining int) *AppError {
	return New(ErrCodeCapacityExceeded, message).WithField("remaining", remaining)
}

func AlreadyPaid() *AppError {
	return New(ErrCodeAlreadyPaid, "booking already paid")
}

func PaymentFailed(reason string) *AppError {
	return New(ErrCodePaymentFailed, "payment not successful").WithDetails(reason)
}

func PaymentNotCompleted() *AppError {
	return New(ErrCodePaymentNotCompleted, "payment not completed")
}

func AlreadyUsed() *AppError {
	return New(ErrCodeAlreadyUsed, "access denied: code already used")
}

func RateLimited() *AppError {
	return New(ErrCodeRateLimited, "too many requests, slow down")
}

// External service errors
func ExternalServiceError(service, message string) *AppError {
	return New(ErrCodeExternalService, message).WithField("service", service)
}

func EmailError(err error) *AppError {
	return Wrap(err, ErrCodeEmailError, "email delivery failed").WithField("service", "smtp")
}

func GatewayError(err error) *AppError {
	return Wrap(err, ErrCodeGatewayError, "payment gateway error").WithField("service", "razorpay")
}

func StoreError(service string, err error) *AppError {
	return Wrap(err, ErrCodeStoreError, fmt.Sprintf("%s unavailable", service)).WithField("service", service)
}

// Internal errors
func Internal(message string) *AppError {
	return New(ErrCodeInternal, message)
}

func DatabaseError(err error) *AppError {
	return Wrap(err, ErrCodeDatabase, "database error")
}

func Timeout() *AppError {
	return New(ErrCodeTimeout, "request timed out")
}

// ============================================================
// Helper functions
// ============================================================

func kindOf(code ErrorCode) Kind {
	switch code {
	case ErrCodeUnauthorized, ErrCodeAccessDenied:
		return KindUnauthorized
	case ErrCodeValidation, ErrCodeInvalidInput, ErrCodeMissingField:
		return KindValidation
	case ErrCodeNotFound:
		return KindNotFound
	case ErrCodeAlreadyExists, ErrCodeConflict, ErrCodeInvalidState, ErrCodeEventNotOpen,
		ErrCodeCapacityExceeded, ErrCodeAlreadyPaid, ErrCodeRateLimited:
		return KindConflict
	case ErrCodeAlreadyUsed:
		return KindDenied
	case ErrCodePaymentNotCompleted:
		return KindPrecondition
	case ErrCodePaymentFailed, ErrCodeExternalService, ErrCodeGatewayError, ErrCodeEmailError,
		ErrCodeStoreError, ErrCodeTimeout:
		return KindExternal
	default:
		return KindInternal
	}
}

func getHTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeAccessDenied:
		return http.StatusForbidden
	case ErrCodeValidation, ErrCodeInvalidInput, ErrCodeMissingField:
		return http.StatusBadRequest
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeAlreadyExists, ErrCodeConflict, ErrCodeCapacityExceeded, ErrCodeAlreadyPaid,
		ErrCodeAlreadyUsed, ErrCodeEventNotOpen:
		return http.StatusConflict
	case ErrCodeInvalidState, ErrCodePaymentNotCompleted:
		return http.StatusUnprocessableEntity
	case ErrCodePaymentFailed:
		return http.StatusPaymentRequired
	case ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case ErrCodeExternalService, ErrCodeGatewayError, ErrCodeEmailError, ErrCodeStoreError:
		return http.StatusBadGateway
	case ErrCodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func captureStack(skip int) string {
	var pcs [32]uintptr
	n := runtime.Callers(skip+1, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])

	var sb strings.Builder
	for {
		frame, more := frames.Next()
		if strings.Contains(frame.File, "runtime/") {
			if !more {
				break
			}
			continue
		}
		sb.WriteString(fmt.Sprintf("%s\n\t%s:%d\n", frame.Function, frame.File, frame.Line))
		if !more {
			break
		}
	}
	return sb.String()
}

// AsAppError finds the first AppError in err's chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// KindOf reports the taxonomy bucket of any error; non-AppErrors are internal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	if appErr, ok := AsAppError(err); ok {
		return appErr.Kind()
	}
	return KindInternal
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code ErrorCode) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}

// ToAppError converts any error to AppError
func ToAppError(err error) *AppError {
	if appErr, ok := AsAppError(err); ok {
		return appErr
	}
	return Wrap(err, ErrCodeInternal, "internal error")
}
