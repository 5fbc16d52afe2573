package errors

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"
)

// ErrorCode represents a unique error code for categorizing errors
type ErrorCode string

const (
	// Warehouse connection errors (1xxx)
	ErrCodeConnectionFailed     ErrorCode = "MBLD1001"
	ErrCodeConnectionTimeout    ErrorCode = "MBLD1002"
	ErrCodeAuthenticationFailed ErrorCode = "MBLD1003"

	// Configuration errors (2xxx)
	ErrCodeConfigNotFound ErrorCode = "MBLD2001"
	ErrCodeConfigInvalid  ErrorCode = "MBLD2002"
	ErrCodeConfigMissing  ErrorCode = "MBLD2003"

	// Source and models-repository errors (3xxx)
	ErrCodeSourceNotFound   ErrorCode = "MBLD3001"
	ErrCodeSourceUnreadable ErrorCode = "MBLD3002"
	ErrCodeRepoSyncFailed   ErrorCode = "MBLD3003"
	ErrCodeExtractFailed    ErrorCode = "MBLD3004"

	// Build and integrity errors (4xxx)
	ErrCodeSQLExecution      ErrorCode = "MBLD4001"
	ErrCodeSQLTransaction    ErrorCode = "MBLD4002"
	ErrCodeSwapFailed        ErrorCode = "MBLD4003"
	ErrCodeDuplicateKey      ErrorCode = "MBLD4004"
	ErrCodeGrainViolation    ErrorCode = "MBLD4005"
	ErrCodeModelGraphInvalid ErrorCode = "MBLD4006"
	ErrCodeBuildAborted      ErrorCode = "MBLD4007"
	ErrCodeTargetLocked      ErrorCode = "MBLD4008"

	// File system errors (5xxx)
	ErrCodeFileNotFound   ErrorCode = "MBLD5001"
	ErrCodeFilePermission ErrorCode = "MBLD5002"
	ErrCodeFileOperation  ErrorCode = "MBLD5003"

	// Validation errors (6xxx)
	ErrCodeValidationFailed ErrorCode = "MBLD6001"
	ErrCodeInvalidInput     ErrorCode = "MBLD6002"
	ErrCodeRequiredField    ErrorCode = "MBLD6003"

	// Security errors (7xxx)
	ErrCodeEncryptionFailed  ErrorCode = "MBLD7001"
	ErrCodeCredentialMissing ErrorCode = "MBLD7002"

	// System errors (9xxx)
	ErrCodeInternal  ErrorCode = "MBLD9001"
	ErrCodeTimeout   ErrorCode = "MBLD9002"
	ErrCodeCancelled ErrorCode = "MBLD9003"
)

// ErrorSeverity represents the severity level of an error
type ErrorSeverity string

const (
	SeverityCritical ErrorSeverity = "CRITICAL" // Build integrity broken, run must abort
	SeverityError    ErrorSeverity = "ERROR"    // Operation failed, but system continues
	SeverityWarning  ErrorSeverity = "WARNING"  // Operation succeeded with issues
	SeverityInfo     ErrorSeverity = "INFO"     // Informational, not an error
)

// AppError represents a structured application error with context
type AppError struct {
	Code        ErrorCode
	Message     string
	Severity    ErrorSeverity
	Context     map[string]interface{}
	Cause       error
	Stack       string
	Timestamp   time.Time
	Recoverable bool
	Suggestions []string
}

// Error implements the error interface
func (e *AppError) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("[%s] %s: %s", e.Code, e.Severity, e.Message))

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf("\nCaused by: %v", e.Cause))
	}

	if len(e.Suggestions) > 0 {
		b.WriteString("\nSuggestions:")
		for i, suggestion := range e.Suggestions {
			b.WriteString(fmt.Sprintf("\n  %d. %s", i+1, suggestion))
		}
	}

	return b.String()
}

// Unwrap returns the cause of the error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new AppError
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:        code,
		Message:     message,
		Severity:    SeverityError,
		Context:     make(map[string]interface{}),
		Stack:       captureStack(),
		Timestamp:   time.Now(),
		Recoverable: false,
	}
}

// Wrap wraps an existing error with AppError
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}

	appErr := New(code, message)
	appErr.Cause = err

	// If wrapping another AppError, inherit its context
	if ae, ok := err.(*AppError); ok {
		for k, v := range ae.Context {
			appErr.Context[k] = v
		}
	}

	return appErr
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithSeverity sets the error severity
func (e *AppError) WithSeverity(severity ErrorSeverity) *AppError {
	e.Severity = severity
	return e
}

// WithSuggestions adds recovery suggestions
func (e *AppError) WithSuggestions(suggestions ...string) *AppError {
	e.Suggestions = append(e.Suggestions, suggestions...)
	return e
}

// AsRecoverable marks the error as recoverable
func (e *AppError) AsRecoverable() *AppError {
	e.Recoverable = true
	return e
}

// captureStack captures the current stack trace
func captureStack() string {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:])

	var b strings.Builder
	frames := runtime.CallersFrames(pcs[:n])

	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.File, "runtime/") {
			b.WriteString(fmt.Sprintf("%s:%d %s\n", frame.File, frame.Line, frame.Function))
		}
		if !more {
			break
		}
	}

	return b.String()
}

// Common error constructors

// ConnectionError creates a warehouse connection error
func ConnectionError(message string, cause error) *AppError {
	return Wrap(cause, ErrCodeConnectionFailed, message).
		WithSeverity(SeverityError).
		WithSuggestions(
			"Check your network connection",
			"Verify the Snowflake account endpoint is accessible",
			"Run 'martbuild setup' to re-enter connection details",
		)
}

// ConfigError creates a configuration-related error
func ConfigError(message string, field string) *AppError {
	return New(ErrCodeConfigInvalid, message).
		WithContext("field", field).
		WithSuggestions(
			fmt.Sprintf("Check the '%s' configuration value", field),
			"Run 'martbuild setup' to reconfigure",
		)
}

// SQLError creates an SQL execution error
func SQLError(message string, query string, cause error) *AppError {
	return Wrap(cause, ErrCodeSQLExecution, message).
		WithContext("query", truncateString(query, 200))
}

// ValidationError creates a row validation error
func ValidationError(field string, value interface{}, reason string) *AppError {
	return New(ErrCodeValidationFailed, fmt.Sprintf("Validation failed for %s: %s", field, reason)).
		WithContext("field", field).
		WithContext("value", value).
		WithSeverity(SeverityWarning).
		AsRecoverable()
}

// DuplicateKeyError creates a fatal uniqueness violation for a dimension batch.
// Duplicated natural keys break the grain of every downstream fact join, so
// these are never recoverable.
func DuplicateKeyError(dimension string, naturalKey interface{}) *AppError {
	return New(ErrCodeDuplicateKey, fmt.Sprintf("Duplicate natural key in %s batch", dimension)).
		WithContext("dimension", dimension).
		WithContext("natural_key", naturalKey).
		WithSeverity(SeverityCritical).
		WithSuggestions(
			"Deduplicate the landing data for this entity",
			"Set duplicate_policy to 'last-wins' to apply Type-1 overwrite semantics",
		)
}

// GrainViolationError creates a fatal fan-out error for a fact build
func GrainViolationError(fact string, keyColumn string, naturalKey interface{}) *AppError {
	return New(ErrCodeGrainViolation, fmt.Sprintf("Dimension lookup fans out fact %s", fact)).
		WithContext("fact", fact).
		WithContext("key_column", keyColumn).
		WithContext("natural_key", naturalKey).
		WithSeverity(SeverityCritical)
}

// IsRecoverable checks if an error is recoverable
func IsRecoverable(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Recoverable
	}
	return false
}

// IsFatal reports whether the error must abort the whole run
func IsFatal(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Severity == SeverityCritical
	}
	return false
}

// GetErrorCode extracts the error code from an error
func GetErrorCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternal
}

// truncateString truncates a string to maxLen characters
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
