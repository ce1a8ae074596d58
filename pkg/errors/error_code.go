package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Input validation errors (100-199)
	ErrCodeEmptyInput        ErrorCode = 100
	ErrCodeMissingField      ErrorCode = 101
	ErrCodeInvalidTimestamp  ErrorCode = 102
	ErrCodeAmbiguousTimezone ErrorCode = 103
	ErrCodeInvalidParameter  ErrorCode = 104
	ErrCodeInvalidType       ErrorCode = 105
	ErrCodeInvalidRange      ErrorCode = 106

	// Data/Resource errors (200-299)
	ErrCodeDataNotFound          ErrorCode = 200
	ErrCodeDataSourceUnavailable ErrorCode = 201
	ErrCodeQueryFailed           ErrorCode = 202
	ErrCodeReadFailed            ErrorCode = 203
	ErrCodeWriteFailed           ErrorCode = 204

	// Configuration errors (300-399)
	ErrCodeInvalidConfiguration ErrorCode = 300
	ErrCodeVersionMismatch      ErrorCode = 301
)
