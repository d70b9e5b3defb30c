// Package errors provides structured error handling for RepoWhisper.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: IO errors (file, disk)
//   - 3XX: Network errors (embedding backend)
//   - 4XX: Validation errors
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryIO indicates file and disk I/O errors.
	CategoryIO Category = "IO"
	// CategoryNetwork indicates network-related errors.
	CategoryNetwork Category = "NETWORK"
	// CategoryValidation indicates input validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigInvalid    = "ERR_101_CONFIG_INVALID"
	ErrCodeAllowlistMissing = "ERR_102_ALLOWLIST_MISSING"
	ErrCodeAllowlistEmpty   = "ERR_103_ALLOWLIST_EMPTY"

	// IO errors (200-299)
	ErrCodeFileNotFound = "ERR_201_FILE_NOT_FOUND"
	ErrCodeFileUnread   = "ERR_202_FILE_UNREADABLE"
	ErrCodeCorruptIndex = "ERR_203_CORRUPT_INDEX"

	// Network errors (300-399)
	ErrCodeEmbedderUnavailable = "ERR_301_EMBEDDER_UNAVAILABLE"
	ErrCodeNetworkTimeout      = "ERR_302_NETWORK_TIMEOUT"

	// Validation errors (400-499)
	ErrCodeInvalidInput      = "ERR_401_INVALID_INPUT"
	ErrCodeInvalidUserID     = "ERR_402_INVALID_USER_ID"
	ErrCodeDimensionMismatch = "ERR_403_DIMENSION_MISMATCH"
	ErrCodePathNotAllowed    = "ERR_404_PATH_NOT_ALLOWED"

	// Internal errors (500-599)
	ErrCodeInternal        = "ERR_501_INTERNAL"
	ErrCodeEmbeddingFailed = "ERR_502_EMBEDDING_FAILED"
	ErrCodeSearchFailed    = "ERR_503_SEARCH_FAILED"
	ErrCodeStoreFailed     = "ERR_504_STORE_FAILED"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	// Numeric portion, e.g. "101" from "ERR_101_CONFIG_INVALID".
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryIO
	case '3':
		return CategoryNetwork
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	if code == ErrCodeCorruptIndex {
		return SeverityFatal
	}
	if isRetryableCode(code) {
		return SeverityWarning
	}
	return SeverityError
}

// isRetryableCode checks if an error code represents a retryable error.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeEmbedderUnavailable, ErrCodeNetworkTimeout:
		return true
	default:
		return false
	}
}
