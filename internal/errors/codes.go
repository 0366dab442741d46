// Package errors provides structured error handling for fsindex.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: Filesystem errors (per-entry, never abort a run)
//   - 3XX: Store errors
//   - 4XX: Embedding errors
//   - 5XX: Indexing run errors
//   - 6XX: Query errors
//   - 9XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryIO indicates per-file filesystem errors.
	CategoryIO Category = "IO"
	// CategoryStore indicates persistent store errors.
	CategoryStore Category = "STORE"
	// CategoryEmbedding indicates embedding model errors.
	CategoryEmbedding Category = "EMBEDDING"
	// CategoryIndex indicates indexing run errors.
	CategoryIndex Category = "INDEX"
	// CategoryQuery indicates search query errors.
	CategoryQuery Category = "QUERY"
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
	// SeverityInfo indicates informational only.
	SeverityInfo Severity = "INFO"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigInvalid  = "ERR_101_CONFIG_INVALID"
	ErrCodeConfigNotFound = "ERR_102_CONFIG_NOT_FOUND"

	// Filesystem errors (200-299)
	ErrCodeFileTransient = "ERR_201_FILE_TRANSIENT"
	ErrCodeInvalidPath   = "ERR_202_INVALID_PATH"

	// Store errors (300-399)
	ErrCodeStoreFatal    = "ERR_301_STORE_FATAL"
	ErrCodeStoreNotFound = "ERR_302_STORE_NOT_FOUND"

	// Embedding errors (400-499)
	ErrCodeEmbeddingUnavailable = "ERR_401_EMBEDDING_UNAVAILABLE"
	ErrCodeEmbeddingTimeout     = "ERR_402_EMBEDDING_TIMEOUT"
	ErrCodeDimensionMismatch    = "ERR_403_DIMENSION_MISMATCH"
	ErrCodeEmbeddingFailed      = "ERR_404_EMBEDDING_FAILED"

	// Indexing errors (500-599)
	ErrCodeAlreadyRunning = "ERR_501_ALREADY_RUNNING"
	ErrCodeIndexFailed    = "ERR_502_INDEX_FAILED"

	// Query errors (600-699)
	ErrCodeInvalidQuery = "ERR_601_INVALID_QUERY"

	// Internal errors (900-999)
	ErrCodeInternal = "ERR_901_INTERNAL"
)

// Sentinels for errors.Is matching. Comparison is by code only.
var (
	ErrConfigInvalid        = &FSError{Code: ErrCodeConfigInvalid}
	ErrFileTransient        = &FSError{Code: ErrCodeFileTransient}
	ErrStoreFatal           = &FSError{Code: ErrCodeStoreFatal}
	ErrNotFound             = &FSError{Code: ErrCodeStoreNotFound}
	ErrEmbeddingUnavailable = &FSError{Code: ErrCodeEmbeddingUnavailable}
	ErrEmbeddingTimeout     = &FSError{Code: ErrCodeEmbeddingTimeout}
	ErrDimensionMismatch    = &FSError{Code: ErrCodeDimensionMismatch}
	ErrAlreadyRunning       = &FSError{Code: ErrCodeAlreadyRunning}
	ErrInvalidQuery         = &FSError{Code: ErrCodeInvalidQuery}
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	// "ERR_301_STORE_FATAL" -> '3'
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryIO
	case '3':
		return CategoryStore
	case '4':
		return CategoryEmbedding
	case '5':
		return CategoryIndex
	case '6':
		return CategoryQuery
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeStoreFatal:
		return SeverityFatal
	case ErrCodeFileTransient, ErrCodeEmbeddingTimeout:
		return SeverityWarning
	}

	if isRetryableCode(code) {
		return SeverityWarning
	}

	return SeverityError
}

// isRetryableCode checks if an error code represents a retryable error.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeEmbeddingTimeout, ErrCodeAlreadyRunning:
		return true
	default:
		return false
	}
}
