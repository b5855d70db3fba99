// Package errors provides structured error handling for wikigraph.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: IO errors (file, disk, locks)
//   - 3XX: Transport errors (Neo4j, MediaWiki, embedding backends)
//   - 4XX: Index errors (vector index, lexical model, store alignment)
//   - 5XX: Query errors
//   - 6XX: Embedding errors
//   - 9XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	CategoryConfig    Category = "CONFIG"
	CategoryIO        Category = "IO"
	CategoryTransport Category = "TRANSPORT"
	CategoryIndex     Category = "INDEX"
	CategoryQuery     Category = "QUERY"
	CategoryEmbedding Category = "EMBEDDING"
	CategoryInternal  Category = "INTERNAL"
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
	ErrCodeConfigInvalid      = "ERR_101_CONFIG_INVALID"
	ErrCodeConfigNotFound     = "ERR_102_CONFIG_NOT_FOUND"
	ErrCodeCredentialsMissing = "ERR_103_CREDENTIALS_MISSING"

	// IO errors (200-299)
	ErrCodeFileNotFound     = "ERR_201_FILE_NOT_FOUND"
	ErrCodePermissionDenied = "ERR_202_PERMISSION_DENIED"
	ErrCodeFileCorrupt      = "ERR_203_FILE_CORRUPT"
	ErrCodeLockHeld         = "ERR_205_LOCK_HELD"

	// Transport errors (300-399)
	ErrCodeTransportFailure = "ERR_301_TRANSPORT_FAILURE"
	ErrCodeTimeout          = "ERR_302_TIMEOUT"
	ErrCodeRemoteStatus     = "ERR_303_REMOTE_STATUS"

	// Index errors (400-499)
	ErrCodeIndexNotFound     = "ERR_401_INDEX_NOT_FOUND"
	ErrCodeIndexCorrupt      = "ERR_402_INDEX_CORRUPT"
	ErrCodeSchemaMismatch    = "ERR_403_SCHEMA_MISMATCH"
	ErrCodeDimensionMismatch = "ERR_404_DIMENSION_MISMATCH"
	ErrCodeModelIncompatible = "ERR_405_MODEL_INCOMPATIBLE"

	// Query errors (500-599)
	ErrCodeQueryEmpty   = "ERR_501_QUERY_EMPTY"
	ErrCodeCorpusEmpty  = "ERR_502_CORPUS_EMPTY"
	ErrCodeInvalidLimit = "ERR_503_INVALID_LIMIT"

	// Embedding errors (600-699)
	ErrCodeEmbedderUnavailable = "ERR_601_EMBEDDER_UNAVAILABLE"
	ErrCodeEmbeddingFailed     = "ERR_602_EMBEDDING_FAILED"

	// Internal errors (900-999)
	ErrCodeInternal = "ERR_901_INTERNAL"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	// "ERR_" prefix followed by a three digit number
	if len(code) < 7 {
		return CategoryInternal
	}

	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryIO
	case '3':
		return CategoryTransport
	case '4':
		return CategoryIndex
	case '5':
		return CategoryQuery
	case '6':
		return CategoryEmbedding
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeIndexCorrupt, ErrCodeFileCorrupt:
		return SeverityFatal
	}

	if isRetryableCode(code) {
		return SeverityWarning
	}
	return SeverityError
}

// isRetryableCode checks if an error code represents a transient failure.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeTransportFailure, ErrCodeTimeout, ErrCodeEmbedderUnavailable:
		return true
	default:
		return false
	}
}
