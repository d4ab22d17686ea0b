package errors

// ErrorCode represents a unique error identifier
type ErrorCode int

// Error code ranges allocation:
// 10000-10999: System & Common errors
// 12000-12999: Question catalog errors
// 13000-13999: Execution & Validation errors

const (
	// ========== System & Common Errors (10000-10999) ==========

	Success ErrorCode = 10000

	// Generic errors (10000-10099)
	InternalServerError ErrorCode = 10001
	InvalidParams       ErrorCode = 10002
	NotFound            ErrorCode = 10003
	Unauthorized        ErrorCode = 10004
	Forbidden           ErrorCode = 10005
	TooManyRequests     ErrorCode = 10006
	ServiceUnavailable  ErrorCode = 10007
	Timeout             ErrorCode = 10008

	// Infrastructure errors (10100-10299)
	DatabaseError ErrorCode = 10100
	CacheError    ErrorCode = 10200
	QueueError    ErrorCode = 10250
	StorageError  ErrorCode = 10280

	// Request validation errors (10300-10399)
	ValidationFailed   ErrorCode = 10300
	InvalidFormat      ErrorCode = 10301
	RequiredFieldEmpty ErrorCode = 10303

	// Auth (10400-10499)
	TokenExpired ErrorCode = 10400
	TokenInvalid ErrorCode = 10401

	// ========== Question Catalog Errors (12000-12999) ==========

	QuestionNotFound    ErrorCode = 12000
	QuestionInvalid     ErrorCode = 12001
	CatalogLoadFailed   ErrorCode = 12100
	CatalogBundleFailed ErrorCode = 12101

	// ========== Execution & Validation Errors (13000-13999) ==========

	// Execution (13000-13099)
	LanguageNotSupported ErrorCode = 13000
	CodeTooLarge         ErrorCode = 13001
	RuntimeUnavailable   ErrorCode = 13002
	BootstrapFailed      ErrorCode = 13003
	SandboxError         ErrorCode = 13004

	// Remote execution (13100-13199)
	RemoteNotConfigured  ErrorCode = 13100
	RemoteUnavailable    ErrorCode = 13101
	RemoteQuotaExhausted ErrorCode = 13102
	RemoteRejected       ErrorCode = 13103
	PollTimeout          ErrorCode = 13104

	// Validation (13200-13299)
	ValidationInternal ErrorCode = 13200
)

var errorMessages = map[ErrorCode]string{
	Success:             "Success",
	InternalServerError: "Internal server error",
	InvalidParams:       "Invalid parameters",
	NotFound:            "Resource not found",
	Unauthorized:        "Unauthorized access",
	Forbidden:           "Access forbidden",
	TooManyRequests:     "Too many requests, please try again later",
	ServiceUnavailable:  "Service temporarily unavailable",
	Timeout:             "Request timeout",

	DatabaseError: "Database operation failed",
	CacheError:    "Cache operation failed",
	QueueError:    "Message queue operation failed",
	StorageError:  "Object storage operation failed",

	ValidationFailed:   "Validation failed",
	InvalidFormat:      "Invalid format",
	RequiredFieldEmpty: "Required field is empty",

	TokenExpired: "Token has expired",
	TokenInvalid: "Invalid token",

	QuestionNotFound:    "Question not found",
	QuestionInvalid:     "Question record is invalid",
	CatalogLoadFailed:   "Failed to load question catalog",
	CatalogBundleFailed: "Failed to decode question bundle",

	LanguageNotSupported: "Programming language not supported",
	CodeTooLarge:         "Code is too large",
	RuntimeUnavailable:   "Language runtime is unavailable",
	BootstrapFailed:      "Language runtime failed to start",
	SandboxError:         "Sandbox error",

	RemoteNotConfigured:  "Remote execution service is not configured",
	RemoteUnavailable:    "Remote execution service is unavailable",
	RemoteQuotaExhausted: "Daily remote execution quota exhausted",
	RemoteRejected:       "Remote execution service rejected the submission",
	PollTimeout:          "Remote execution did not finish in time",

	ValidationInternal: "Validation failed unexpectedly",
}

// Message returns the default message for the error code
func (c ErrorCode) Message() string {
	if msg, ok := errorMessages[c]; ok {
		return msg
	}
	return "Unknown error"
}

// HTTPStatus returns the recommended HTTP status code for the error code
func (c ErrorCode) HTTPStatus() int {
	switch {
	case c == Success:
		return 200
	case c == Unauthorized, c == TokenExpired, c == TokenInvalid:
		return 401
	case c == Forbidden:
		return 403
	case c == NotFound, c == QuestionNotFound:
		return 404
	case c == TooManyRequests, c == RemoteQuotaExhausted:
		return 429
	case c == ServiceUnavailable, c == RuntimeUnavailable, c == RemoteUnavailable, c == RemoteNotConfigured:
		return 503
	case c == Timeout, c == PollTimeout:
		return 504
	case c >= 10300 && c < 10400, c == InvalidParams, c == LanguageNotSupported, c == CodeTooLarge:
		return 400
	default:
		return 500
	}
}
