package cloud

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/openpaint/cloudsync/errors"
)

// Category classifies a sync failure. The set is fixed; every error that
// crosses a package boundary carries exactly one category.
type Category string

const (
	CategoryAuthExpired Category = "auth_expired"
	CategoryAuthInvalid Category = "auth_invalid"
	CategoryPermission  Category = "permission"
	CategoryNotFound    Category = "not_found"
	CategoryConflict    Category = "conflict"
	CategoryValidation  Category = "validation"
	CategoryNetwork     Category = "network"
	CategoryServer      Category = "server"
	CategoryUnknown     Category = "unknown"
)

// Error is the normalized failure shape for every remote operation. Retry
// policy lives entirely in Retryable and the category: the client never
// retries, the patch coordinator retries only CategoryConflict.
type Error struct {
	Category        Category
	StatusCode      int // 0 when no HTTP response was received
	Code            string
	Message         string
	UserMessage     string
	Retryable       bool
	RequiresRelogin bool
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("cloud %s (%d): %s", e.Category, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("cloud %s: %s", e.Category, e.Message)
}

// AsCloudError extracts the normalized error from an error chain.
func AsCloudError(err error) (*Error, bool) {
	var ce *Error
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// IsConflict reports whether err is a normalized conflict.
func IsConflict(err error) bool {
	ce, ok := AsCloudError(err)
	return ok && ce.Category == CategoryConflict
}

// IsRetryable reports whether err is a normalized retryable failure.
func IsRetryable(err error) bool {
	ce, ok := AsCloudError(err)
	return ok && ce.Retryable
}

// Application error codes that map straight to auth categories regardless of
// HTTP status.
var (
	authExpiredCodes = map[string]bool{
		"jwt_expired":             true,
		"refresh_token_not_found": true,
	}
	authInvalidCodes = map[string]bool{
		"invalid_jwt": true,
	}
)

func containsAny(haystack string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

// NormalizeError classifies a raw remote failure into the fixed taxonomy.
// Classification looks at the HTTP status first, then the application error
// code, then message text. Order matters: auth beats permission beats
// not-found beats conflict.
func NormalizeError(statusCode int, code, message string) *Error {
	if message == "" {
		message = "Unknown cloud error"
	}
	lowCode := strings.ToLower(code)
	lowMsg := strings.ToLower(message)

	switch {
	case statusCode == http.StatusUnauthorized || authExpiredCodes[lowCode]:
		return &Error{
			Category:        CategoryAuthExpired,
			StatusCode:      statusCode,
			Code:            code,
			Message:         message,
			UserMessage:     MsgAuthExpired,
			RequiresRelogin: true,
		}
	case authInvalidCodes[lowCode]:
		return &Error{
			Category:        CategoryAuthInvalid,
			StatusCode:      statusCode,
			Code:            code,
			Message:         message,
			UserMessage:     MsgAuthInvalid,
			RequiresRelogin: true,
		}
	case statusCode == http.StatusForbidden ||
		containsAny(lowMsg, "forbidden", "not authorized", "not authorised", "permission"):
		return &Error{
			Category:    CategoryPermission,
			StatusCode:  statusCode,
			Code:        code,
			Message:     message,
			UserMessage: MsgPermission,
		}
	case statusCode == http.StatusNotFound || containsAny(lowMsg, "not found", "no rows"):
		return &Error{
			Category:    CategoryNotFound,
			StatusCode:  statusCode,
			Code:        code,
			Message:     message,
			UserMessage: MsgNotFound,
		}
	case statusCode == http.StatusConflict ||
		containsAny(lowMsg, "conflict", "version mismatch", "stale"):
		return &Error{
			Category:    CategoryConflict,
			StatusCode:  statusCode,
			Code:        code,
			Message:     message,
			UserMessage: MsgConflict,
			Retryable:   true,
		}
	case statusCode >= 500:
		return &Error{
			Category:    CategoryServer,
			StatusCode:  statusCode,
			Code:        code,
			Message:     message,
			UserMessage: MsgServer,
			Retryable:   true,
		}
	default:
		return &Error{
			Category:    CategoryUnknown,
			StatusCode:  statusCode,
			Code:        code,
			Message:     message,
			UserMessage: MsgUnknown,
			Retryable:   true,
		}
	}
}

// NetworkError wraps a transport-layer failure (dial, TLS, timeout, broken
// body) where no HTTP status exists.
func NetworkError(err error) *Error {
	msg := "network request failed"
	if err != nil {
		msg = err.Error()
	}
	return &Error{
		Category:    CategoryNetwork,
		Message:     msg,
		UserMessage: MsgNetwork,
		Retryable:   true,
	}
}

// AuthExpiredError is the immediate failure used when no session is available
// before any network I/O happens.
func AuthExpiredError(message string) *Error {
	return &Error{
		Category:        CategoryAuthExpired,
		Message:         message,
		UserMessage:     MsgAuthExpired,
		RequiresRelogin: true,
	}
}

// ValidationError marks a request rejected locally before any network I/O,
// such as a payload exceeding the size limit.
func ValidationError(message string) *Error {
	return &Error{
		Category:    CategoryValidation,
		Message:     message,
		UserMessage: message,
	}
}
