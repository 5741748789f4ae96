package dto

import "net/http"

// API error codes, ERR_<CATEGORY> form. Handlers emit these; clients branch
// on them instead of parsing messages.
const (
	ErrCodeInternal = "ERR_INTERNAL"

	ErrCodeValidation   = "ERR_VALIDATION"
	ErrCodeBadRequest   = "ERR_BAD_REQUEST"
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"

	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	ErrCodeForbidden    = "ERR_FORBIDDEN"
	ErrCodeTokenExpired = "ERR_TOKEN_EXPIRED"
	ErrCodeTokenInvalid = "ERR_TOKEN_INVALID"

	ErrCodeNotFound      = "ERR_NOT_FOUND"
	ErrCodeAlreadyExists = "ERR_ALREADY_EXISTS"
	// ErrCodeConflict covers lifecycle collisions: converting an already
	// converted quote, paying a cancelled invoice.
	ErrCodeConflict = "ERR_CONFLICT"
	// ErrCodeConcurrencyConflict signals an optimistic-lock failure; the
	// client should re-read and retry.
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"

	// ErrCodeInvalidState rejects an operation the document's current
	// status does not allow, e.g. accepting an expired quote.
	ErrCodeInvalidState = "ERR_INVALID_STATE"

	ErrCodeRateLimited = "ERR_RATE_LIMITED"
)

var errorCodeHTTPStatus = map[string]int{
	ErrCodeInternal: http.StatusInternalServerError,

	ErrCodeValidation:   http.StatusBadRequest,
	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInvalidInput: http.StatusBadRequest,

	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeTokenExpired: http.StatusUnauthorized,
	ErrCodeTokenInvalid: http.StatusUnauthorized,
	ErrCodeForbidden:    http.StatusForbidden,

	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeConflict:            http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,

	ErrCodeInvalidState: http.StatusUnprocessableEntity,

	ErrCodeRateLimited: http.StatusTooManyRequests,
}

// GetHTTPStatus maps an API error code to its HTTP status, defaulting to
// 500 for codes it does not know.
func GetHTTPStatus(code string) int {
	if status, ok := errorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// domainErrorCodeMapping translates the codes raised by the domain layer
// into the ERR_* codes of the API surface. The domain speaks in billing
// terms (ALREADY_CONVERTED, INVALID_AMOUNT); the API collapses them into
// its smaller category set while keeping the HTTP semantics right.
var domainErrorCodeMapping = map[string]string{
	"NOT_FOUND":            ErrCodeNotFound,
	"ALREADY_EXISTS":       ErrCodeAlreadyExists,
	"INVALID_INPUT":        ErrCodeInvalidInput,
	"INVALID_STATE":        ErrCodeInvalidState,
	"UNAUTHORIZED":         ErrCodeUnauthorized,
	"FORBIDDEN":            ErrCodeForbidden,
	"CONCURRENCY_CONFLICT": ErrCodeConcurrencyConflict,

	"QUOTE_NOT_FOUND":    ErrCodeNotFound,
	"INVOICE_NOT_FOUND":  ErrCodeNotFound,
	"PAYMENT_NOT_FOUND":  ErrCodeNotFound,
	"CUSTOMER_NOT_FOUND": ErrCodeNotFound,

	"DUPLICATE_QUOTE_NUMBER":   ErrCodeAlreadyExists,
	"DUPLICATE_INVOICE_NUMBER": ErrCodeAlreadyExists,

	"INVALID_AMOUNT":         ErrCodeValidation,
	"INVALID_CUSTOMER":       ErrCodeValidation,
	"INVALID_CUSTOMER_NAME":  ErrCodeValidation,
	"INVALID_PERIOD":         ErrCodeValidation,
	"INVALID_QUOTE_NUMBER":   ErrCodeValidation,
	"INVALID_INVOICE_NUMBER": ErrCodeValidation,
	"INVALID_PAYMENT_METHOD": ErrCodeValidation,
	"INVALID_LINE_ITEM":      ErrCodeValidation,

	"ALREADY_CONVERTED":       ErrCodeConflict,
	"PAYMENT_NOT_CONFIRMABLE": ErrCodeConflict,
	"INVOICE_CANCELLED":       ErrCodeConflict,
}

// NormalizeErrorCode converts a domain error code to its API form. Codes
// already in ERR_* form, or unknown ones, pass through unchanged.
func NormalizeErrorCode(code string) string {
	if apiCode, ok := domainErrorCodeMapping[code]; ok {
		return apiCode
	}
	return code
}
