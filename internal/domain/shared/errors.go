package shared

// DomainError is a business-rule violation with a stable machine-readable
// code. The HTTP layer maps codes to status classes (not-found, validation,
// conflict, invalid-state); anything that is not a DomainError is treated
// as an internal fault.
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError builds an error with a code the edge can dispatch on.
// Codes specific to one aggregate (ALREADY_CONVERTED, PAYMENT_NOT_CONFIRMABLE,
// INVOICE_CANCELLED, ...) are minted where the rule lives.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

// Sentinels for the failure modes every aggregate shares. Repositories
// return ErrConcurrencyConflict when a conditional write finds the stored
// version moved on, and ErrAlreadyExists when a unique index rejects the
// row (duplicate document number, or a second invoice claiming the same
// quote during a conversion race).
var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrUnauthorized        = NewDomainError("UNAUTHORIZED", "Not authorized to perform this action")
	ErrForbidden           = NewDomainError("FORBIDDEN", "Access to this resource is forbidden")
	ErrInvalidState        = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
)
