package shared

// Filter carries the list-query options common to every collection:
// pagination, ordering and a free-text search term. Collection-specific
// criteria live on the embedding filter types (QuoteFilter, InvoiceFilter,
// PaymentFilter); Filters holds ad-hoc column equality checks.
//
// Pagination applies only when both Page and PageSize are positive, and
// OrderBy is validated against a per-repository allowlist before it reaches
// SQL; an unknown column falls back to the default ordering.
type Filter struct {
	Page     int
	PageSize int
	OrderBy  string
	OrderDir string
	Search   string
	Filters  map[string]interface{}
}
