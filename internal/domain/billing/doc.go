// Package billing provides the domain models of the billing ledger.
//
// This package implements the billing bounded context, which is responsible for:
//   - Quote, Invoice and Payment aggregates and their lifecycle transitions
//   - Deriving invoice status from payment coverage (DeriveInvoiceStatus)
//   - Repository contracts including optimistic-lock saves and window aggregation
//
// Key Aggregates:
//   - Quote: An offer that may be converted into exactly one invoice
//   - Invoice: An amount owed, whose status is a pure function of its coverage
//   - Payment: Money received; only completed payments count toward coverage
//
// Value Objects:
//   - LineItem / LineItems: Billable lines stored as JSONB on quotes and invoices
//
// The billing domain integrates with:
//   - Partner domain: Referential checks against the customer directory
package billing
