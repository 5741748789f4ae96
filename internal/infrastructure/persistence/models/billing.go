package models

import (
	"time"

	"github.com/billing/backend/internal/domain/billing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// QuoteModel is the persistence model for the Quote aggregate.
type QuoteModel struct {
	AuditedAggregateModel
	QuoteNumber    string              `gorm:"type:varchar(50);not null;uniqueIndex:idx_quote_number"`
	CustomerID     uuid.UUID           `gorm:"type:uuid;not null;index"`
	IssueDate      time.Time           `gorm:"not null;index"`
	ExpiryDate     *time.Time          `gorm:""`
	TotalAmount    decimal.Decimal     `gorm:"type:decimal(18,4);not null;default:0"`
	TaxAmount      decimal.Decimal     `gorm:"type:decimal(18,4);not null;default:0"`
	DiscountAmount decimal.Decimal     `gorm:"type:decimal(18,4);not null;default:0"`
	LineItems      billing.LineItems   `gorm:"type:jsonb"`
	Notes          string              `gorm:"type:text"`
	Terms          string              `gorm:"type:text"`
	Status         billing.QuoteStatus `gorm:"type:varchar(20);not null;default:'draft';index"`
}

// TableName returns the table name for GORM
func (QuoteModel) TableName() string {
	return "quotes"
}

// ToDomain converts the persistence model to a domain Quote aggregate.
func (m *QuoteModel) ToDomain() *billing.Quote {
	q := &billing.Quote{
		QuoteNumber:    m.QuoteNumber,
		CustomerID:     m.CustomerID,
		IssueDate:      m.IssueDate,
		ExpiryDate:     m.ExpiryDate,
		TotalAmount:    m.TotalAmount,
		TaxAmount:      m.TaxAmount,
		DiscountAmount: m.DiscountAmount,
		LineItems:      m.LineItems,
		Notes:          m.Notes,
		Terms:          m.Terms,
		Status:         m.Status,
	}
	m.PopulateAuditedAggregateRoot(&q.AuditedAggregateRoot)
	return q
}

// FromDomain populates the persistence model from a domain Quote aggregate.
func (m *QuoteModel) FromDomain(q *billing.Quote) {
	m.FromDomainAuditedAggregateRoot(q.AuditedAggregateRoot)
	m.QuoteNumber = q.QuoteNumber
	m.CustomerID = q.CustomerID
	m.IssueDate = q.IssueDate
	m.ExpiryDate = q.ExpiryDate
	m.TotalAmount = q.TotalAmount
	m.TaxAmount = q.TaxAmount
	m.DiscountAmount = q.DiscountAmount
	m.LineItems = q.LineItems
	m.Notes = q.Notes
	m.Terms = q.Terms
	m.Status = q.Status
}

// QuoteModelFromDomain creates a new persistence model from a domain Quote aggregate.
func QuoteModelFromDomain(q *billing.Quote) *QuoteModel {
	m := &QuoteModel{}
	m.FromDomain(q)
	return m
}

// InvoiceModel is the persistence model for the Invoice aggregate.
type InvoiceModel struct {
	AuditedAggregateModel
	InvoiceNumber  string                `gorm:"type:varchar(50);not null;uniqueIndex:idx_invoice_number"`
	CustomerID     uuid.UUID             `gorm:"type:uuid;not null;index"`
	QuoteID        *uuid.UUID            `gorm:"type:uuid;uniqueIndex:idx_invoice_quote"`
	IssueDate      time.Time             `gorm:"not null;index"`
	DueDate        *time.Time            `gorm:"index"`
	TotalAmount    decimal.Decimal       `gorm:"type:decimal(18,4);not null;default:0"`
	TaxAmount      decimal.Decimal       `gorm:"type:decimal(18,4);not null;default:0"`
	DiscountAmount decimal.Decimal       `gorm:"type:decimal(18,4);not null;default:0"`
	PaidAmount     decimal.Decimal       `gorm:"type:decimal(18,4);not null;default:0"`
	LineItems      billing.LineItems     `gorm:"type:jsonb"`
	Notes          string                `gorm:"type:text"`
	Terms          string                `gorm:"type:text"`
	Status         billing.InvoiceStatus `gorm:"type:varchar(20);not null;default:'draft';index"`
	CancelledAt    *time.Time            `gorm:""`
	CancelReason   string                `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// ToDomain converts the persistence model to a domain Invoice aggregate.
func (m *InvoiceModel) ToDomain() *billing.Invoice {
	inv := &billing.Invoice{
		InvoiceNumber:  m.InvoiceNumber,
		CustomerID:     m.CustomerID,
		QuoteID:        m.QuoteID,
		IssueDate:      m.IssueDate,
		DueDate:        m.DueDate,
		TotalAmount:    m.TotalAmount,
		TaxAmount:      m.TaxAmount,
		DiscountAmount: m.DiscountAmount,
		PaidAmount:     m.PaidAmount,
		LineItems:      m.LineItems,
		Notes:          m.Notes,
		Terms:          m.Terms,
		Status:         m.Status,
		CancelledAt:    m.CancelledAt,
		CancelReason:   m.CancelReason,
	}
	m.PopulateAuditedAggregateRoot(&inv.AuditedAggregateRoot)
	return inv
}

// FromDomain populates the persistence model from a domain Invoice aggregate.
func (m *InvoiceModel) FromDomain(inv *billing.Invoice) {
	m.FromDomainAuditedAggregateRoot(inv.AuditedAggregateRoot)
	m.InvoiceNumber = inv.InvoiceNumber
	m.CustomerID = inv.CustomerID
	m.QuoteID = inv.QuoteID
	m.IssueDate = inv.IssueDate
	m.DueDate = inv.DueDate
	m.TotalAmount = inv.TotalAmount
	m.TaxAmount = inv.TaxAmount
	m.DiscountAmount = inv.DiscountAmount
	m.PaidAmount = inv.PaidAmount
	m.LineItems = inv.LineItems
	m.Notes = inv.Notes
	m.Terms = inv.Terms
	m.Status = inv.Status
	m.CancelledAt = inv.CancelledAt
	m.CancelReason = inv.CancelReason
}

// InvoiceModelFromDomain creates a new persistence model from a domain Invoice aggregate.
func InvoiceModelFromDomain(inv *billing.Invoice) *InvoiceModel {
	m := &InvoiceModel{}
	m.FromDomain(inv)
	return m
}

// PaymentModel is the persistence model for the Payment aggregate.
type PaymentModel struct {
	AuditedAggregateModel
	CustomerID      uuid.UUID             `gorm:"type:uuid;not null;index"`
	InvoiceID       *uuid.UUID            `gorm:"type:uuid;index"`
	Amount          decimal.Decimal       `gorm:"type:decimal(18,4);not null"`
	PaymentMethod   string                `gorm:"type:varchar(50);not null"`
	PaymentDate     time.Time             `gorm:"not null;index"`
	ReferenceNumber string                `gorm:"type:varchar(100)"`
	Notes           string                `gorm:"type:text"`
	Status          billing.PaymentStatus `gorm:"type:varchar(20);not null;default:'pending';index"`
	CompletedAt     *time.Time            `gorm:""`
	FailureReason   string                `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (PaymentModel) TableName() string {
	return "payments"
}

// ToDomain converts the persistence model to a domain Payment aggregate.
func (m *PaymentModel) ToDomain() *billing.Payment {
	p := &billing.Payment{
		CustomerID:      m.CustomerID,
		InvoiceID:       m.InvoiceID,
		Amount:          m.Amount,
		PaymentMethod:   m.PaymentMethod,
		PaymentDate:     m.PaymentDate,
		ReferenceNumber: m.ReferenceNumber,
		Notes:           m.Notes,
		Status:          m.Status,
		CompletedAt:     m.CompletedAt,
		FailureReason:   m.FailureReason,
	}
	m.PopulateAuditedAggregateRoot(&p.AuditedAggregateRoot)
	return p
}

// FromDomain populates the persistence model from a domain Payment aggregate.
func (m *PaymentModel) FromDomain(p *billing.Payment) {
	m.FromDomainAuditedAggregateRoot(p.AuditedAggregateRoot)
	m.CustomerID = p.CustomerID
	m.InvoiceID = p.InvoiceID
	m.Amount = p.Amount
	m.PaymentMethod = p.PaymentMethod
	m.PaymentDate = p.PaymentDate
	m.ReferenceNumber = p.ReferenceNumber
	m.Notes = p.Notes
	m.Status = p.Status
	m.CompletedAt = p.CompletedAt
	m.FailureReason = p.FailureReason
}

// PaymentModelFromDomain creates a new persistence model from a domain Payment aggregate.
func PaymentModelFromDomain(p *billing.Payment) *PaymentModel {
	m := &PaymentModel{}
	m.FromDomain(p)
	return m
}
