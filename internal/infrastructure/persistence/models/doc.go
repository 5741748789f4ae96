// Package models contains the GORM persistence models for the billing domain.
//
// Persistence models are kept separate from domain entities so that storage
// concerns (column types, indexes, JSONB serialization) never leak into the
// domain layer. Every model provides ToDomain/FromDomain conversions.
package models
