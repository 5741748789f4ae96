// Package memory provides in-memory implementations of the billing
// repositories, selected via the "memory" database driver.
//
// The repositories honor the same contracts as their GORM counterparts,
// including optimistic locking, so application behavior is identical. They
// are meant for local development and integration-style tests; nothing
// survives a process restart.
package memory
