// Package store implements the persistence boundary behind domain.Store.
// The in-memory store here serves tests and single-node development; the
// postgres subpackage is the durable implementation.
package store
