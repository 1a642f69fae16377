// Package domain defines core data models and interfaces shared across sotto.
// It contains plain types (wire/state) and contracts (interfaces) only.
package domain
