// Package errors provides the error shape handed to code that consumes the
// Kelmah API through sessionkit.
//
// Every failure leaving a typed helper is an *AppError carrying a
// machine-readable Code and a human-readable Message suitable for display
// in an inline alert.
package errors
