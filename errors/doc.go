// Package errors provides the structured error type used across plugwire.
// Every failure surfaced by the wiring phase is an *AppError carrying a
// machine-readable code, so callers can tell a misconfigured deployment
// (MODULE_LOAD_ERROR) from a missing factory (FACTORY_NOT_REGISTERED).
package errors
