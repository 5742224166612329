package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and infrastructure layers return
// these (optionally wrapped) so services can translate them into domain errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: entity does not exist in store
// - ErrConflict: uniqueness constraint hit (e.g. duplicate serial number)
// - ErrInvalidState: entity in wrong state for requested operation
// - ErrVersionMismatch: optimistic concurrency token did not match on write
// - ErrUnavailable: service or resource temporarily unavailable
//
// For validation errors (bad input, missing fields), use pkg/domainerrors directly.
var (
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrInvalidState    = errors.New("invalid state")
	ErrVersionMismatch = errors.New("version mismatch")
	ErrUnavailable     = errors.New("unavailable")
)
