package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and platform clients return
// these (optionally wrapped) so services can translate them into domain errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: row or entity does not exist in the store
// - ErrExpired: credential exists but is past its TTL
// - ErrAlreadyUsed: single-use credential already consumed
// - ErrConflict: entity in a state that rejects the requested write
// - ErrUnavailable: backing store or connection is down
//
// For validation errors (bad input, missing fields), use pkg/domainerrors directly.
var (
	ErrNotFound    = errors.New("not found")
	ErrExpired     = errors.New("expired")
	ErrAlreadyUsed = errors.New("already used")
	ErrConflict    = errors.New("conflict")
	ErrUnavailable = errors.New("unavailable")
)
