package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and infrastructure layers
// return these (optionally wrapped) so services can translate them into
// domain errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: entity does not exist in store
// - ErrNoClaims: claim source has no claim set for the caller (distinct from
//   a claim set with empty fields)
// - ErrExpired: claim set or token has expired
// - ErrAppendOnly: a mutation was attempted against an append-only store
// - ErrUnavailable: service or resource temporarily unavailable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors.
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrNoClaims    = errors.New("no claims")
	ErrExpired     = errors.New("expired")
	ErrAppendOnly  = errors.New("append-only")
	ErrUnavailable = errors.New("unavailable")
)
