package retrieval

import "errors"

var (
	// ErrConsistencyViolation is returned when retrieved data contradicts
	// the resolved intent it was retrieved for. A payload is never assembled
	// from contradicting parts; the turn fails instead.
	ErrConsistencyViolation = errors.New("retrieved data contradicts the resolved intent")

	// ErrStoreUnavailable is returned when a backing store cannot be
	// reached. The caller distinguishes this from "no data", which is a
	// valid empty result.
	ErrStoreUnavailable = errors.New("backing store unavailable")
)
