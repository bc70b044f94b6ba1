package models

import "errors"

// Domain error taxonomy. All are expected, recoverable conditions surfaced to
// the caller; none are process-fatal. Services wrap these with context via
// fmt.Errorf("...: %w", err) so call sites can still match with errors.Is.
var (
	// ErrNotAllowed means a permission predicate rejected the acting user.
	// Never retried automatically; handlers map it to 403.
	ErrNotAllowed = errors.New("not allowed")

	// ErrAlreadyAwarded means the uniqueness invariant for a unique badge
	// would be violated. The lenient award path converts this into returning
	// the existing award; strict paths propagate it.
	ErrAlreadyAwarded = errors.New("badge already awarded")

	// ErrNotFound means the referenced badge, award, nomination or deferred
	// award does not exist under the given key.
	ErrNotFound = errors.New("not found")

	// ErrGrantNotAllowed is the deferred-award flavor of ErrNotAllowed, kept
	// distinct so callers can tell grant denial from ordinary award denial.
	ErrGrantNotAllowed = errors.New("grant not allowed")

	// ErrClaimThrottled means the user exhausted their claim attempt budget
	// for the current window. Handlers map it to 429.
	ErrClaimThrottled = errors.New("claim attempts throttled")
)
