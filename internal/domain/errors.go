package domain

import "errors"

var (
	// ErrNotFound is returned when an id-keyed operation targets a missing paper.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateIdentifier signals an ingest race on the external id; callers treat it as already present.
	ErrDuplicateIdentifier = errors.New("duplicate identifier")
	// ErrUnconfigured means a credential or interest profile is missing.
	ErrUnconfigured = errors.New("not configured")
	// ErrUpstream wraps language-model transport failures and non-success replies.
	ErrUpstream = errors.New("upstream error")
	// ErrParse marks a malformed model reply. It never leaves the evaluator.
	ErrParse = errors.New("parse error")

	ErrAlreadyEvaluated = errors.New("paper already evaluated")
	ErrNotEvaluated     = errors.New("paper not evaluated")
	ErrRunInProgress    = errors.New("evaluation run in progress")
	// ErrInvalidArgument rejects malformed caller input.
	ErrInvalidArgument = errors.New("invalid argument")
)
