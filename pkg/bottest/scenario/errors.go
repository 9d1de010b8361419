package scenario

import "errors"

var (
	// ErrInvalidScenario indicates a scenario file that cannot be run.
	ErrInvalidScenario = errors.New("scenario: invalid scenario")
	// ErrAssertion indicates a step whose expectations did not hold.
	ErrAssertion = errors.New("scenario: assertion failed")
)
