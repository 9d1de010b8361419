package bottest

import "errors"

var (
	// ErrInvalidArgument reports an argument the builders cannot turn into a
	// well-formed entity, such as an out-of-range dice value.
	ErrInvalidArgument = errors.New("bottest: invalid argument")
	// ErrClosed reports use of a client after Close.
	ErrClosed = errors.New("bottest: client closed")
	// ErrAlreadyOpen reports a second Open on the same client.
	ErrAlreadyOpen = errors.New("bottest: client already open")
)
