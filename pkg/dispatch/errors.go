package dispatch

import "errors"

var (
	// ErrModuleAlreadyRegistered indicates duplicate module registration.
	ErrModuleAlreadyRegistered = errors.New("dispatch: module already registered")
	// ErrCommandAlreadyRegistered indicates two modules declared the same command.
	ErrCommandAlreadyRegistered = errors.New("dispatch: command already registered")
	// ErrServiceAlreadyRegistered indicates duplicate service registration.
	ErrServiceAlreadyRegistered = errors.New("dispatch: service already registered")
	// ErrServiceNotFound indicates a service lookup miss.
	ErrServiceNotFound = errors.New("dispatch: service not found")
	// ErrUnsupportedUpdate indicates an update carrying no routable payload.
	ErrUnsupportedUpdate = errors.New("dispatch: unsupported update")
	// ErrHookPanicked indicates a lifecycle hook or registrar that panicked.
	ErrHookPanicked = errors.New("dispatch: panic recovered")
	// ErrNoCallbackMessage indicates a callback query without an attached message.
	ErrNoCallbackMessage = errors.New("dispatch: callback query has no message")
)
