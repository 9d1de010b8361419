package dispatch

import "fmt"

// runSafely runs a lifecycle hook or an OnRegister call. A panic becomes an
// error wrapping ErrHookPanicked; both panics and errors are prefixed with
// scope, which names the module or hook. Update handlers never pass through
// here, so their panics reach the caller of FeedUpdate.
func runSafely(scope string, fn func() error) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("%s: %w: %v", scope, ErrHookPanicked, recovered)
		}
	}()

	if err = fn(); err != nil {
		err = fmt.Errorf("%s: %w", scope, err)
	}

	return err
}
