package browser

import (
	"errors"
	"fmt"
)

var (
	// ErrPoolExhausted means every instance is at its page cap and the
	// instance cap forbids creating another. Callers must back off.
	ErrPoolExhausted = errors.New("browser pool exhausted")

	// ErrPoolClosed is returned by Acquire after Shutdown.
	ErrPoolClosed = errors.New("browser pool closed")
)

// LaunchError reports that starting a browser instance failed after the
// configured number of retries. It is retriable at the job level.
type LaunchError struct {
	Attempts int
	Err      error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("browser launch failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }
