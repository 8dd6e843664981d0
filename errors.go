package screendetect

import "github.com/pkg/errors"

var (
	// ErrDiscovery is returned when the target process or its window could
	// not be found at startup
	ErrDiscovery = errors.New("target discovery failed")
	// ErrTargetLost is returned when the target process exits while the loop
	// is running
	ErrTargetLost = errors.New("target process lost")
	// ErrCaptureFailure marks a failed frame grab that was not caused by a
	// stale region
	ErrCaptureFailure = errors.New("capture failure")
	// ErrReconnectFailed is returned when the target could not be found
	// again after a reconnect
	ErrReconnectFailed = errors.New("reconnect failed")
	// ErrInvalidTransition is returned by Next for an event the state does
	// not accept
	ErrInvalidTransition = errors.New("invalid state transition")
)
