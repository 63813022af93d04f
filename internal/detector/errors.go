// File: internal/detector/errors.go
package detector

import "errors"

var (
	// ErrUnreachable means the health preflight got no valid answer; no
	// session should be started against the service.
	ErrUnreachable = errors.New("detector service unreachable")

	// ErrUnavailable means every detection attempt failed on a transient
	// condition (network error or HTTP 5xx) and the retry budget ran out.
	ErrUnavailable = errors.New("detector service unavailable after retries")

	// ErrTimeout means the request deadline elapsed before the service
	// produced an answer.
	ErrTimeout = errors.New("detector request timed out")

	// ErrProtocol means the service answered but the body could not be
	// parsed into a detection result. Never retried.
	ErrProtocol = errors.New("detector response violates protocol")
)
