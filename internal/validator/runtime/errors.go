package runtime

import "errors"

var (
	errHandleType  = errors.New("runtime handle has unexpected type")
	errPending     = errors.New("submission still queued")
	errUnavailable = errors.New("remote execution service is unavailable")
)
