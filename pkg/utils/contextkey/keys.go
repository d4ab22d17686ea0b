package contextkey

// key is a private type to avoid context key collisions across packages.
type key string

const (
	TraceID   key = "trace_id"
	RequestID key = "request_id"
	UserID    key = "user_id"
	// Substrate is set by the dispatcher so adapter logs carry the execution substrate.
	Substrate key = "substrate"
)

func (k key) String() string { return string(k) }
