package errcode

// Error code convention for async notifications pushed to the client:
// - 0: no error
// - 4xxx: recoverable business errors (the flow continued)
// - 5xxx: system errors (the flow was aborted)
const (
	OK              = 0
	ResourceMissing = 4004
	SystemError     = 5000
)
