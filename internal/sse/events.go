package sse

// SSE event names sent on a room stream
const (
	EventReady  = "ready"
	EventChange = "change"
	EventClosed = "closed"
)
