// ABOUTME: Error taxonomy for the generation session
// ABOUTME: Transport failures, server errors, prompt filters, and warnings
package session

import "fmt"

// TransportError is a connection-level failure. Before the handshake it
// fails Connect; after the handshake it is delivered to the error callback
// and the session moves toward Closed.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ServerError is a fatal error reported by the generation service.
type ServerError struct {
	Message string
}

func (e *ServerError) Error() string {
	return "server error: " + e.Message
}

// FilteredPromptError reports a prompt rejected by the service's safety
// filter. The session keeps running; the prompt simply has no effect.
type FilteredPromptError struct {
	Text   string
	Reason string
}

func (e *FilteredPromptError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("prompt filtered: %q", e.Text)
	}
	return fmt.Sprintf("prompt filtered: %q (%s)", e.Text, e.Reason)
}

// ServerWarning is a non-fatal notice from the service, delivered through
// the error callback so glue code can toast it.
type ServerWarning struct {
	Message string
}

func (e *ServerWarning) Error() string {
	return "server warning: " + e.Message
}
