package event

import "fmt"

// ParseError reports an event body that is not valid JSON.
type ParseError struct {
	Body string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse event body: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) ExcType() string { return "ParseError" }

// ArgumentError reports a task invocation whose arguments do not match
// send_event(url, body).
type ArgumentError struct {
	Reason string
}

func (e *ArgumentError) Error() string {
	return "send_event: " + e.Reason
}

func (e *ArgumentError) ExcType() string { return "TypeError" }
