package model

import (
	"strings"
	"time"
)

// Task states as recorded in the result backend.
const (
	StatusPending = "PENDING"
	StatusStarted = "STARTED"
	StatusSuccess = "SUCCESS"
	StatusFailure = "FAILURE"
	StatusRevoked = "REVOKED"
)

// Task is a single task invocation as carried by the broker.
// Field names follow the Celery v1 task message so producers written against
// gocelery can talk to this worker unchanged.
type Task struct {
	ID      string         `json:"id"`
	Name    string         `json:"task"`
	Args    []any          `json:"args"`
	Kwargs  map[string]any `json:"kwargs"`
	Retries int            `json:"retries"`
	ETA     *string        `json:"eta"`
	Expires *ISOTime       `json:"expires"`
}

// Expired reports whether the task carries an expiry that has already passed.
func (t *Task) Expired(now time.Time) bool {
	return t.Expires != nil && t.Expires.Before(now)
}

// ISOTime is a timestamp in the isoformat Python producers emit, with or
// without a UTC offset. Naive times are taken as UTC. It encodes as RFC 3339.
type ISOTime struct {
	time.Time
}

func (t *ISOTime) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" {
		return nil
	}
	parsed, err := ParseISOTime(strings.Trim(s, `"`))
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

// ParseISOTime parses an isoformat timestamp.
func ParseISOTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02T15:04:05.999999999", s, time.UTC)
}

// Envelope is the kombu message wrapping an encoded task on the Redis list.
type Envelope struct {
	Body            string         `json:"body"`
	Headers         map[string]any `json:"headers"`
	ContentType     string         `json:"content-type"`
	ContentEncoding string         `json:"content-encoding"`
	Properties      Properties     `json:"properties"`
}

type Properties struct {
	BodyEncoding  string       `json:"body_encoding"`
	CorrelationID string       `json:"correlation_id"`
	ReplyTo       string       `json:"reply_to"`
	DeliveryInfo  DeliveryInfo `json:"delivery_info"`
	DeliveryMode  int          `json:"delivery_mode"`
	DeliveryTag   string       `json:"delivery_tag"`
}

type DeliveryInfo struct {
	Priority   int    `json:"priority"`
	RoutingKey string `json:"routing_key"`
	Exchange   string `json:"exchange"`
}

// Result is the task state stored under celery-task-meta-<id>.
type Result struct {
	ID        string `json:"task_id"`
	Status    string `json:"status"`
	Result    any    `json:"result"`
	Traceback any    `json:"traceback"`
	Children  []any  `json:"children"`
}

// Ready reports whether the task has reached a final state.
func (r *Result) Ready() bool {
	switch r.Status {
	case StatusSuccess, StatusFailure, StatusRevoked:
		return true
	}
	return false
}

// Failure is the result payload of a failed task.
type Failure struct {
	Type    string `json:"exc_type"`
	Message string `json:"exc_message"`
}
