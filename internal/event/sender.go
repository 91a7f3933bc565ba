// Package event implements the send_event task: deliver a JSON event body to
// a subscriber URL with an HTTP POST.
package event

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"event-worker/internal/worker"
)

// TaskName is the name producers publish send_event invocations under.
const TaskName = "worker.send_event"

// Sender posts event bodies to their targets.
type Sender struct {
	Client *http.Client
	Log    logrus.FieldLogger
}

func NewSender(client *http.Client, log logrus.FieldLogger) *Sender {
	if client == nil {
		client = &http.Client{}
	}
	return &Sender{Client: client, Log: log}
}

// Send parses body, POSTs it as JSON to the normalized url and returns the
// response status code. A non-2xx status is not an error. Malformed bodies
// fail with *ParseError before any request is made.
func (s *Sender) Send(ctx context.Context, url, body string) (int, error) {
	value, err := ParseValue([]byte(body))
	if err != nil {
		return 0, &ParseError{Body: body, Err: err}
	}
	s.Log.WithField("body", value).Info("Parsed event body")

	target := NormalizeURL(url)
	payload, err := value.MarshalJSON()
	if err != nil {
		return 0, errors.Wrap(err, "encode event body")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload))
	if err != nil {
		return 0, errors.Wrapf(err, "build request for %s", target)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return 0, errors.Wrapf(err, "post event to %s", target)
	}
	defer resp.Body.Close()
	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, resp.Body)

	s.Log.WithFields(logrus.Fields{
		"url":    target,
		"status": resp.StatusCode,
	}).Info("Event delivered")
	return resp.StatusCode, nil
}

// Task adapts Send to the dispatcher. The url and body arguments may be given
// positionally or by keyword.
func (s *Sender) Task() worker.TaskFunc {
	return func(ctx context.Context, args []any, kwargs map[string]any) (any, error) {
		url, body, err := sendEventArgs(args, kwargs)
		if err != nil {
			return nil, err
		}
		if _, err := s.Send(ctx, url, body); err != nil {
			return nil, err
		}
		return nil, nil
	}
}

func sendEventArgs(args []any, kwargs map[string]any) (url, body string, err error) {
	if len(args) > 2 {
		return "", "", &ArgumentError{Reason: "takes 2 positional arguments but more were given"}
	}
	params := [2]string{"url", "body"}
	values := [2]string{}
	for i, name := range params {
		var (
			v  any
			ok bool
		)
		if i < len(args) {
			v, ok = args[i], true
			if _, dup := kwargs[name]; dup {
				return "", "", &ArgumentError{Reason: "got multiple values for argument '" + name + "'"}
			}
		} else {
			v, ok = kwargs[name]
		}
		if !ok {
			return "", "", &ArgumentError{Reason: "missing required argument '" + name + "'"}
		}
		str, isString := v.(string)
		if !isString {
			return "", "", &ArgumentError{Reason: "argument '" + name + "' must be a string"}
		}
		values[i] = str
	}
	for k := range kwargs {
		if k != params[0] && k != params[1] {
			return "", "", &ArgumentError{Reason: "got an unexpected keyword argument '" + k + "'"}
		}
	}
	return values[0], values[1], nil
}
