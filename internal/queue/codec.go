package queue

import (
	"encoding/base64"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"

	"event-worker/internal/model"
)

const (
	contentType     = "application/json"
	contentEncoding = "utf-8"
	bodyEncoding    = "base64"
)

// EncodeMessage wraps a task into a kombu envelope bound for the given queue.
// The task is written as a protocol v1 message, the format gocelery producers use.
func EncodeMessage(task *model.Task, queue string) ([]byte, error) {
	if task.Args == nil {
		task.Args = []any{}
	}
	if task.Kwargs == nil {
		task.Kwargs = map[string]any{}
	}
	body, err := json.Marshal(task)
	if err != nil {
		return nil, errors.Wrapf(err, "encode task %s", task.ID)
	}

	env := model.Envelope{
		Body:            base64.StdEncoding.EncodeToString(body),
		Headers:         map[string]any{},
		ContentType:     contentType,
		ContentEncoding: contentEncoding,
		Properties: model.Properties{
			BodyEncoding:  bodyEncoding,
			CorrelationID: task.ID,
			ReplyTo:       task.ID,
			DeliveryInfo: model.DeliveryInfo{
				RoutingKey: queue,
				Exchange:   queue,
			},
			DeliveryMode: 2,
			DeliveryTag:  task.ID,
		},
	}
	return json.Marshal(env)
}

// DecodeMessage extracts the task from a kombu envelope.
// Both protocol v1 (task message in the body) and protocol v2 (task name and id
// in the headers, body holding [args, kwargs, embed]) are accepted.
func DecodeMessage(data []byte) (*model.Task, error) {
	var env model.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, errors.Wrap(err, "decode envelope")
	}
	if env.ContentType != contentType {
		return nil, errors.Errorf("unsupported content type %q", env.ContentType)
	}
	if env.ContentEncoding != "" && env.ContentEncoding != contentEncoding {
		return nil, errors.Errorf("unsupported content encoding %q", env.ContentEncoding)
	}

	body := []byte(env.Body)
	switch env.Properties.BodyEncoding {
	case bodyEncoding:
		decoded, err := base64.StdEncoding.DecodeString(env.Body)
		if err != nil {
			return nil, errors.Wrap(err, "decode body")
		}
		body = decoded
	case "":
	default:
		return nil, errors.Errorf("unsupported body encoding %q", env.Properties.BodyEncoding)
	}

	var (
		task *model.Task
		err  error
	)
	if name, ok := env.Headers["task"].(string); ok {
		task, err = decodeV2(name, env.Headers, body)
	} else {
		task = new(model.Task)
		err = errors.Wrap(json.Unmarshal(body, task), "decode task")
	}
	if err != nil {
		return nil, err
	}

	if task.ID == "" {
		return nil, errors.New("task message has no id")
	}
	if task.Name == "" {
		return nil, errors.Errorf("task message %s has no task name", task.ID)
	}
	if task.Args == nil {
		task.Args = []any{}
	}
	return task, nil
}

func decodeV2(name string, headers map[string]any, body []byte) (*model.Task, error) {
	var parts []json.RawMessage
	if err := json.Unmarshal(body, &parts); err != nil {
		return nil, errors.Wrap(err, "decode task body")
	}
	if len(parts) < 2 {
		return nil, errors.Errorf("task body has %d parts, want at least 2", len(parts))
	}

	task := &model.Task{Name: name}
	task.ID, _ = headers["id"].(string)
	if err := json.Unmarshal(parts[0], &task.Args); err != nil {
		return nil, errors.Wrap(err, "decode task args")
	}
	if err := json.Unmarshal(parts[1], &task.Kwargs); err != nil {
		return nil, errors.Wrap(err, "decode task kwargs")
	}
	if retries, ok := headers["retries"].(float64); ok {
		task.Retries = int(retries)
	}
	if eta, ok := headers["eta"].(string); ok {
		task.ETA = &eta
	}
	if expires, ok := headers["expires"].(string); ok {
		t, err := model.ParseISOTime(expires)
		if err != nil {
			return nil, errors.Wrapf(err, "task %s expires", task.ID)
		}
		task.Expires = &model.ISOTime{Time: t}
	}
	return task, nil
}
