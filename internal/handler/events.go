package handler

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"event-worker/internal/event"
	"event-worker/internal/producer"
)

// EventRequest is the payload accepted by POST /events. Body is either a JSON
// string holding the encoded event or the event document itself.
type EventRequest struct {
	URL  string          `json:"url"`
	Body json.RawMessage `json:"body"`
}

var errBodyRequired = errors.New("body is required")

type EventHandler struct {
	producer *producer.Producer
	log      logrus.FieldLogger
}

func NewEventHandler(p *producer.Producer, log logrus.FieldLogger) *EventHandler {
	return &EventHandler{
		producer: p,
		log:      log,
	}
}

// Register mounts the event routes on r.
func (h *EventHandler) Register(r gin.IRouter) {
	r.POST("/events", h.Enqueue)
	r.GET("/events/:id", h.Result)
}

// Enqueue publishes a send_event task and answers 202 with its id.
func (h *EventHandler) Enqueue(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read request body"})
		return
	}

	var req EventRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return
	}
	if req.URL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url is required"})
		return
	}
	body, err := eventBody(req.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.producer.Delay(c.Request.Context(), event.TaskName, req.URL, body)
	if err != nil {
		h.log.WithError(err).Error("failed to enqueue event")
		// Backpressure the caller when the broker is unavailable or full.
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "system busy, please try again later"})
		return
	}

	h.log.WithFields(logrus.Fields{"task_id": result.ID, "url": req.URL}).Info("Event enqueued")
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted", "task_id": result.ID})
}

// Result reports the stored state of a task.
func (h *EventHandler) Result(c *gin.Context) {
	result, err := h.producer.AsyncResult(c.Param("id")).Result(c.Request.Context())
	if err != nil {
		h.log.WithError(err).Error("failed to load task result")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "result backend unavailable"})
		return
	}
	c.JSON(http.StatusOK, result)
}

func eventBody(raw json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "", errBodyRequired
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	return string(trimmed), nil
}
