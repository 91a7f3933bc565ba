package logger

import (
	"bytes"
	"testing"

	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.elastic.co/ecslogrus"
)

func TestNewFormats(t *testing.T) {
	tests := []struct {
		format string
		want   logrus.Formatter
	}{
		{"", &logrus.TextFormatter{}},
		{FormatText, &logrus.TextFormatter{}},
		{FormatJSON, &logrus.JSONFormatter{}},
		{FormatECS, &ecslogrus.Formatter{}},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			l, err := NewWithOutput(&bytes.Buffer{}, "info", tt.format)
			require.NoError(t, err)
			assert.IsType(t, tt.want, l.Formatter)
		})
	}
}

func TestNewRejectsBadInput(t *testing.T) {
	_, err := New("loud", FormatText)
	assert.Error(t, err)

	_, err = New("info", "xml")
	assert.Error(t, err)
}

func TestJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewWithOutput(&buf, "debug", FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, l.GetLevel())

	l.WithField("status", 200).Info("Event delivered")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "Event delivered", entry["msg"])
	assert.EqualValues(t, 200, entry["status"])
}
