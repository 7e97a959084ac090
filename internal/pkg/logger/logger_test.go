package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_WritesJSONAndRedacts(t *testing.T) {
	var buf bytes.Buffer
	l := &Logger{level: INFO, out: &buf, redact: true}

	l.With("component", "tracking").Info("click", "client_ip", "203.0.113.42", "app_secret", "s3cr3tvalue", "offer", "123")
	l.Debug("dropped")

	var entry map[string]string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "click", entry["msg"])
	assert.Equal(t, "tracking", entry["component"])
	assert.Equal(t, "203.0.113.0", entry["client_ip"])
	assert.Equal(t, "s3cr***", entry["app_secret"])
	assert.Equal(t, "123", entry["offer"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DEBUG, ParseLevel("debug"))
	assert.Equal(t, WARN, ParseLevel("WARN"))
	assert.Equal(t, INFO, ParseLevel("verbose"))
}

func TestRedactIP(t *testing.T) {
	assert.Equal(t, "2001:db8::", RedactIP("2001:db8::1"))
	assert.Equal(t, "***", RedactIP("not-an-ip"))
}
