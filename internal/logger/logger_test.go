package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestInfoCtx_IncludesTraceID(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	Setup(Options{Level: "info"})

	ctx := WithTraceID(context.Background(), "trace-123")
	InfoCtx(ctx, "cycle complete")

	entry := decode(t, &buf)
	assert.Equal(t, "trace-123", entry["trace_id"])
	assert.Equal(t, "cycle complete", entry["msg"])
}

func TestWithLoop_Field(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	Setup(Options{Level: "debug"})

	WithLoop("sampling").Warn("probe failed")

	entry := decode(t, &buf)
	assert.Equal(t, "sampling", entry["loop"])
	assert.Equal(t, "warning", entry["level"])
}

func TestSetup_InvalidLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	Setup(Options{Level: "verbose"})

	Debug("hidden")
	assert.Empty(t, buf.String())
}

func TestSetup_ServiceField(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	Setup(Options{Level: "info", Service: "predictive-scaler"})
	defer Setup(Options{Level: "info"})

	WithSource("cpu").Info("probe ok")
	entry := decode(t, &buf)
	assert.Equal(t, "predictive-scaler", entry["service"])
	assert.Equal(t, "cpu", entry["source"])

	buf.Reset()
	Setup(Options{Level: "info"})
	Info("plain")
	assert.NotContains(t, decode(t, &buf), "service")
}
