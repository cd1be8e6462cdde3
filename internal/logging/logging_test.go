package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel("warn"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("verbose"))
}

func TestRunEvents(t *testing.T) {
	var buf bytes.Buffer
	logger := WithRunID(zerolog.New(&buf), "run-42")

	LogRunFailed(logger, "missing_risk_factor", time.Millisecond, errors.New("boom"))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "run-42", entry["run_id"])
	assert.Equal(t, "run_failed", entry["event"])
	assert.Equal(t, "missing_risk_factor", entry["kind"])
	assert.Equal(t, "boom", entry["error"])
}

func TestContextLogger(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithLogger(context.Background(), zerolog.New(&buf))
	logger := FromContext(ctx)
	logger.Info().Msg("hello")
	assert.Contains(t, buf.String(), "hello")

	// A context without a logger yields a no-op logger.
	nop := FromContext(context.Background())
	nop.Info().Msg("dropped")
	assert.Equal(t, zerolog.Disabled, nop.GetLevel())
}
