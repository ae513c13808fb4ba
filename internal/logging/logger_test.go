package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"concertdesk/internal/logging"

	"github.com/stretchr/testify/require"
)

func TestWithContextAddsIDs(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(logging.Config{Level: "debug", Output: &buf})

	ctx := logging.ContextWithRequestID(context.Background(), "req-1")
	ctx = logging.ContextWithUserID(ctx, 42)
	logger.WithContext(ctx).Info().Msg("hello")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "req-1", line["request_id"])
	require.EqualValues(t, 42, line["user_id"])
	require.Equal(t, "hello", line["message"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(logging.Config{Level: "warn", Output: &buf})

	logger.Info().Msg("dropped")
	require.Zero(t, buf.Len())

	logger.HTTPRequest(context.Background(), "GET", "/x", 404, time.Millisecond)
	require.Contains(t, buf.String(), `"status_code":404`)
}

func TestInvalidLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(logging.Config{Level: "loud", Output: &buf})

	logger.Debug().Msg("dropped")
	logger.Info().Msg("kept")
	require.NotContains(t, buf.String(), "dropped")
	require.Contains(t, buf.String(), "kept")
}
