package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithComponentAnnotatesEntries(t *testing.T) {
	var buf bytes.Buffer
	closer := Setup(Config{Level: "debug", Output: &buf})
	assert.Nil(t, closer)

	log := WithComponent("realtime")
	log.Info().Int64("workspace_id", 7).Msg("joined")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "realtime", entry["component"])
	assert.Equal(t, "teamflow", entry["service"])
	assert.Equal(t, "joined", entry["message"])
	assert.EqualValues(t, 7, entry["workspace_id"])
}

func TestSetupRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	Setup(Config{Level: "warn", Output: &buf})
	t.Cleanup(func() { Setup(Config{Level: "info"}) })

	log := WithComponent("test")
	log.Info().Msg("hidden")
	assert.Zero(t, buf.Len())

	log.Warn().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}
