package log

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureInit(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	Init(Config{Level: DebugLevel, JSONOutput: true, Output: buf})
	return buf
}

func lastLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.NotEmpty(t, lines)
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(lines[len(lines)-1], &entry))
	return entry
}

func TestEntityHelpersChainDirectly(t *testing.T) {
	buf := captureInit(t)

	tests := []struct {
		name  string
		log   func()
		field string
		want  string
	}{
		{"component", func() { WithComponent("broker").Info().Msg("up") }, "component", "broker"},
		{"node", func() { WithNodeID("n-1").Warn().Msg("slow") }, "node_id", "n-1"},
		{"workspace", func() { WithWorkspaceID("ws-1").Debug().Msg("resolved") }, "workspace_id", "ws-1"},
		{"token", func() { WithTokenID("tok-1").Info().Msg("minted") }, "token_id", "tok-1"},
		{"user", func() { WithUserID("u-1").Error().Msg("rejected") }, "user_id", "u-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()
			tt.log()
			entry := lastLine(t, buf)
			assert.Equal(t, tt.want, entry[tt.field])
		})
	}
}

func TestChildLoggerReusable(t *testing.T) {
	buf := captureInit(t)

	logger := WithComponent("index")
	logger.Info().Str("round", "r-1").Msg("opened")
	logger.Info().Str("round", "r-1").Msg("closed")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	assert.Len(t, lines, 2)
	entry := lastLine(t, buf)
	assert.Equal(t, "index", entry["component"])
	assert.Equal(t, "r-1", entry["round"])
}

func TestInitLevelFiltering(t *testing.T) {
	buf := captureInit(t)
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	Init(Config{Level: WarnLevel, JSONOutput: true, Output: buf})
	Info("dropped")
	Warn("kept")

	entry := lastLine(t, buf)
	assert.Equal(t, "kept", entry["message"])
	assert.NotContains(t, buf.String(), "dropped")
}
