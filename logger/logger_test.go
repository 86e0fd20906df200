package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"litoralcitrus/config"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel("warn"))
	assert.Equal(t, zerolog.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("verbose"))
}

func TestNew_JSONOutput(t *testing.T) {
	cfg := &config.Config{
		Server:  config.ServerConfig{Environment: "production"},
		Logging: config.LoggingConfig{Level: "warn", Format: "json"},
	}
	var buf bytes.Buffer
	log := newWithWriter(cfg, &buf)

	log.Info().Msg("dropped")
	log.Warn().Str("plant", "formosa").Msg("kept")

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "kept", line["message"])
	assert.Equal(t, "litoralcitrus", line["service"])
	assert.Equal(t, "formosa", line["plant"])
}
