package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTagsBecomeFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriter(&buf)

	log.Info("hello", "key", "value", "n", 3)

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "hello", line["message"])
	assert.Equal(t, "value", line["key"])
	assert.Equal(t, float64(3), line["n"])
	assert.Equal(t, "info", line["level"])
}

func TestOddTagsIgnored(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriter(&buf)

	log.Warn("odd", "only-key")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "odd", line["message"])
	assert.NotContains(t, line, "only-key")
}

func TestNopDiscards(t *testing.T) {
	log := NewNop()
	log.Error("nothing happens")
}
