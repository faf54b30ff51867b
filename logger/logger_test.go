package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Setup(Config{Level: "debug", Format: "json", Output: &buf}))

	log := WithComponent("ledger")
	log.Info().Uint("invoice_id", 3).Msg("payment applied")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "ledger", entry["component"])
	assert.Equal(t, "payment applied", entry["message"])
	assert.Equal(t, float64(3), entry["invoice_id"])
}

func TestSetupRejectsUnknownLevel(t *testing.T) {
	assert.Error(t, Setup(Config{Level: "loud"}))
}
