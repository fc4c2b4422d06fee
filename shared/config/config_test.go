package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("CHATANGO_USERNAME", "bot")
	t.Setenv("CHATANGO_PASSWORD", "secret")
	t.Setenv("CHATANGO_ROOMS", "roomone,roomtwo")
	t.Setenv("CHATANGO_PM", "true")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "bot", cfg.Chatango.Username)
	assert.Equal(t, []string{"roomone", "roomtwo"}, cfg.Chatango.Rooms)
	assert.True(t, cfg.Chatango.UsePM)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format, "defaults apply when unset")
}

func TestLoadConfigValidation(t *testing.T) {
	t.Setenv("CHATANGO_USERNAME", "")
	t.Setenv("CHATANGO_PASSWORD", "")
	t.Setenv("CHATANGO_ROOMS", "roomone")
	t.Setenv("CHATANGO_PM", "true")

	_, err := LoadConfig()
	require.Error(t, err, "PM without credentials must fail validation")
}
