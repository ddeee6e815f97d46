package config

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewConfig(t *testing.T) {
	secret := base64.StdEncoding.EncodeToString([]byte("test-signing-key"))

	t.Run("valid config", func(t *testing.T) {
		cfg, err := NewConfig("localhost:8000", "host=localhost", secret, "redis://localhost:6379", []string{"http://localhost:3000"})
		assert.NoError(t, err)
		assert.Equal(t, "localhost:8000", cfg.ServerAddr)
		assert.Equal(t, "host=localhost", cfg.DatabaseDSN)
		assert.Equal(t, []byte("test-signing-key"), cfg.SigningKey)
		assert.Equal(t, "redis://localhost:6379", cfg.RedisURL)
		assert.Equal(t, []string{"http://localhost:3000"}, cfg.AllowedOrigins)
	})

	t.Run("empty redis url is allowed", func(t *testing.T) {
		cfg, err := NewConfig("localhost:8000", "host=localhost", secret, "", nil)
		assert.NoError(t, err)
		assert.Empty(t, cfg.RedisURL)
	})

	t.Run("empty server address", func(t *testing.T) {
		_, err := NewConfig("", "host=localhost", secret, "", nil)
		assert.Error(t, err)
	})

	t.Run("empty database DSN", func(t *testing.T) {
		_, err := NewConfig("localhost:8000", "", secret, "", nil)
		assert.Error(t, err)
	})

	t.Run("empty signing secret", func(t *testing.T) {
		_, err := NewConfig("localhost:8000", "host=localhost", "", "", nil)
		assert.Error(t, err)
	})

	t.Run("invalid base64 signing secret", func(t *testing.T) {
		_, err := NewConfig("localhost:8000", "host=localhost", "not base64!!!", "", nil)
		assert.Error(t, err)
	})
}
