package mdns

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstants(t *testing.T) {
	t.Run("service type is correct", func(t *testing.T) {
		assert.Equal(t, "_openark._tcp", ServiceType)
	})

	t.Run("API version is v1", func(t *testing.T) {
		assert.Equal(t, "v1", APIVersion)
	})

	t.Run("server version is set", func(t *testing.T) {
		assert.NotEmpty(t, ServerVersion)
	})
}

func TestNewService(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	service := NewService(logger)

	require.NotNil(t, service)
	assert.Nil(t, service.server, "no avahi connection before Start")
}

func TestServiceStop(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	t.Run("stop when not started is safe", func(t *testing.T) {
		service := NewService(logger)
		service.Stop()
		assert.Nil(t, service.server)
	})

	t.Run("stop twice is safe", func(t *testing.T) {
		service := NewService(logger)
		service.Stop()
		service.Stop()
	})
}
