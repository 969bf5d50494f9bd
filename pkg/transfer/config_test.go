package transfer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTransferConfig(t *testing.T) {
	config := DefaultTransferConfig()
	require.NotNil(t, config)
	require.NoError(t, config.Validate())

	assert.Equal(t, 12345, config.Port)
	assert.Equal(t, 4096, config.ChunkSize)
	assert.Equal(t, FramingJSON, config.Framing)
	assert.Equal(t, CollisionRename, config.CollisionPolicy)
	assert.Positive(t, config.IOTimeout)
	assert.Positive(t, config.DialTimeout)
}

func TestTransferConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*TransferConfig)
		field  string
	}{
		{"port zero", func(c *TransferConfig) { c.Port = 0 }, "port"},
		{"port too large", func(c *TransferConfig) { c.Port = 70000 }, "port"},
		{"chunk size zero", func(c *TransferConfig) { c.ChunkSize = 0 }, "chunk_size"},
		{"chunk size too large", func(c *TransferConfig) { c.ChunkSize = MaxChunkSize + 1 }, "chunk_size"},
		{"frame smaller than chunk", func(c *TransferConfig) { c.MaxFrameSize = 1024 }, "max_frame_size"},
		{"unknown framing", func(c *TransferConfig) { c.Framing = "xml" }, "framing"},
		{"unknown collision policy", func(c *TransferConfig) { c.CollisionPolicy = "merge" }, "collision_policy"},
		{"negative io timeout", func(c *TransferConfig) { c.IOTimeout = -time.Second }, "timeout"},
		{"negative dial timeout", func(c *TransferConfig) { c.DialTimeout = -time.Second }, "timeout"},
		{"no connections", func(c *TransferConfig) { c.MaxConnections = 0 }, "max_connections"},
		{"negative event buffer", func(c *TransferConfig) { c.EventBufferSize = -1 }, "event_buffer_size"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultTransferConfig()
			tt.modify(config)

			err := config.Validate()
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestTransferConfig_ValidVariants(t *testing.T) {
	config := DefaultTransferConfig()
	config.Framing = FramingTagged
	config.CollisionPolicy = CollisionReject
	config.ChunkSize = MaxChunkSize
	config.IOTimeout = 0
	assert.NoError(t, config.Validate())
}

func TestTransferConfig_NameOr(t *testing.T) {
	config := DefaultTransferConfig()
	assert.Equal(t, DefaultSenderName, config.NameOr(DefaultSenderName))

	config.ClientName = "Studio PC"
	assert.Equal(t, "Studio PC", config.NameOr(DefaultSenderName))
}
