package transfer

import (
	"fmt"
	"time"
)

// Collision policies for a received file whose name already exists in the
// output directory.
const (
	CollisionRename    = "rename"
	CollisionOverwrite = "overwrite"
	CollisionReject    = "reject"
)

const (
	DefaultPort         = 12345
	DefaultChunkSize    = 4096
	MinChunkSize        = 1
	MaxChunkSize        = 1024 * 1024
	DefaultMaxFrameSize = 16 * 1024 * 1024

	DefaultSenderName   = "DeskTransfer Sender"
	DefaultReceiverName = "DeskTransfer Receiver"
)

// TransferConfig holds everything a sender or receiver session needs to know
// that is not part of a single request.
type TransferConfig struct {
	Port         int    `json:"port" mapstructure:"port"`
	ChunkSize    int    `json:"chunk_size" mapstructure:"chunk_size"`
	MaxFrameSize uint32 `json:"max_frame_size" mapstructure:"max_frame_size"`

	// Framing is the framing this end asks for in its handshake. The default
	// json framing is what every peer understands.
	Framing         string `json:"framing" mapstructure:"framing"`
	CollisionPolicy string `json:"collision_policy" mapstructure:"collision_policy"`

	IOTimeout   time.Duration `json:"io_timeout" mapstructure:"io_timeout"`
	DialTimeout time.Duration `json:"dial_timeout" mapstructure:"dial_timeout"`

	MaxConnections  int `json:"max_connections" mapstructure:"max_connections"`
	EventBufferSize int `json:"event_buffer_size" mapstructure:"event_buffer_size"`

	ClientName string `json:"client_name" mapstructure:"client_name"`
}

// DefaultTransferConfig returns the stock port and chunk size with
// conservative timeouts.
func DefaultTransferConfig() *TransferConfig {
	return &TransferConfig{
		Port:            DefaultPort,
		ChunkSize:       DefaultChunkSize,
		MaxFrameSize:    DefaultMaxFrameSize,
		Framing:         FramingJSON,
		CollisionPolicy: CollisionRename,
		IOTimeout:       30 * time.Second,
		DialTimeout:     10 * time.Second,
		MaxConnections:  16,
		EventBufferSize: 64,
	}
}

// Validate checks if the configuration values are valid
func (tc *TransferConfig) Validate() error {
	if tc.Port <= 0 || tc.Port > 65535 {
		return &ValidationError{Field: "port", Reason: fmt.Sprintf("%d is outside 1-65535", tc.Port)}
	}
	if tc.ChunkSize < MinChunkSize || tc.ChunkSize > MaxChunkSize {
		return &ValidationError{Field: "chunk_size", Reason: fmt.Sprintf("must be between %d and %d", MinChunkSize, MaxChunkSize)}
	}
	// A chunk plus the largest data header must still fit in one frame.
	if uint64(tc.ChunkSize)+uint64(len(fileDataHeader)) > uint64(tc.MaxFrameSize) {
		return &ValidationError{Field: "max_frame_size", Reason: "smaller than one chunk plus its header"}
	}
	if _, err := NewCodec(tc.Framing); err != nil {
		return err
	}
	switch tc.CollisionPolicy {
	case CollisionRename, CollisionOverwrite, CollisionReject:
	default:
		return &ValidationError{Field: "collision_policy", Reason: fmt.Sprintf("unknown policy %q", tc.CollisionPolicy)}
	}
	if tc.IOTimeout < 0 || tc.DialTimeout < 0 {
		return &ValidationError{Field: "timeout", Reason: "cannot be negative"}
	}
	if tc.MaxConnections <= 0 {
		return &ValidationError{Field: "max_connections", Reason: "must be positive"}
	}
	if tc.EventBufferSize < 0 {
		return &ValidationError{Field: "event_buffer_size", Reason: "cannot be negative"}
	}
	return nil
}

// NameOr returns the configured client name, or fallback when none is set.
func (tc *TransferConfig) NameOr(fallback string) string {
	if tc.ClientName != "" {
		return tc.ClientName
	}
	return fallback
}
