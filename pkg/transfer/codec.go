package transfer

import "fmt"

const (
	// FramingJSON is the wire-compatible framing: JSON payloads, with file data
	// appended raw after a fixed JSON header.
	FramingJSON = "json"
	// FramingTagged prefixes every payload with a one-byte type tag and gives
	// file data an explicit length. It is only used after both handshakes agree.
	FramingTagged = "tagged"
)

// Codec converts messages to and from frame payloads (the bytes after the
// 4-byte length prefix).
type Codec interface {
	Marshal(msg Message) ([]byte, error)
	Unmarshal(payload []byte) (Message, error)
	Name() string
	IsBinary() bool
}

// NewCodec returns the codec for a framing name.
func NewCodec(framing string) (Codec, error) {
	switch framing {
	case FramingJSON, "":
		return NewJSONCodec(), nil
	case FramingTagged:
		return NewTaggedCodec(), nil
	default:
		return nil, &ValidationError{Field: "framing", Reason: fmt.Sprintf("unknown framing %q", framing)}
	}
}
