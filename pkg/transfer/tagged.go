package transfer

import (
	"encoding/binary"
	"fmt"
)

// Type tags used by the tagged framing.
const (
	tagHandshake byte = 0x01
	tagFileInfo  byte = 0x02
	tagFileData  byte = 0x03
	tagFileEnd   byte = 0x04
	tagBatchEnd  byte = 0x05
	tagError     byte = 0x06
)

const bodyLenSize = 4

var tagByType = map[MessageType]byte{
	Handshake: tagHandshake,
	FileInfo:  tagFileInfo,
	FileData:  tagFileData,
	FileEnd:   tagFileEnd,
	BatchEnd:  tagBatchEnd,
	Error:     tagError,
}

var typeByTag = map[byte]MessageType{
	tagHandshake: Handshake,
	tagFileInfo:  FileInfo,
	tagFileData:  FileData,
	tagFileEnd:   FileEnd,
	tagBatchEnd:  BatchEnd,
	tagError:     Error,
}

// TaggedCodec encodes payloads as TAG(1) || BODY. File data bodies are
// BODYLEN(4, big-endian) || raw bytes, every other body is the JSON object the
// json framing would send.
type TaggedCodec struct{}

func NewTaggedCodec() *TaggedCodec {
	return &TaggedCodec{}
}

func (t *TaggedCodec) Marshal(msg Message) ([]byte, error) {
	tag, ok := tagByType[msg.Type()]
	if !ok {
		return nil, fmt.Errorf("no tag for message type %q", msg.Type())
	}

	if m, ok := msg.(FileDataMessage); ok {
		payload := make([]byte, 1+bodyLenSize, 1+bodyLenSize+len(m.Data))
		payload[0] = tag
		binary.BigEndian.PutUint32(payload[1:], uint32(len(m.Data)))
		return append(payload, m.Data...), nil
	}

	body, err := marshalJSONBody(msg)
	if err != nil {
		return nil, err
	}
	payload := make([]byte, 0, 1+len(body))
	payload = append(payload, tag)
	return append(payload, body...), nil
}

func (t *TaggedCodec) Unmarshal(payload []byte) (Message, error) {
	if len(payload) == 0 {
		return nil, protocolErrorf("decode", "empty payload")
	}
	msgType, ok := typeByTag[payload[0]]
	if !ok {
		return nil, &ProtocolError{Op: "decode", Err: fmt.Errorf("%w: tag 0x%02x", ErrUnknownMessage, payload[0])}
	}
	body := payload[1:]

	if msgType == FileData {
		if len(body) < bodyLenSize {
			return nil, protocolErrorf("decode", "file_data body shorter than its length field")
		}
		n := binary.BigEndian.Uint32(body)
		data := body[bodyLenSize:]
		if uint64(n) != uint64(len(data)) {
			return nil, protocolErrorf("decode", "file_data length field says %d bytes, frame carries %d", n, len(data))
		}
		return FileDataMessage{Data: data}, nil
	}

	fields, err := decodeObject(body)
	if err != nil {
		return nil, &ProtocolError{Op: "decode", Err: fmt.Errorf("invalid %s body: %w", msgType, err)}
	}
	bodyType, err := envelopeType(fields)
	if err != nil {
		return nil, err
	}
	if bodyType != msgType {
		return nil, protocolErrorf("decode", "tag says %s, body says %q", msgType, bodyType)
	}
	return unmarshalJSONBody(msgType, body)
}

func (t *TaggedCodec) Name() string {
	return FramingTagged
}

func (t *TaggedCodec) IsBinary() bool {
	return true
}
