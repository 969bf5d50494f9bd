package transfer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// fileDataHeader prefixes every file_data payload in json framing. It must
// never contain '}' except as its final byte: decoders find the end of the
// header by searching for the first '}'.
var fileDataHeader = []byte(`{"msg_type":"file_data"}`)

type JSONCodec struct{}

func NewJSONCodec() *JSONCodec {
	return &JSONCodec{}
}

type envelope struct {
	MsgType MessageType `json:"msg_type"`
}

type jsonHandshake struct {
	MsgType MessageType `json:"msg_type"`
	HandshakeMessage
}

type jsonFileInfo struct {
	MsgType MessageType `json:"msg_type"`
	FileInfoMessage
}

type jsonError struct {
	MsgType MessageType `json:"msg_type"`
	ErrorMessage
}

func (j *JSONCodec) Marshal(msg Message) ([]byte, error) {
	if m, ok := msg.(FileDataMessage); ok {
		payload := make([]byte, 0, len(fileDataHeader)+len(m.Data))
		payload = append(payload, fileDataHeader...)
		return append(payload, m.Data...), nil
	}
	return marshalJSONBody(msg)
}

func (j *JSONCodec) Unmarshal(payload []byte) (Message, error) {
	if fields, err := decodeObject(payload); err == nil {
		t, err := envelopeType(fields)
		if err != nil {
			return nil, err
		}
		if t != FileData {
			return unmarshalJSONBody(t, payload)
		}
	}

	// Either binary data follows the header, or the chunk happened to be
	// valid JSON whitespace. Both cases split at the first '}'.
	end := bytes.IndexByte(payload, '}')
	if end < 0 {
		return nil, protocolErrorf("decode", "payload is neither a JSON message nor a file_data header")
	}
	fields, err := decodeObject(payload[:end+1])
	if err != nil {
		return nil, &ProtocolError{Op: "decode", Err: fmt.Errorf("invalid file_data header: %w", err)}
	}
	t, err := envelopeType(fields)
	if err != nil {
		return nil, err
	}
	if t != FileData {
		return nil, protocolErrorf("decode", "expected %s header, got %q", FileData, t)
	}
	return FileDataMessage{Data: payload[end+1:]}, nil
}

const msgTypeKey = "msg_type"

// messageKeys lists the keys each JSON message carries besides msg_type.
var messageKeys = map[MessageType][]string{
	Handshake: {"client_name", "framing"},
	FileInfo:  {"filename", "filesize", "file_count", "current_file"},
	Error:     {"error_msg"},
}

func decodeObject(body []byte) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		return nil, fmt.Errorf("payload is not a JSON object")
	}
	return fields, nil
}

// envelopeType reads msg_type by its exact key. encoding/json matches keys
// without regard to case, so a key that differs from a known one only in case
// is rejected here rather than silently bound.
func envelopeType(fields map[string]json.RawMessage) (MessageType, error) {
	var t MessageType
	if raw, ok := fields[msgTypeKey]; ok {
		if err := json.Unmarshal(raw, &t); err != nil {
			return "", &ProtocolError{Op: "decode", Err: fmt.Errorf("invalid %s: %w", msgTypeKey, err)}
		}
	}
	known := append([]string{msgTypeKey}, messageKeys[t]...)
	for key := range fields {
		for _, want := range known {
			if key != want && strings.EqualFold(key, want) {
				return "", protocolErrorf("decode", "field %q must be spelled %q", key, want)
			}
		}
	}
	return t, nil
}

func (j *JSONCodec) Name() string {
	return FramingJSON
}

func (j *JSONCodec) IsBinary() bool {
	return false
}

func marshalJSONBody(msg Message) ([]byte, error) {
	var v any
	switch m := msg.(type) {
	case HandshakeMessage:
		v = jsonHandshake{MsgType: Handshake, HandshakeMessage: m}
	case FileInfoMessage:
		v = jsonFileInfo{MsgType: FileInfo, FileInfoMessage: m}
	case ErrorMessage:
		v = jsonError{MsgType: Error, ErrorMessage: m}
	case FileEndMessage, BatchEndMessage:
		v = envelope{MsgType: m.Type()}
	default:
		return nil, fmt.Errorf("cannot marshal %T as a JSON message", msg)
	}
	return json.Marshal(v)
}

func unmarshalJSONBody(t MessageType, payload []byte) (Message, error) {
	switch t {
	case Handshake:
		var m HandshakeMessage
		if err := json.Unmarshal(payload, &m); err != nil {
			return nil, &ProtocolError{Op: "decode handshake", Err: err}
		}
		return m, nil
	case FileInfo:
		var m FileInfoMessage
		if err := json.Unmarshal(payload, &m); err != nil {
			return nil, &ProtocolError{Op: "decode file_info", Err: err}
		}
		return m, nil
	case Error:
		var m ErrorMessage
		if err := json.Unmarshal(payload, &m); err != nil {
			return nil, &ProtocolError{Op: "decode error", Err: err}
		}
		return m, nil
	case FileEnd:
		return FileEndMessage{}, nil
	case BatchEnd:
		return BatchEndMessage{}, nil
	case FileData:
		return nil, protocolErrorf("decode", "file_data payload carries no data header")
	default:
		return nil, &ProtocolError{Op: "decode", Err: fmt.Errorf("%w %q", ErrUnknownMessage, t)}
	}
}
