package transfer

import "path/filepath"

type MessageType string

const (
	Handshake MessageType = "handshake"
	FileInfo  MessageType = "file_info"
	FileData  MessageType = "file_data"
	FileEnd   MessageType = "file_end"
	BatchEnd  MessageType = "batch_end"
	Error     MessageType = "error"
)

// Message is one decoded frame. The set of implementations is closed: only the
// types in this file satisfy it.
type Message interface {
	Type() MessageType
	isMessage()
}

// HandshakeMessage is the first message sent by both ends of a connection.
// Framing is only set when the sender wants to switch away from the default
// json framing; peers that do not understand it never see the key.
type HandshakeMessage struct {
	ClientName string `json:"client_name"`
	Framing    string `json:"framing,omitempty"`
}

// FileInfoMessage announces the next file of the batch.
type FileInfoMessage struct {
	Filename    string `json:"filename"`
	Filesize    uint64 `json:"filesize"`
	FileCount   uint32 `json:"file_count"`
	CurrentFile uint32 `json:"current_file"`
}

// FileDataMessage carries one chunk of the current file.
type FileDataMessage struct {
	Data []byte `json:"-"`
}

type FileEndMessage struct{}

type BatchEndMessage struct{}

// ErrorMessage is informational. It never terminates a session by itself.
type ErrorMessage struct {
	ErrorMsg string `json:"error_msg"`
}

func (HandshakeMessage) Type() MessageType { return Handshake }
func (FileInfoMessage) Type() MessageType  { return FileInfo }
func (FileDataMessage) Type() MessageType  { return FileData }
func (FileEndMessage) Type() MessageType   { return FileEnd }
func (BatchEndMessage) Type() MessageType  { return BatchEnd }
func (ErrorMessage) Type() MessageType     { return Error }

func (HandshakeMessage) isMessage() {}
func (FileInfoMessage) isMessage()  {}
func (FileDataMessage) isMessage()  {}
func (FileEndMessage) isMessage()   {}
func (BatchEndMessage) isMessage()  {}
func (ErrorMessage) isMessage()     {}

// NewFileInfo builds a FileInfoMessage, stripping any directory part of name.
func NewFileInfo(name string, size uint64, count, current uint32) FileInfoMessage {
	return FileInfoMessage{
		Filename:    filepath.Base(name),
		Filesize:    size,
		FileCount:   count,
		CurrentFile: current,
	}
}
