package transfer

import (
	"encoding/binary"
	"fmt"
	"io"
)

// HeaderSize is the size of the big-endian length prefix of every frame.
const HeaderSize = 4

// WriteFrame writes payload prefixed with its length in a single Write call.
func WriteFrame(w io.Writer, payload []byte) error {
	frame := make([]byte, HeaderSize+len(payload))
	binary.BigEndian.PutUint32(frame, uint32(len(payload)))
	copy(frame[HeaderSize:], payload)
	_, err := w.Write(frame)
	return err
}

// ReadFrame reads one length-prefixed frame and returns its payload. Short
// reads are retried until the whole payload has arrived. A length above
// maxSize is rejected before anything is allocated; maxSize 0 disables the
// check.
func ReadFrame(r io.Reader, maxSize uint32) ([]byte, error) {
	var header [HeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(header[:])
	if maxSize > 0 && n > maxSize {
		return nil, &ProtocolError{Op: "read frame", Err: fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, n, maxSize)}
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return payload, nil
}

// Encode returns the complete frame for msg, length prefix included.
func Encode(c Codec, msg Message) ([]byte, error) {
	payload, err := c.Marshal(msg)
	if err != nil {
		return nil, err
	}
	frame := make([]byte, HeaderSize+len(payload))
	binary.BigEndian.PutUint32(frame, uint32(len(payload)))
	copy(frame[HeaderSize:], payload)
	return frame, nil
}

// Decode parses one complete frame produced by Encode.
func Decode(c Codec, frame []byte) (Message, error) {
	if len(frame) < HeaderSize {
		return nil, protocolErrorf("decode frame", "frame shorter than its length prefix")
	}
	n := binary.BigEndian.Uint32(frame)
	if uint64(n) != uint64(len(frame)-HeaderSize) {
		return nil, protocolErrorf("decode frame", "length prefix %d does not match payload size %d", n, len(frame)-HeaderSize)
	}
	return c.Unmarshal(frame[HeaderSize:])
}
