package transfer

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// Chunk is one slice of a file, in send order.
type Chunk struct {
	SequenceNo uint32
	Offset     int64
	Data       []byte
	IsLast     bool
}

// Chunker reads a regular file in fixed-size pieces. The last piece may be
// shorter.
type Chunker struct {
	file       *os.File
	path       string
	chunkSize  int
	currentSeq uint32
	totalSize  int64
	bytesRead  int64
	buffer     []byte
}

var ErrIsDir = errors.New("cannot chunk a directory")

// NewChunker opens path for chunked reading. Errors are FileIOErrors.
func NewChunker(path string, chunkSize int) (*Chunker, error) {
	if chunkSize < MinChunkSize || chunkSize > MaxChunkSize {
		return nil, &ValidationError{Field: "chunk_size", Reason: fmt.Sprintf("must be between %d and %d", MinChunkSize, MaxChunkSize)}
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, &FileIOError{Op: "open", Path: path, Err: err}
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, &FileIOError{Op: "stat", Path: path, Err: err}
	}
	if info.IsDir() {
		file.Close()
		return nil, &FileIOError{Op: "open", Path: path, Err: ErrIsDir}
	}

	return &Chunker{
		file:      file,
		path:      path,
		chunkSize: chunkSize,
		totalSize: info.Size(),
		buffer:    make([]byte, chunkSize),
	}, nil
}

// Size is the file size at the time the chunker was opened.
func (c *Chunker) Size() int64 { return c.totalSize }

// BytesRead is the number of bytes handed out so far.
func (c *Chunker) BytesRead() int64 { return c.bytesRead }

// Next returns the next chunk or io.EOF once the file is exhausted. The
// returned Data is only valid until the following call.
func (c *Chunker) Next() (*Chunk, error) {
	if c.bytesRead >= c.totalSize {
		return nil, io.EOF
	}

	want := c.buffer
	if remaining := c.totalSize - c.bytesRead; remaining < int64(len(want)) {
		want = want[:remaining]
	}
	n, err := io.ReadFull(c.file, want)
	if n > 0 {
		offset := c.bytesRead
		c.bytesRead += int64(n)
		c.currentSeq++
		return &Chunk{
			SequenceNo: c.currentSeq,
			Offset:     offset,
			Data:       want[:n],
			IsLast:     c.bytesRead >= c.totalSize,
		}, nil
	}
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		// The file shrank after it was announced.
		return nil, &FileIOError{Op: "read", Path: c.path, Err: io.ErrUnexpectedEOF}
	}
	return nil, &FileIOError{Op: "read", Path: c.path, Err: err}
}

func (c *Chunker) Close() error {
	return c.file.Close()
}
