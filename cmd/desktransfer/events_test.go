package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/rescp17/deskTransfer/pkg/transfer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stream(events ...transfer.Event) <-chan transfer.Event {
	ch := make(chan transfer.Event, len(events))
	for _, ev := range events {
		ch <- ev
	}
	close(ch)
	return ch
}

func TestPrintEvents(t *testing.T) {
	var buf bytes.Buffer
	err := printEvents(&buf, stream(
		transfer.ConnectedEvent{SessionID: "s", Peer: "10.0.0.2:12345", PeerName: "desk"},
		transfer.ProgressEvent{SessionID: "s", FileName: "a.png", CurrentFile: 1, FileCount: 2, Bytes: 100, Size: 1000, Percent: 10},
		transfer.ProgressEvent{SessionID: "s", FileName: "a.png", CurrentFile: 1, FileCount: 2, Bytes: 150, Size: 1000, Percent: 15},
		transfer.ProgressEvent{SessionID: "s", FileName: "a.png", CurrentFile: 1, FileCount: 2, Bytes: 1000, Size: 1000, Percent: 100},
		transfer.FileCompleteEvent{SessionID: "s", FileName: "a.png", Size: 1000},
		transfer.FileFailedEvent{SessionID: "s", FileName: "b.png", Err: errors.New("permission denied")},
		transfer.PeerErrorEvent{SessionID: "s", Message: "disk full"},
		transfer.BatchCompleteEvent{SessionID: "s", Files: []transfer.FileRecord{{Name: "a.png", Size: 1000}}, TotalBytes: 1000, Failed: 1},
	))
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "connected: desk (10.0.0.2:12345)\n")
	assert.Contains(t, out, "[1/2] a.png  10% (100 B of 1000 B)\n")
	assert.NotContains(t, out, " 15%", "progress within the same tenth is not repeated")
	assert.Contains(t, out, "[1/2] a.png 100%")
	assert.Contains(t, out, "done: a.png (1000 B)\n")
	assert.Contains(t, out, "failed: b.png: permission denied\n")
	assert.Contains(t, out, "peer error: disk full\n")
	assert.Contains(t, out, "batch complete: 1 files, 1000 B, 1 failed\n")
}

func TestPrintEvents_ReturnsSessionError(t *testing.T) {
	var buf bytes.Buffer
	err := printEvents(&buf, stream(transfer.SessionErrorEvent{Err: transfer.ErrCancelled}))
	assert.ErrorIs(t, err, transfer.ErrCancelled)
	assert.Contains(t, buf.String(), "session ended")
}

func TestTap(t *testing.T) {
	var seen []transfer.Event
	out := tap(stream(transfer.ConnectedEvent{}, transfer.BatchCompleteEvent{}), func(ev transfer.Event) {
		seen = append(seen, ev)
	})

	var got []transfer.Event
	for ev := range out {
		got = append(got, ev)
	}
	assert.Len(t, got, 2)
	assert.Equal(t, got, seen)
}
