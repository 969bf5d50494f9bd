package main

import (
	"fmt"
	"io"

	"github.com/rescp17/deskTransfer/internal/util"
	"github.com/rescp17/deskTransfer/pkg/transfer"
)

// tap forwards every event from in to the returned channel after passing it
// to each hook. The returned channel is closed when in is.
func tap(in <-chan transfer.Event, hooks ...func(transfer.Event)) <-chan transfer.Event {
	out := make(chan transfer.Event, cap(in))
	go func() {
		defer close(out)
		for ev := range in {
			for _, hook := range hooks {
				hook(ev)
			}
			out <- ev
		}
	}()
	return out
}

// printEvents writes one line per event until events is closed. Progress is
// printed only when the percentage crosses a multiple of ten. It returns the
// error of the last SessionErrorEvent seen.
func printEvents(w io.Writer, events <-chan transfer.Event) error {
	var lastErr error
	shown := make(map[string]int)
	for ev := range events {
		switch e := ev.(type) {
		case transfer.ConnectedEvent:
			name := e.PeerName
			if name == "" {
				name = "unnamed peer"
			}
			fmt.Fprintf(w, "connected: %s (%s)\n", name, e.Peer)
		case transfer.ProgressEvent:
			key := fmt.Sprintf("%s/%d", e.SessionID, e.CurrentFile)
			step := e.Percent / 10
			if last, ok := shown[key]; ok && last >= step {
				continue
			}
			shown[key] = step
			fmt.Fprintf(w, "[%d/%d] %s %3d%% (%s of %s)\n", e.CurrentFile, e.FileCount, e.FileName, e.Percent,
				util.FormatSize(int64(e.Bytes)), util.FormatSize(int64(e.Size)))
		case transfer.FileCompleteEvent:
			fmt.Fprintf(w, "done: %s (%s)\n", e.FileName, util.FormatSize(int64(e.Size)))
		case transfer.FileFailedEvent:
			fmt.Fprintf(w, "failed: %s: %v\n", e.FileName, e.Err)
		case transfer.PeerErrorEvent:
			fmt.Fprintf(w, "peer error: %s\n", e.Message)
		case transfer.BatchCompleteEvent:
			fmt.Fprintf(w, "batch complete: %d files, %s, %d failed\n", len(e.Files), util.FormatSize(int64(e.TotalBytes)), e.Failed)
		case transfer.SessionErrorEvent:
			lastErr = e.Err
			fmt.Fprintf(w, "session ended: %v\n", e.Err)
		}
	}
	return lastErr
}
