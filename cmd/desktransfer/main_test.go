package main

import (
	"bytes"
	"context"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/rescp17/deskTransfer/pkg/receiver"
	"github.com/rescp17/deskTransfer/pkg/transfer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--log-file", filepath.Join(t.TempDir(), "test.log")))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCLI_SendPlainAndHistory(t *testing.T) {
	isolate(t)
	historyFile := filepath.Join(t.TempDir(), "history.json")
	t.Setenv("DESKTRANSFER_HISTORY_FILE", historyFile)

	outDir := t.TempDir()
	events := make(chan transfer.Event, 256)
	l := receiver.NewListener(nil, outDir, events)
	require.NoError(t, l.Listen("127.0.0.1", 0))
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = l.Serve(ctx) }()
	t.Cleanup(func() {
		cancel()
		l.Close()
		l.Wait()
	})
	port := l.Addr().(*net.TCPAddr).Port

	src := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(src, []byte("hello desk"), 0o644))

	out, err := execute(t, "send", "--plain", "--all-files", "--to", "127.0.0.1:"+strconv.Itoa(port), src)
	require.NoError(t, err)
	assert.Contains(t, out, "done: notes.txt")
	assert.Contains(t, out, "batch complete: 1 files")

	data, err := os.ReadFile(filepath.Join(outDir, "notes.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello desk", string(data))

	out, err = execute(t, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "notes.txt")
	assert.Contains(t, out, "sent")
	assert.Contains(t, out, "completed")
	assert.Contains(t, out, transfer.DefaultReceiverName)

	exported := filepath.Join(t.TempDir(), "history.txt")
	out, err = execute(t, "history", "--export", exported)
	require.NoError(t, err)
	assert.Contains(t, out, "Exported 1 records")
	text, err := os.ReadFile(exported)
	require.NoError(t, err)
	assert.Contains(t, string(text), "notes.txt\t10 B\tsent\tcompleted")

	_, err = execute(t, "history", "--export", exported, "--clear")
	assert.Error(t, err, "export and clear are exclusive")

	out, err = execute(t, "history", "--clear")
	require.NoError(t, err)
	assert.Contains(t, out, "History cleared.")

	out, err = execute(t, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "No transfers recorded.")
}

func TestCLI_SendImagesOnlyByDefault(t *testing.T) {
	isolate(t)
	t.Setenv("DESKTRANSFER_HISTORY_FILE", filepath.Join(t.TempDir(), "history.json"))

	src := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(src, []byte("text"), 0o644))

	out, err := execute(t, "send", "--plain", "--to", "127.0.0.1:1", src)
	require.Error(t, err, "nothing is left to send")
	assert.Contains(t, out, "failed:")
}

func TestCLI_SendRequiresTarget(t *testing.T) {
	isolate(t)
	_, err := execute(t, "send", "a.png")
	assert.Error(t, err)
}

func TestCLI_PlainSendNeedsFiles(t *testing.T) {
	isolate(t)
	_, err := execute(t, "send", "--plain", "--to", "127.0.0.1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no files given")
}
