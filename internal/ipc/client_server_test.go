package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/rbright/segnala/internal/report"
	"github.com/stretchr/testify/require"
)

func serveForTest(t *testing.T, socketPath string, handler Handler) (context.CancelFunc, <-chan error) {
	t.Helper()

	listener, err := net.Listen("unix", socketPath)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Serve(ctx, listener, handler)
	}()
	t.Cleanup(cancel)
	return cancel, done
}

func TestSendRoundTripCarriesValueAndReport(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), socketName)

	received := make(chan Request, 1)
	cancel, done := serveForTest(t, socketPath, HandlerFunc(func(_ context.Context, req Request) Response {
		received <- req
		return Response{
			OK:         true,
			State:      "success",
			Transcript: "motore fermo",
			CycleID:    "c-1",
			Report:     &report.ProblemReport{ODL: "ODL-55", Operator: "Mario"},
		}
	}))

	resp, err := Send(context.Background(), socketPath, Request{Command: "key", Value: "abc"}, time.Second)
	require.NoError(t, err)
	require.True(t, resp.OK)
	require.Equal(t, "success", resp.State)
	require.Equal(t, "motore fermo", resp.Transcript)
	require.Equal(t, "c-1", resp.CycleID)
	require.NotNil(t, resp.Report)
	require.Equal(t, "ODL-55", resp.Report.ODL)

	req := <-received
	require.Equal(t, "key", req.Command)
	require.Equal(t, "abc", req.Value)

	cancel()
	require.NoError(t, <-done)
}

func TestSendDecodeResponseError(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), socketName)

	listener, err := net.Listen("unix", socketPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = listener.Close() })

	go func() {
		conn, acceptErr := listener.Accept()
		if acceptErr != nil {
			return
		}
		defer conn.Close()

		_, _ = bufio.NewReader(conn).ReadBytes('\n')
		_, _ = conn.Write([]byte("not-json\n"))
	}()

	_, err = Send(context.Background(), socketPath, Request{Command: "status"}, 200*time.Millisecond)
	require.Error(t, err)
	require.Contains(t, err.Error(), "read response: decode")
}

func TestSendReadResponseError(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), socketName)

	listener, err := net.Listen("unix", socketPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = listener.Close() })

	go func() {
		conn, acceptErr := listener.Accept()
		if acceptErr != nil {
			return
		}
		_ = conn.Close()
	}()

	_, err = Send(context.Background(), socketPath, Request{Command: "status"}, 200*time.Millisecond)
	require.Error(t, err)
	require.Contains(t, err.Error(), "read response")
}

func TestSendWithoutOwnerReportsNotRunning(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), socketName)

	_, err := Send(context.Background(), socketPath, Request{Command: "status"}, 100*time.Millisecond)
	require.ErrorIs(t, err, ErrNotRunning)
}

func TestServeDecodeRequestErrorResponse(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), socketName)
	cancel, done := serveForTest(t, socketPath, HandlerFunc(func(context.Context, Request) Response {
		return Response{OK: true}
	}))

	conn, err := net.Dial("unix", socketPath)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("not-json\n"))
	require.NoError(t, err)

	line, err := bufio.NewReader(conn).ReadBytes('\n')
	require.NoError(t, err)

	var resp Response
	require.NoError(t, json.Unmarshal(line, &resp))
	require.False(t, resp.OK)
	require.Contains(t, resp.Error, "read request: decode")

	cancel()
	require.NoError(t, <-done)
}

func TestProbe(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), socketName)
	cancel, done := serveForTest(t, socketPath, HandlerFunc(func(_ context.Context, req Request) Response {
		if req.Command == "status" {
			return Response{OK: true, State: "idle"}
		}
		return Response{OK: false, Error: "bad"}
	}))

	alive, err := Probe(context.Background(), socketPath, 200*time.Millisecond)
	require.NoError(t, err)
	require.True(t, alive)

	cancel()
	require.NoError(t, <-done)

	alive, err = Probe(context.Background(), socketPath, 100*time.Millisecond)
	require.NoError(t, err)
	require.False(t, alive)
}
