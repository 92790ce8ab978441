package ipc

import (
	"context"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Abdullahalhasan627/ShieldAI-sub000/pkg/logging"
)

func startTestServer(t *testing.T, configure func(*Server)) (string, func()) {
	dir := t.TempDir()
	socketPath := filepath.Join(dir, "agent.sock")

	listener, err := NewUnixListener(socketPath)
	require.NoError(t, err)

	server := NewServer(listener, logging.NewLogger(logging.LevelDisabled, os.Stderr))
	if configure != nil {
		configure(server)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go server.Serve(ctx)

	return socketPath, func() { cancel() }
}

func dial(t *testing.T, socketPath string) net.Conn {
	conn, err := net.DialTimeout("unix", socketPath, time.Second)
	require.NoError(t, err)
	return conn
}

func sendRequest(t *testing.T, conn net.Conn, request Request) Response {
	encoded, err := json.Marshal(request)
	require.NoError(t, err)
	require.NoError(t, WriteFrame(conn, encoded))

	body, err := ReadFrame(conn)
	require.NoError(t, err)

	var response Response
	require.NoError(t, json.Unmarshal(body, &response))
	return response
}

func hello(t *testing.T, conn net.Conn) string {
	response := sendRequest(t, conn, Request{Command: CommandHello})
	require.True(t, response.Success)

	encoded, err := json.Marshal(response.Data)
	require.NoError(t, err)
	var payload HelloPayload
	require.NoError(t, json.Unmarshal(encoded, &payload))
	return payload.SessionToken
}

func TestHelloIssuesSessionToken(t *testing.T) {
	socketPath, stop := startTestServer(t, nil)
	defer stop()

	conn := dial(t, socketPath)
	defer conn.Close()

	token := hello(t, conn)
	require.NotEmpty(t, token)
}

func TestCommandWithoutTokenIsRejected(t *testing.T) {
	socketPath, stop := startTestServer(t, func(s *Server) {
		s.Handle(CommandPing, func(ctx context.Context, payload json.RawMessage) (interface{}, error) {
			return "pong", nil
		})
	})
	defer stop()

	conn := dial(t, socketPath)
	defer conn.Close()

	response := sendRequest(t, conn, Request{Command: CommandPing})
	require.False(t, response.Success)
	require.Contains(t, response.Error, "session token")
}

func TestCommandWithValidTokenSucceeds(t *testing.T) {
	socketPath, stop := startTestServer(t, func(s *Server) {
		s.Handle(CommandPing, func(ctx context.Context, payload json.RawMessage) (interface{}, error) {
			return "pong", nil
		})
	})
	defer stop()

	conn := dial(t, socketPath)
	defer conn.Close()

	token := hello(t, conn)
	response := sendRequest(t, conn, Request{Command: CommandPing, SessionToken: token})
	require.True(t, response.Success)
	require.Equal(t, "pong", response.Data)
}

func TestAdminCommandRejectedForNonPrivilegedSession(t *testing.T) {
	socketPath, stop := startTestServer(t, func(s *Server) {
		s.Handle(CommandDisableRealTime, func(ctx context.Context, payload json.RawMessage) (interface{}, error) {
			return nil, nil
		})
	})
	defer stop()

	conn := dial(t, socketPath)
	defer conn.Close()

	token := hello(t, conn)
	response := sendRequest(t, conn, Request{Command: CommandDisableRealTime, SessionToken: token})
	require.False(t, response.Success)
	require.Contains(t, response.Error, "admin required")
}

func TestAdminCommandAllowedForPrivilegedSession(t *testing.T) {
	socketPath, stop := startTestServer(t, func(s *Server) {
		s.SetIdentityChecker(func(net.Conn) bool { return true })
		s.Handle(CommandDisableRealTime, func(ctx context.Context, payload json.RawMessage) (interface{}, error) {
			return nil, nil
		})
	})
	defer stop()

	conn := dial(t, socketPath)
	defer conn.Close()

	token := hello(t, conn)
	response := sendRequest(t, conn, Request{Command: CommandDisableRealTime, SessionToken: token})
	require.True(t, response.Success)
}

func TestUnknownCommandReturnsError(t *testing.T) {
	socketPath, stop := startTestServer(t, nil)
	defer stop()

	conn := dial(t, socketPath)
	defer conn.Close()

	token := hello(t, conn)
	response := sendRequest(t, conn, Request{Command: "NotARealCommand", SessionToken: token})
	require.False(t, response.Success)
	require.Equal(t, "unknown command", response.Error)
}

func TestRateLimitExceededRejectsFurtherRequests(t *testing.T) {
	socketPath, stop := startTestServer(t, func(s *Server) {
		s.rateLimit = 2
		s.Handle(CommandPing, func(ctx context.Context, payload json.RawMessage) (interface{}, error) {
			return "pong", nil
		})
	})
	defer stop()

	conn := dial(t, socketPath)
	defer conn.Close()

	token := hello(t, conn)
	require.True(t, sendRequest(t, conn, Request{Command: CommandPing, SessionToken: token}).Success)
	require.True(t, sendRequest(t, conn, Request{Command: CommandPing, SessionToken: token}).Success)

	third := sendRequest(t, conn, Request{Command: CommandPing, SessionToken: token})
	require.False(t, third.Success)
	require.Equal(t, "Rate limit exceeded", third.Error)
}

func TestBroadcastDeliversToConnectedSessions(t *testing.T) {
	dir := t.TempDir()
	socketPath := filepath.Join(dir, "agent.sock")

	listener, err := NewUnixListener(socketPath)
	require.NoError(t, err)
	server := NewServer(listener, logging.NewLogger(logging.LevelDisabled, os.Stderr))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go server.Serve(ctx)

	conn := dial(t, socketPath)
	defer conn.Close()
	hello(t, conn)

	require.Eventually(t, func() bool { return server.SessionCount() == 1 }, time.Second, 5*time.Millisecond)

	server.Broadcast(Event{EventType: EventScanComplete, Payload: "done", Timestamp: time.Now()})

	body, err := ReadFrame(conn)
	require.NoError(t, err)
	var event Event
	require.NoError(t, json.Unmarshal(body, &event))
	require.Equal(t, EventScanComplete, event.EventType)
}
