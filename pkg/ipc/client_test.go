package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClientDialPerformsHello(t *testing.T) {
	socketPath, stop := startTestServer(t, nil)
	defer stop()

	client, err := Dial(socketPath)
	require.NoError(t, err)
	defer client.Close()

	require.NotEmpty(t, client.token)
}

func TestClientCallRoundTripsPayload(t *testing.T) {
	socketPath, stop := startTestServer(t, func(s *Server) {
		s.Handle(CommandPing, func(ctx context.Context, payload json.RawMessage) (interface{}, error) {
			return "Pong", nil
		})
	})
	defer stop()

	client, err := Dial(socketPath)
	require.NoError(t, err)
	defer client.Close()

	var result string
	require.NoError(t, client.Call(CommandPing, nil, &result))
	require.Equal(t, "Pong", result)
}

func TestClientCallSurfacesHandlerError(t *testing.T) {
	socketPath, stop := startTestServer(t, func(s *Server) {
		s.Handle(CommandPing, func(ctx context.Context, payload json.RawMessage) (interface{}, error) {
			return nil, errors.New("boom")
		})
	})
	defer stop()

	client, err := Dial(socketPath)
	require.NoError(t, err)
	defer client.Close()

	err = client.Call(CommandPing, nil, nil)
	require.Error(t, err)
}

func TestClientCallRejectsAdminCommandWithoutPrivilege(t *testing.T) {
	socketPath, stop := startTestServer(t, func(s *Server) {
		s.Handle(CommandDeleteFromQuarantine, func(ctx context.Context, payload json.RawMessage) (interface{}, error) {
			return nil, nil
		})
	})
	defer stop()

	client, err := Dial(socketPath)
	require.NoError(t, err)
	defer client.Close()

	err = client.Call(CommandDeleteFromQuarantine, QuarantineIDRequest{ID: "abc"}, nil)
	require.Error(t, err)
}
