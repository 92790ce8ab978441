package ipc

import (
	"context"
	"encoding/json"
	"net"
	"os"
	"sync"

	"github.com/pkg/errors"

	"github.com/Abdullahalhasan627/ShieldAI-sub000/pkg/logging"
	"github.com/Abdullahalhasan627/ShieldAI-sub000/pkg/must"
)

// HandlerFunc handles one command for an authenticated session, returning
// response data on success.
type HandlerFunc func(ctx context.Context, payload json.RawMessage) (interface{}, error)

// IdentityChecker reports whether the peer on conn is a privileged local
// principal. The default implementation is conservative (never
// privileged); production wiring should inspect OS-level peer
// credentials (e.g. SO_PEERCRED on Linux).
type IdentityChecker func(conn net.Conn) bool

func defaultIdentityChecker(net.Conn) bool { return false }

// Server is the IPC front end for the agent: it accepts connections on a
// UNIX domain socket, frames messages per framing.go, and dispatches
// commands to registered handlers.
type Server struct {
	listener net.Listener
	logger   *logging.Logger
	identity IdentityChecker

	handlersMu sync.RWMutex
	handlers   map[string]HandlerFunc

	sessionsMu sync.Mutex
	sessions   map[net.Conn]*session

	rateLimit int
}

// NewServer creates a Server bound to an already-created listener. Socket
// path resolution is the caller's responsibility (see pkg/daemon), since
// it differs across platforms the way mutagen's pkg/daemon/ipc_posix.go
// and ipc_windows.go differ.
func NewServer(listener net.Listener, logger *logging.Logger) *Server {
	return &Server{
		listener:  listener,
		logger:    logger,
		identity:  defaultIdentityChecker,
		handlers:  make(map[string]HandlerFunc),
		sessions:  make(map[net.Conn]*session),
		rateLimit: defaultRateLimit,
	}
}

// SetIdentityChecker overrides how the server determines whether a peer is
// privileged.
func (s *Server) SetIdentityChecker(checker IdentityChecker) {
	s.identity = checker
}

// Handle registers fn to handle command.
func (s *Server) Handle(command string, fn HandlerFunc) {
	s.handlersMu.Lock()
	defer s.handlersMu.Unlock()
	s.handlers[command] = fn
}

// Serve accepts connections until ctx is cancelled or the listener is
// closed.
func (s *Server) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		must.Close(s.listener, s.logger)
	}()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return errors.Wrap(err, "unable to accept connection")
			}
		}
		go s.serveConnection(ctx, conn)
	}
}

func (s *Server) serveConnection(ctx context.Context, conn net.Conn) {
	defer must.Close(conn, s.logger)

	sess := newSession(s.identity(conn), s.rateLimit)
	s.sessionsMu.Lock()
	s.sessions[conn] = sess
	s.sessionsMu.Unlock()
	defer func() {
		s.sessionsMu.Lock()
		delete(s.sessions, conn)
		s.sessionsMu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		body, err := ReadFrame(conn)
		if err != nil {
			return
		}

		response := s.dispatch(ctx, sess, body)
		encoded, err := json.Marshal(response)
		if err != nil {
			s.logger.Warnf("unable to encode response: %v", err)
			return
		}
		if err := WriteFrame(conn, encoded); err != nil {
			return
		}
	}
}

func (s *Server) dispatch(ctx context.Context, sess *session, body []byte) Response {
	var request Request
	if err := json.Unmarshal(body, &request); err != nil {
		return Response{Success: false, Error: "malformed request"}
	}

	if request.Command == CommandHello {
		return Response{Success: true, Data: HelloPayload{SessionToken: sess.token, ExpiresAt: sess.expiresAt}}
	}

	if !sess.valid(request.SessionToken) {
		return Response{Success: false, Error: "invalid or expired session token"}
	}

	if !sess.allow() {
		return Response{Success: false, Error: "Rate limit exceeded"}
	}

	if adminCommands[request.Command] && !sess.privileged {
		return Response{Success: false, Error: "Forbidden: admin required"}
	}

	s.handlersMu.RLock()
	handler, ok := s.handlers[request.Command]
	s.handlersMu.RUnlock()
	if !ok {
		return Response{Success: false, Error: "unknown command"}
	}

	data, err := handler(ctx, request.Payload)
	if err != nil {
		return Response{Success: false, Error: err.Error()}
	}
	return Response{Success: true, Data: data}
}

// Broadcast sends event to every currently connected session. Sessions
// whose write fails are evicted silently, per spec.md §4.12.
func (s *Server) Broadcast(event Event) {
	encoded, err := json.Marshal(event)
	if err != nil {
		s.logger.Warnf("unable to encode broadcast event: %v", err)
		return
	}

	s.sessionsMu.Lock()
	conns := make([]net.Conn, 0, len(s.sessions))
	for conn := range s.sessions {
		conns = append(conns, conn)
	}
	s.sessionsMu.Unlock()

	for _, conn := range conns {
		if err := WriteFrame(conn, encoded); err != nil {
			s.sessionsMu.Lock()
			delete(s.sessions, conn)
			s.sessionsMu.Unlock()
			must.Close(conn, s.logger)
		}
	}
}

// SessionCount returns the number of currently connected sessions.
func (s *Server) SessionCount() int {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()
	return len(s.sessions)
}

// NewUnixListener creates a listener on a UNIX domain socket at path,
// removing a stale socket file first. Grounded on mutagen's
// pkg/daemon/ipc_posix.go NewListener, which performs the same
// remove-then-listen sequence under the assumption that the caller holds
// the daemon lock and so any existing socket file is stale.
func NewUnixListener(path string) (net.Listener, error) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "unable to remove stale socket")
	}
	return net.Listen("unix", path)
}
