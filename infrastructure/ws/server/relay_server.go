package server

import (
	"bufio"
	"chat-relay/runtime"
	"chat-relay/sink"
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gobwas/ws"
)

// RelayServer upgrades HTTP requests to WebSocket sessions of the relay.
type RelayServer struct {
	relay                *runtime.Relay
	log                  *slog.Logger
	connectionBufferSize int
	pingInterval         time.Duration
	deliveryTimeout      time.Duration
}

func NewRelayServer(log *slog.Logger, relay *runtime.Relay, connectionBufferSize int,
	pingInterval, deliveryTimeout time.Duration) *RelayServer {
	return &RelayServer{
		relay:                relay,
		log:                  log,
		connectionBufferSize: connectionBufferSize,
		pingInterval:         pingInterval,
		deliveryTimeout:      deliveryTimeout,
	}
}

// ServeHTTP blocks for the whole life of the connection.
// An optional ?token= resumes a previous login.
func (s *RelayServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, rw, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		s.log.Warn("WebSocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	if rw != nil && rw.Reader.Buffered() > 0 {
		conn = bufferedConn{Conn: conn, reader: rw.Reader}
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	session := sink.NewSocketSink(conn, s.log, s.connectionBufferSize, s.pingInterval, s.deliveryTimeout)
	defer session.Close()

	sessionID := s.relay.Connect(ctx, session, r.URL.Query().Get("token"))
	s.log.Info("New socket connection", "session_id", sessionID, "remote", r.RemoteAddr)
	defer s.relay.Disconnect(sessionID)

	err = session.ReadLoop(func(frame []byte) {
		s.relay.DispatchFrame(ctx, sessionID, frame)
	})
	if err != nil {
		s.log.Debug("Connection lost", "session_id", sessionID, "error", err)
		return
	}
	s.log.Info("Socket closed", "session_id", sessionID)
}

// bufferedConn drains what the handshake already read before the socket.
type bufferedConn struct {
	net.Conn
	reader *bufio.Reader
}

func (c bufferedConn) Read(p []byte) (int, error) {
	return c.reader.Read(p)
}
