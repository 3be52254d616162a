package sink

import (
	"chat-relay/domain/event"
	"context"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/stretchr/testify/require"
)

// setupTestSink wires a SocketSink to one end of a net.Pipe and returns the
// client end. Both are closed when the test ends.
func setupTestSink(t *testing.T, bufferSize int, deliveryTimeout time.Duration) (*SocketSink, net.Conn) {
	t.Helper()
	serverConn, clientConn := net.Pipe()
	s := NewSocketSink(serverConn, slog.Default(), bufferSize, time.Hour, deliveryTimeout)
	t.Cleanup(func() {
		s.Close()
		_ = clientConn.Close()
	})
	return s, clientConn
}

func startReadLoop(s *SocketSink) (chan []byte, chan error) {
	messages := make(chan []byte, 10)
	done := make(chan error, 1)
	go func() {
		done <- s.ReadLoop(func(b []byte) { messages <- b })
	}()
	return messages, done
}

func TestSocketSink_ReadLoop_Forwards_Messages(t *testing.T) {
	req := require.New(t)
	s, clientConn := setupTestSink(t, 10, time.Second)
	messages, _ := startReadLoop(s)

	// When the client sends a text frame
	req.NoError(wsutil.WriteClientText(clientConn, []byte(`{"event":"retrieve-users"}`)))

	// Then the payload reaches the handler untouched
	select {
	case got := <-messages:
		req.Equal(`{"event":"retrieve-users"}`, string(got))
	case <-time.After(time.Second):
		req.Fail("message not forwarded")
	}
}

func TestSocketSink_Consume_Writes_Frame(t *testing.T) {
	req := require.New(t)
	s, clientConn := setupTestSink(t, 10, time.Second)

	req.NoError(s.Consume(context.Background(), event.MessageReceived{Content: "hello"}))

	data, op, err := wsutil.ReadServerData(clientConn)
	req.NoError(err)
	req.Equal(ws.OpText, op)
	req.JSONEq(`{"event":"received-message","data":"hello"}`, string(data))
}

func TestSocketSink_Answers_Ping(t *testing.T) {
	req := require.New(t)
	s, clientConn := setupTestSink(t, 10, time.Second)
	startReadLoop(s)

	req.NoError(wsutil.WriteClientMessage(clientConn, ws.OpPing, []byte("are you there")))

	frame, err := ws.ReadFrame(clientConn)
	req.NoError(err)
	req.Equal(ws.OpPong, frame.Header.OpCode)
	req.Equal("are you there", string(frame.Payload))
}

func TestSocketSink_Peer_Close_Ends_ReadLoop(t *testing.T) {
	req := require.New(t)
	s, clientConn := setupTestSink(t, 10, time.Second)
	_, done := startReadLoop(s)

	req.NoError(wsutil.WriteClientMessage(clientConn, ws.OpClose,
		ws.NewCloseFrameBody(ws.StatusNormalClosure, "bye")))

	select {
	case err := <-done:
		req.NoError(err)
	case <-time.After(time.Second):
		req.Fail("read loop did not stop on close frame")
	}

	select {
	case <-s.Done():
	case <-time.After(time.Second):
		req.Fail("sink not marked done")
	}
}

func TestSocketSink_Consume_After_Close(t *testing.T) {
	s, _ := setupTestSink(t, 10, time.Second)
	s.Close()

	err := s.Consume(context.Background(), event.RegistrationSucceeded{})
	require.ErrorIs(t, err, ErrSessionClosed)
}

func TestSocketSink_Consume_Times_Out_When_Peer_Stalls(t *testing.T) {
	// Nobody reads the client end: the write loop blocks on the pipe
	// and the one slot buffer fills up.
	s, _ := setupTestSink(t, 1, 50*time.Millisecond)

	var err error
	for i := 0; i < 5 && err == nil; i++ {
		err = s.Consume(context.Background(), event.MessageReceived{Content: "spam"})
	}
	require.ErrorIs(t, err, ErrDeliveryTimeout)
}
