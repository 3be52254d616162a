package sink

import (
	"chat-relay/contract"
	"chat-relay/domain/event"
	"chat-relay/protocol"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

var (
	ErrSessionClosed   = fmt.Errorf("session closed")
	ErrDeliveryTimeout = fmt.Errorf("delivery timeout, outbound buffer full")
)

var _ contract.EventSink = (*SocketSink)(nil)

// SocketSink is one WebSocket connection.
// The write loop is the only writer of conn: data frames, pongs, pings and
// close replies all go through the send queue, so frames never interleave.
type SocketSink struct {
	// The key bit - the web-socket connection
	conn net.Conn

	// The message bit
	send            chan []byte
	pingInterval    time.Duration
	deliveryTimeout time.Duration

	// The concurrency bit
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once

	log *slog.Logger
}

func NewSocketSink(conn net.Conn, log *slog.Logger, bufferSize int,
	pingInterval, deliveryTimeout time.Duration) *SocketSink {
	ctx, cancel := context.WithCancel(context.Background())
	s := &SocketSink{
		conn:            conn,
		send:            make(chan []byte, bufferSize),
		pingInterval:    pingInterval,
		deliveryTimeout: deliveryTimeout,
		ctx:             ctx,
		cancel:          cancel,
		log:             log,
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.WriteLoop()
	}()
	return s
}

// Consume encodes e and queues it for the write loop.
// It waits at most deliveryTimeout for room in the queue.
func (s *SocketSink) Consume(ctx context.Context, e event.DomainEvent) error {
	frame, err := protocol.Encode(e)
	if err != nil {
		return err
	}
	compiled, err := ws.CompileFrame(ws.NewTextFrame(frame))
	if err != nil {
		return err
	}
	return s.enqueue(ctx, compiled)
}

func (s *SocketSink) enqueue(ctx context.Context, frame []byte) error {
	if s.ctx.Err() != nil {
		return ErrSessionClosed
	}
	select {
	case s.send <- frame:
		return nil
	default:
	}

	timer := time.NewTimer(s.deliveryTimeout)
	defer timer.Stop()
	select {
	case s.send <- frame:
		return nil
	case <-s.ctx.Done():
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrDeliveryTimeout
	}
}

// ReadLoop hands every text or binary message to onMessage until the peer
// closes or the connection fails. Control frames are answered here.
// It returns nil on a clean close.
func (s *SocketSink) ReadLoop(onMessage func([]byte)) error {
	defer s.cancel()

	controlHandler := func(hdr ws.Header, r io.Reader) error {
		return s.handleControl(hdr, r)
	}
	reader := wsutil.Reader{
		Source:         s.conn,
		State:          ws.StateServerSide,
		CheckUTF8:      true,
		OnIntermediate: controlHandler,
	}

	for {
		hdr, err := reader.NextFrame()
		if err != nil {
			return s.readError(err)
		}

		if hdr.OpCode.IsControl() {
			if err := controlHandler(hdr, &reader); err != nil {
				return s.readError(err)
			}
			continue
		}

		if hdr.OpCode&(ws.OpText|ws.OpBinary) == 0 {
			if err := reader.Discard(); err != nil {
				return s.readError(err)
			}
			continue
		}

		payload, err := io.ReadAll(&reader)
		if err != nil {
			return s.readError(err)
		}
		onMessage(payload)
	}
}

// readError turns the end of the read side into nil when it is a normal
// close, from the peer or from Close.
func (s *SocketSink) readError(err error) error {
	if closed, ok := err.(wsutil.ClosedError); ok {
		s.log.Debug("Peer closed", "code", closed.Code, "reason", closed.Reason)
		return nil
	}
	if s.ctx.Err() != nil {
		return nil
	}
	return err
}

func (s *SocketSink) handleControl(hdr ws.Header, r io.Reader) error {
	payload, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	switch hdr.OpCode {
	case ws.OpPing:
		return s.enqueueControl(ws.NewPongFrame(payload))
	case ws.OpPong:
		return nil
	case ws.OpClose:
		code, reason := ws.ParseCloseFrameData(payload)
		_ = s.enqueueControl(ws.NewCloseFrame(ws.NewCloseFrameBody(ws.StatusNormalClosure, "")))
		return wsutil.ClosedError{Code: code, Reason: reason}
	}
	return nil
}

func (s *SocketSink) enqueueControl(frame ws.Frame) error {
	compiled, err := ws.CompileFrame(frame)
	if err != nil {
		return err
	}
	return s.enqueue(s.ctx, compiled)
}

func (s *SocketSink) WriteLoop() {
	ticker := time.NewTicker(s.pingInterval)
	ping := ws.MustCompileFrame(ws.NewPingFrame([]byte("ping")))
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
		s.cancel()
	}()

	for {
		select {
		case frame := <-s.send:
			if _, err := s.conn.Write(frame); err != nil {
				s.log.Debug("Write failed", "error", err)
				return
			}
		case <-ticker.C:
			if _, err := s.conn.Write(ping); err != nil {
				s.log.Debug("Ping failed", "error", err)
				return
			}
		case <-s.ctx.Done():
			return
		}
	}
}

// Done is closed once the connection is finished, from either side.
func (s *SocketSink) Done() <-chan struct{} {
	return s.ctx.Done()
}

// Close stops both loops and waits for the write loop to exit.
func (s *SocketSink) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		_ = s.conn.Close()
		s.wg.Wait()
	})
}
