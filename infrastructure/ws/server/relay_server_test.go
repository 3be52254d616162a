package server

import (
	"chat-relay/auth"
	"chat-relay/domain"
	"chat-relay/protocol"
	"chat-relay/repositories"
	"chat-relay/runtime"
	"chat-relay/runtime/workers"
	"chat-relay/services"
	"chat-relay/storage"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/stretchr/testify/require"
)

// setupServer runs the whole relay over a real badger store and returns
// the ws:// address of its endpoint.
func setupServer(t *testing.T) string {
	t.Helper()
	log := slog.Default()

	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	store := storage.New(db, log)

	identity := services.NewIdentityService(repositories.NewUserRepository(store),
		auth.NewTokenIssuer("test-secret", time.Hour))
	messages := services.NewMessageService(repositories.NewMessageRepository(store, log))
	registry := runtime.NewRegistry(log)
	relay := runtime.NewRelay(log, workers.NewSupervisor(log, 10*time.Millisecond), registry,
		identity, messages, 4, 32, time.Second, true)

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		relay.Start(ctx)
		close(stopped)
	}()

	httpServer := httptest.NewServer(NewRelayServer(log, relay, 16, time.Hour, time.Second))
	t.Cleanup(func() {
		relay.Stop()
		cancel()
		<-stopped
		httpServer.Close()
		_ = store.Close()
	})
	return "ws" + strings.TrimPrefix(httpServer.URL, "http")
}

type client struct {
	conn net.Conn
	rw   io.ReadWriter
}

func dial(t *testing.T, url string) *client {
	t.Helper()
	conn, br, _, err := ws.Dial(context.Background(), url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	c := &client{conn: conn, rw: conn}
	if br != nil {
		c.rw = struct {
			io.Reader
			io.Writer
		}{br, conn}
	}
	return c
}

func (c *client) send(t *testing.T, name string, data any) {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	frame, err := json.Marshal(protocol.Frame{Event: name, Data: raw})
	require.NoError(t, err)
	require.NoError(t, wsutil.WriteClientText(c.conn, frame))
}

func (c *client) next(t *testing.T) protocol.Frame {
	t.Helper()
	require.NoError(t, c.conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	data, err := wsutil.ReadServerText(c.rw)
	require.NoError(t, err)
	var frame protocol.Frame
	require.NoError(t, json.Unmarshal(data, &frame))
	return frame
}

func (c *client) expectString(t *testing.T, name, want string) {
	t.Helper()
	frame := c.next(t)
	require.Equal(t, name, frame.Event)
	var got string
	require.NoError(t, json.Unmarshal(frame.Data, &got))
	require.Equal(t, want, got)
}

// greet consumes the instance id and the directory sent on connect.
func (c *client) greet(t *testing.T) []domain.User {
	t.Helper()
	frame := c.next(t)
	require.Equal(t, "send-uuid", frame.Event)

	frame = c.next(t)
	require.Equal(t, "send-allUsers", frame.Event)
	var users []domain.User
	require.NoError(t, json.Unmarshal(frame.Data, &users))
	return users
}

func TestRelayServer_Register_Duplicate_Login(t *testing.T) {
	req := require.New(t)
	url := setupServer(t)
	c := dial(t, url+"/ws")

	req.Empty(c.greet(t))

	// Given alice registered
	c.send(t, protocol.RegistrationData, map[string]string{"id": "alice", "email": "a@x.io", "password": "p1"})
	req.Equal("registration-success", c.next(t).Event)

	// When bob registers with the same email
	c.send(t, protocol.RegistrationData, map[string]string{"id": "bob", "email": "a@x.io", "password": "p2"})
	c.expectString(t, "registration-error", "User with this email already exists")

	// And logs in with a wrong password
	c.send(t, protocol.LoginData, map[string]string{"email": "a@x.io", "password": "P1"})
	c.expectString(t, "login-error", "Invalid credentials")

	// Then the right password succeeds
	c.send(t, protocol.LoginData, map[string]string{"email": "a@x.io", "password": "p1"})
	frame := c.next(t)
	req.Equal("login-success", frame.Event)
	var success struct {
		UserID string `json:"userId"`
		Token  string `json:"token"`
	}
	req.NoError(json.Unmarshal(frame.Data, &success))
	req.Equal("alice", success.UserID)
	req.NotEmpty(success.Token)
}

func TestRelayServer_Message_Delivery_And_History(t *testing.T) {
	req := require.New(t)
	url := setupServer(t)

	alice := dial(t, url+"/ws")
	alice.greet(t)
	alice.send(t, protocol.RegistrationData, map[string]string{"id": "alice", "email": "a@x.io", "password": "p1"})
	req.Equal("registration-success", alice.next(t).Event)
	alice.send(t, protocol.LoginData, map[string]string{"email": "a@x.io", "password": "p1"})
	req.Equal("login-success", alice.next(t).Event)

	bob := dial(t, url+"/ws")
	users := bob.greet(t)
	req.Len(users, 1)
	req.Equal(domain.UserID("alice"), users[0].ID)

	// When bob writes to alice
	bob.send(t, protocol.SendMessage, map[string]string{
		"senderId": "bob", "receiverId": "alice", "message": "hi alice", "messageId": "m1",
	})

	// Then alice receives the body only
	alice.expectString(t, "received-message", "hi alice")

	// And the history is the same from both ends
	for _, pair := range [][]string{{"alice", "bob"}, {"bob", "alice"}} {
		bob.send(t, protocol.RetrieveMessages, pair)
		frame := bob.next(t)
		req.Equal("retrieved-messages", frame.Event)
		var history []domain.Message
		req.NoError(json.Unmarshal(frame.Data, &history))
		req.Len(history, 1)
		req.Equal("m1", history[0].ID)
		req.Equal("hi alice", history[0].Content)
	}
}

func TestRelayServer_Token_Resumes_Session(t *testing.T) {
	req := require.New(t)
	url := setupServer(t)

	first := dial(t, url+"/ws")
	first.greet(t)
	first.send(t, protocol.RegistrationData, map[string]string{"id": "alice", "email": "a@x.io", "password": "p1"})
	req.Equal("registration-success", first.next(t).Event)
	first.send(t, protocol.LoginData, map[string]string{"email": "a@x.io", "password": "p1"})
	frame := first.next(t)
	var success struct {
		Token string `json:"token"`
	}
	req.NoError(json.Unmarshal(frame.Data, &success))

	// Given a second connection presenting the token
	second := dial(t, url+"/ws?token="+success.Token)
	second.greet(t)

	// When someone writes to alice, both connections receive it
	writer := dial(t, url+"/ws")
	writer.greet(t)
	writer.send(t, protocol.SendMessage, map[string]string{"senderId": "bob", "receiverId": "alice", "message": "ping"})

	first.expectString(t, "received-message", "ping")
	second.expectString(t, "received-message", "ping")
}

func TestRelayServer_Rejects_Unknown_Event(t *testing.T) {
	req := require.New(t)
	url := setupServer(t)
	c := dial(t, url+"/ws")
	c.greet(t)

	req.NoError(wsutil.WriteClientText(c.conn, []byte(`{"event":"launch-rockets"}`)))
	req.Equal("protocol-error", c.next(t).Event)

	// The connection survives
	c.send(t, protocol.RetrieveUsers, nil)
	req.Equal("send-allUsers", c.next(t).Event)
}
