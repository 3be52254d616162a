package runtime

import (
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/mocks"
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestRegistry_Deliver_Reaches_Every_Session_Of_User(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	ctx := context.Background()
	registry := NewRegistry(slog.Default())

	phone := mocks.NewMockEventSink(ctrl)
	laptop := mocks.NewMockEventSink(ctrl)
	stranger := mocks.NewMockEventSink(ctrl)

	e := event.MessageReceived{Content: "hello"}
	phone.EXPECT().Consume(gomock.Any(), e).Return(nil)
	laptop.EXPECT().Consume(gomock.Any(), e).Return(nil)
	// stranger expects nothing

	req.True(registry.Bind(registry.Admit(phone), "bob"))
	req.True(registry.Bind(registry.Admit(laptop), "bob"))
	req.True(registry.Bind(registry.Admit(stranger), "carol"))

	req.Equal(2, registry.Deliver(ctx, "bob", e))
}

func TestRegistry_Deliver_To_Nobody_Is_A_Miss(t *testing.T) {
	registry := NewRegistry(slog.Default())
	require.Zero(t, registry.Deliver(context.Background(), "ghost", event.MessageReceived{Content: "x"}))
}

func TestRegistry_Deliver_Counts_Only_Accepted(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	registry := NewRegistry(slog.Default())

	healthy := mocks.NewMockEventSink(ctrl)
	stalled := mocks.NewMockEventSink(ctrl)
	healthy.EXPECT().Consume(gomock.Any(), gomock.Any()).Return(nil)
	stalled.EXPECT().Consume(gomock.Any(), gomock.Any()).Return(fmt.Errorf("buffer full"))

	registry.Bind(registry.Admit(healthy), "bob")
	registry.Bind(registry.Admit(stalled), "bob")

	req.Equal(1, registry.Deliver(context.Background(), "bob", event.MessageReceived{Content: "x"}))
}

func TestRegistry_Anonymous_Session_Gets_Direct_Send_Only(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	registry := NewRegistry(slog.Default())

	sink := mocks.NewMockEventSink(ctrl)
	sink.EXPECT().Consume(gomock.Any(), event.InstanceID{ID: "i-1"}).Return(nil)

	id := registry.Admit(sink)
	_, bound := registry.UserOf(id)
	req.False(bound)
	req.True(registry.Send(context.Background(), id, event.InstanceID{ID: "i-1"}))
}

func TestRegistry_Bind_Rejects_Empty_User_And_Unknown_Session(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	registry := NewRegistry(slog.Default())

	id := registry.Admit(mocks.NewMockEventSink(ctrl))
	req.False(registry.Bind(id, ""))
	req.False(registry.Bind("unknown", "bob"))
}

func TestRegistry_Rebind_Moves_Session(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	registry := NewRegistry(slog.Default())

	sink := mocks.NewMockEventSink(ctrl)
	sink.EXPECT().Consume(gomock.Any(), gomock.Any()).Return(nil).Times(1)

	id := registry.Admit(sink)
	registry.Bind(id, "alice")
	registry.Bind(id, "bob")

	req.Zero(registry.Deliver(context.Background(), "alice", event.MessageReceived{Content: "x"}))
	req.Equal(1, registry.Deliver(context.Background(), "bob", event.MessageReceived{Content: "x"}))

	user, ok := registry.UserOf(id)
	req.True(ok)
	req.Equal(domain.UserID("bob"), user)
}

func TestRegistry_Remove_Releases_Session_Keeps_Others(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	ctx := context.Background()
	registry := NewRegistry(slog.Default())

	gone := mocks.NewMockEventSink(ctrl)
	staying := mocks.NewMockEventSink(ctrl)
	staying.EXPECT().Consume(gomock.Any(), gomock.Any()).Return(nil).Times(1)

	first := registry.Admit(gone)
	second := registry.Admit(staying)
	registry.Bind(first, "bob")
	registry.Bind(second, "bob")

	// When the first connection closes
	registry.Remove(first)

	// Then bob stays reachable through the second one only
	req.Equal(1, registry.Deliver(ctx, "bob", event.MessageReceived{Content: "x"}))
	req.False(registry.Send(ctx, first, event.MessageReceived{Content: "x"}))

	// And the user channel disappears with its last session
	registry.Remove(second)
	req.Zero(registry.Deliver(ctx, "bob", event.MessageReceived{Content: "x"}))
	req.Empty(registry.userSessions)
	req.Zero(registry.Len())
}

func TestRegistry_CloseAll(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	registry := NewRegistry(slog.Default())

	a := mocks.NewMockEventSink(ctrl)
	b := mocks.NewMockEventSink(ctrl)
	a.EXPECT().Close()
	b.EXPECT().Close()

	registry.Bind(registry.Admit(a), "bob")
	registry.Admit(b)

	registry.CloseAll()
	req.Zero(registry.Len())
}
