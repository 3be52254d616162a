package workers

import (
	"chat-relay/domain"
	"chat-relay/mocks"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestDispatchWorker_Hands_Every_Request_To_Handler(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	handler := mocks.NewMockRequestHandler(ctrl)

	inbound := make(chan domain.Inbound, 2)
	first := domain.Inbound{SessionID: "s1", Request: domain.RetrieveUsersRequest{}}
	second := domain.Inbound{SessionID: "s2", Request: domain.RetrieveMessagesRequest{Sender: "a", Receiver: "b"}}
	inbound <- first
	inbound <- second
	close(inbound)

	gomock.InOrder(
		handler.EXPECT().Handle(gomock.Any(), first),
		handler.EXPECT().Handle(gomock.Any(), second),
	)

	worker := NewDispatchWorker(inbound, handler, slog.Default())

	// Then a closed queue ends the worker cleanly
	req.NoError(worker.Run(context.Background()))
}

func TestDispatchWorker_Stops_On_Cancel(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	handler := mocks.NewMockRequestHandler(ctrl)

	worker := NewDispatchWorker(make(chan domain.Inbound), handler, slog.Default())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		req.ErrorIs(err, context.Canceled)
	case <-time.After(time.Second):
		req.Fail("worker did not stop")
	}
}
