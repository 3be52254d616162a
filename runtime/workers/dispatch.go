package workers

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"context"
	"log/slog"
)

// Ensure *DispatchWorker implements the contract.Worker interface at compile time.
var _ contract.Worker = (*DispatchWorker)(nil)

// DispatchWorker is one unit of the handler pool: it takes inbound requests
// off the shared queue and runs them to completion, one at a time.
type DispatchWorker struct {
	inbound <-chan domain.Inbound
	handler contract.RequestHandler
	log     *slog.Logger
}

func NewDispatchWorker(inbound <-chan domain.Inbound, handler contract.RequestHandler, log *slog.Logger) *DispatchWorker {
	return &DispatchWorker{inbound: inbound, handler: handler, log: log}
}

func (w *DispatchWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Stopping worker")
			return ctx.Err()
		case in, ok := <-w.inbound:
			if !ok {
				w.log.Debug("Inbound channel is closed")
				return nil
			}
			w.handler.Handle(ctx, in)
		}
	}
}
