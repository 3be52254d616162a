//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chat-relay/domain"
	"chat-relay/domain/event"
	"context"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink is one live connection able to receive outbound events.
// Consume must not block the caller beyond ctx.
type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
	Close()
}

// IRegistry routes outbound events to the sessions bound to a user.
type IRegistry interface {
	Admit(sink EventSink) domain.SessionID
	Bind(sessionID domain.SessionID, userID domain.UserID) bool
	Deliver(ctx context.Context, userID domain.UserID, e event.DomainEvent) int
	Send(ctx context.Context, sessionID domain.SessionID, e event.DomainEvent) bool
	Remove(sessionID domain.SessionID)
	UserOf(sessionID domain.SessionID) (domain.UserID, bool)
	CloseAll()
}

// RequestHandler runs one inbound request to completion.
type RequestHandler interface {
	Handle(ctx context.Context, in domain.Inbound)
}
