// Package runtime binds client sessions to the identity and message services.
// It routes requests and results without containing business rules.
package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"chat-relay/protocol"
	"chat-relay/runtime/workers"
	"chat-relay/services"
	"context"
	stdErrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Outbound error reasons, as clients display them.
const (
	ReasonDuplicateEmail   = "User with this email already exists"
	ReasonUserIDTaken      = "User with this id already exists"
	ReasonInvalidRegister  = "Invalid registration data"
	ReasonRegisterFailed   = "An error occurred while creating the user"
	ReasonInvalidLogin     = "Invalid credentials"
	ReasonLoginFailed      = "An error occurred"
	ReasonRetrievalFailed  = "An error occurred while retrieving messages"
	ReasonDirectoryFailed  = "An error occurred while retrieving users"
	ReasonInvalidMessage   = "Invalid message"
	ReasonRelayUnavailable = "Relay is shutting down"
)

type Relay struct {
	mu                 sync.Mutex
	log                *slog.Logger
	instanceID         string
	registry           contract.IRegistry
	identity           services.IIdentityService
	messages           services.IMessageService
	supervisor         contract.ISupervisor
	inbound            chan domain.Inbound
	numWorkers         int
	broadcastDirectory bool
	handlerTimeout     time.Duration
	stopped            chan struct{}
	stopOnce           sync.Once
}

var _ contract.RequestHandler = (*Relay)(nil)

func NewRelay(log *slog.Logger, supervisor contract.ISupervisor, registry contract.IRegistry,
	identity services.IIdentityService, messages services.IMessageService,
	numWorkers, bufferSize int, handlerTimeout time.Duration, broadcastDirectory bool) *Relay {
	return &Relay{
		log:                log,
		instanceID:         uuid.NewString(),
		registry:           registry,
		identity:           identity,
		messages:           messages,
		supervisor:         supervisor,
		inbound:            make(chan domain.Inbound, bufferSize),
		numWorkers:         numWorkers,
		broadcastDirectory: broadcastDirectory,
		handlerTimeout:     handlerTimeout,
		stopped:            make(chan struct{}),
	}
}

// InstanceID identifies this process to clients. It never changes.
func (r *Relay) InstanceID() string {
	return r.instanceID
}

// Start registers the dispatch pool on the supervisor and blocks until it stops.
func (r *Relay) Start(ctx context.Context) {
	r.mu.Lock()
	for i := 0; i < r.numWorkers; i++ {
		r.supervisor.Add(workers.NewDispatchWorker(r.inbound, r, r.log))
	}
	r.mu.Unlock()

	r.log.Info("Starting relay", "instance_id", r.instanceID, "workers", r.numWorkers)
	r.supervisor.Run(ctx)
}

// Stop cancels the workers and closes every live session.
func (r *Relay) Stop() {
	r.stopOnce.Do(func() {
		r.log.Info("Requesting relay shutdown")
		close(r.stopped)
		r.supervisor.Stop()
		r.registry.CloseAll()
	})
}

// Connect admits a new session and greets it.
// A valid token binds the session to its user right away; an invalid one
// leaves it anonymous.
func (r *Relay) Connect(ctx context.Context, sink contract.EventSink, token string) domain.SessionID {
	sessionID := r.registry.Admit(sink)

	if token != "" {
		userID, err := r.identity.Resume(token)
		if err != nil {
			r.log.Debug("Ignoring session token", "session_id", sessionID, "error", err)
		} else {
			r.registry.Bind(sessionID, userID)
			r.log.Debug("Session resumed", "session_id", sessionID, "user_id", userID)
		}
	}

	r.registry.Send(ctx, sessionID, event.InstanceID{ID: r.instanceID})
	if r.broadcastDirectory {
		r.Dispatch(ctx, sessionID, domain.RetrieveUsersRequest{})
	}
	return sessionID
}

// DispatchFrame decodes one client frame and queues it for the pool.
// An undecodable frame is answered with protocol-error on the same session.
func (r *Relay) DispatchFrame(ctx context.Context, sessionID domain.SessionID, raw []byte) {
	req, err := protocol.Decode(raw)
	if err != nil {
		r.log.Debug("Rejected frame", "session_id", sessionID, "error", err)
		r.registry.Send(ctx, sessionID, event.ProtocolError{Reason: err.Error()})
		return
	}
	r.Dispatch(ctx, sessionID, req)
}

// Dispatch queues req. It blocks while the queue is full, so a slow pool
// slows the reading connection down instead of dropping its requests.
func (r *Relay) Dispatch(ctx context.Context, sessionID domain.SessionID, req domain.Request) {
	select {
	case r.inbound <- domain.Inbound{SessionID: sessionID, Request: req}:
	case <-r.stopped:
		r.registry.Send(ctx, sessionID, event.ProtocolError{Reason: ReasonRelayUnavailable})
	case <-ctx.Done():
		r.log.Debug("Request dropped, connection gone", "session_id", sessionID)
	}
}

// Disconnect releases the session. Its user stays reachable through any
// other session bound to it.
func (r *Relay) Disconnect(sessionID domain.SessionID) {
	r.registry.Remove(sessionID)
	r.log.Debug("Session released", "session_id", sessionID)
}

// Handle runs one request. Results are addressed through the registry,
// errors always to the originating session.
func (r *Relay) Handle(ctx context.Context, in domain.Inbound) {
	ctx, cancel := context.WithTimeout(ctx, r.handlerTimeout)
	defer cancel()

	switch req := in.Request.(type) {
	case domain.RegisterRequest:
		r.handleRegister(ctx, in.SessionID, req)
	case domain.LoginRequest:
		r.handleLogin(ctx, in.SessionID, req)
	case domain.SendMessageRequest:
		r.handleSendMessage(ctx, in.SessionID, req)
	case domain.RetrieveMessagesRequest:
		r.handleRetrieveMessages(ctx, in.SessionID, req)
	case domain.RetrieveUsersRequest:
		r.handleRetrieveUsers(ctx, in.SessionID)
	default:
		r.log.Warn("Unhandled request", "session_id", in.SessionID, "type", fmt.Sprintf("%T", req))
		r.registry.Send(ctx, in.SessionID, event.ProtocolError{Reason: errors.ErrUnknownEvent.Error()})
	}
}

func (r *Relay) handleRegister(ctx context.Context, sessionID domain.SessionID, req domain.RegisterRequest) {
	err := r.identity.Register(req)
	if err == nil {
		r.log.Info("User registered", "user_id", req.ID)
		r.registry.Send(ctx, sessionID, event.RegistrationSucceeded{})
		return
	}

	var reason string
	switch {
	case stdErrors.Is(err, errors.ErrDuplicateEmail):
		reason = ReasonDuplicateEmail
	case stdErrors.Is(err, errors.ErrUserIDTaken):
		reason = ReasonUserIDTaken
	case stdErrors.Is(err, errors.ErrInvalidPayload):
		reason = ReasonInvalidRegister
	default:
		r.log.Error("Registration failed", "user_id", req.ID, "error", err)
		reason = ReasonRegisterFailed
	}
	r.registry.Send(ctx, sessionID, event.RegistrationFailed{Reason: reason})
}

// handleLogin binds the session before delivering to the user channel, so
// the requester receives the success exactly once along with the user's
// other sessions.
func (r *Relay) handleLogin(ctx context.Context, sessionID domain.SessionID, req domain.LoginRequest) {
	user, token, err := r.identity.Login(req)
	if err != nil {
		reason := ReasonLoginFailed
		if stdErrors.Is(err, errors.ErrInvalidCredentials) {
			reason = ReasonInvalidLogin
		} else {
			r.log.Error("Login failed", "email", req.Email, "error", err)
		}
		r.registry.Send(ctx, sessionID, event.LoginFailed{Reason: reason})
		return
	}

	success := event.LoginSucceeded{UserID: user.ID, Token: token}
	if !r.registry.Bind(sessionID, user.ID) {
		r.log.Debug("Requesting session gone before login completed", "session_id", sessionID)
	}
	reached := r.registry.Deliver(ctx, user.ID, success)
	r.log.Info("User logged in", "user_id", user.ID, "sessions", reached)
}

func (r *Relay) handleSendMessage(ctx context.Context, sessionID domain.SessionID, req domain.SendMessageRequest) {
	message, err := r.messages.Send(req)
	switch {
	case stdErrors.Is(err, errors.ErrInvalidPayload):
		r.registry.Send(ctx, sessionID, event.ProtocolError{Reason: ReasonInvalidMessage})
		return
	case err != nil:
		// The sender is not told: delivery does not depend on storage.
		r.log.Error("Message not persisted", "message_id", message.ID, "error", err)
	}

	if message.ReceiverID == "" {
		return
	}
	reached := r.registry.Deliver(ctx, message.ReceiverID, event.MessageReceived{Content: message.Content})
	r.log.Debug("Message relayed", "message_id", message.ID, "receiver_id", message.ReceiverID, "sessions", reached)
}

func (r *Relay) handleRetrieveMessages(ctx context.Context, sessionID domain.SessionID, req domain.RetrieveMessagesRequest) {
	messages, err := r.messages.History(req)
	if err != nil {
		r.log.Error("History retrieval failed", "sender", req.Sender, "receiver", req.Receiver, "error", err)
		r.registry.Send(ctx, sessionID, event.RetrievalFailed{Reason: ReasonRetrievalFailed})
		return
	}
	r.registry.Send(ctx, sessionID, event.MessagesRetrieved{Messages: messages})
}

func (r *Relay) handleRetrieveUsers(ctx context.Context, sessionID domain.SessionID) {
	users, err := r.identity.Directory()
	if err != nil {
		r.log.Error("Directory retrieval failed", "error", err)
		r.registry.Send(ctx, sessionID, event.ProtocolError{Reason: ReasonDirectoryFailed})
		return
	}
	r.registry.Send(ctx, sessionID, event.Directory{Users: users})
}
