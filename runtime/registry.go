package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

type Set map[domain.SessionID]struct{}

type session struct {
	sink   contract.EventSink
	userID domain.UserID // empty while anonymous
}

// Registry maps a user to its live sessions.
// A user id is a logical channel: delivering to it reaches every session
// bound to it, and nothing when none is.
type Registry struct {
	mu           sync.RWMutex
	log          *slog.Logger
	sessions     map[domain.SessionID]*session // map session -> sink and owner
	userSessions map[domain.UserID]Set         // map user to sessions
}

var _ contract.IRegistry = (*Registry)(nil)

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		log:          log,
		sessions:     make(map[domain.SessionID]*session),
		userSessions: make(map[domain.UserID]Set),
	}
}

// Admit registers an anonymous session and returns its fresh id.
func (r *Registry) Admit(sink contract.EventSink) domain.SessionID {
	id := domain.SessionID(uuid.NewString())

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[id] = &session{sink: sink}
	return id
}

// Bind attaches the session to userID, detaching it from any previous user.
// It returns false when the session is unknown (already removed) or userID is empty.
func (r *Registry) Bind(sessionID domain.SessionID, userID domain.UserID) bool {
	if userID == "" {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		return false
	}
	if s.userID == userID {
		return true
	}
	r.detach(sessionID, s.userID)

	s.userID = userID
	if _, ok := r.userSessions[userID]; !ok {
		r.userSessions[userID] = make(Set)
	}
	r.userSessions[userID][sessionID] = struct{}{}
	return true
}

// Deliver pushes e to every session bound to userID and returns how many
// accepted it. No session is not an error: the event is dropped.
func (r *Registry) Deliver(ctx context.Context, userID domain.UserID, e event.DomainEvent) int {
	sinks := r.sinksFor(userID)
	if len(sinks) == 0 {
		r.log.Debug("Delivery miss, no live session", "user_id", userID, "event", e.EventName())
		return 0
	}

	delivered := 0
	for _, sink := range sinks {
		if err := sink.Consume(ctx, e); err != nil {
			r.log.Warn("Delivery failed", "user_id", userID, "event", e.EventName(), "error", err)
			continue
		}
		delivered++
	}
	return delivered
}

// Send pushes e to one session, bound or not.
func (r *Registry) Send(ctx context.Context, sessionID domain.SessionID, e event.DomainEvent) bool {
	r.mu.RLock()
	s, ok := r.sessions[sessionID]
	r.mu.RUnlock()
	if !ok {
		r.log.Debug("Delivery miss, session gone", "session_id", sessionID, "event", e.EventName())
		return false
	}
	if err := s.sink.Consume(ctx, e); err != nil {
		r.log.Warn("Delivery failed", "session_id", sessionID, "event", e.EventName(), "error", err)
		return false
	}
	return true
}

// Remove forgets the session and releases its user mapping.
// Empty user sets are dropped so stale users do not accumulate.
func (r *Registry) Remove(sessionID domain.SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		return
	}
	r.detach(sessionID, s.userID)
	delete(r.sessions, sessionID)
}

// UserOf returns the user the session is bound to, if any.
func (r *Registry) UserOf(sessionID domain.SessionID) (domain.UserID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[sessionID]
	if !ok || s.userID == "" {
		return "", false
	}
	return s.userID, true
}

// CloseAll closes every live sink and empties the registry.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	sinks := make([]contract.EventSink, 0, len(r.sessions))
	for _, s := range r.sessions {
		sinks = append(sinks, s.sink)
	}
	r.sessions = make(map[domain.SessionID]*session)
	r.userSessions = make(map[domain.UserID]Set)
	r.mu.Unlock()

	for _, sink := range sinks {
		sink.Close()
	}
	r.log.Info("Closed all sessions", "count", len(sinks))
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *Registry) sinksFor(userID domain.UserID) []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, ok := r.userSessions[userID]
	if !ok {
		return nil
	}
	sinks := make([]contract.EventSink, 0, len(members))
	for sessionID := range members {
		if s, exists := r.sessions[sessionID]; exists {
			sinks = append(sinks, s.sink)
		}
	}
	return sinks
}

// detach must be called with the write lock held.
func (r *Registry) detach(sessionID domain.SessionID, userID domain.UserID) {
	if userID == "" {
		return
	}
	if members, ok := r.userSessions[userID]; ok {
		delete(members, sessionID)
		if len(members) == 0 {
			delete(r.userSessions, userID)
		}
	}
}
