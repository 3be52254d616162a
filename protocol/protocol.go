// Package protocol maps WebSocket text frames to typed requests and
// outbound events to frames.
//
// A frame is a JSON object: {"event": "<name>", "data": <payload>}.
package protocol

import (
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"encoding/json"
	"fmt"
)

// Inbound event names.
const (
	RegistrationData = "send-registration-data"
	LoginData        = "send-login-data"
	SendMessage      = "send-message"
	RetrieveMessages = "retrieve-messages"
	RetrieveUsers    = "retrieve-users"
)

type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Decode parses a client frame into its request variant.
// Errors wrap ErrInvalidPayload or ErrUnknownEvent.
func Decode(raw []byte) (domain.Request, error) {
	var frame Frame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrInvalidPayload, err)
	}

	switch frame.Event {
	case RegistrationData:
		return decodeInto[domain.RegisterRequest](frame)
	case LoginData:
		return decodeInto[domain.LoginRequest](frame)
	case SendMessage:
		return decodeInto[domain.SendMessageRequest](frame)
	case RetrieveMessages:
		return decodeRetrieveMessages(frame)
	case RetrieveUsers:
		return domain.RetrieveUsersRequest{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", errors.ErrUnknownEvent, frame.Event)
	}
}

func decodeInto[T domain.Request](frame Frame) (domain.Request, error) {
	var req T
	if len(frame.Data) == 0 {
		return nil, fmt.Errorf("%w: %s has no data", errors.ErrInvalidPayload, frame.Event)
	}
	if err := json.Unmarshal(frame.Data, &req); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", errors.ErrInvalidPayload, frame.Event, err)
	}
	return req, nil
}

// decodeRetrieveMessages accepts the positional form ["sender","receiver"]
// as well as {"sender": "...", "receiver": "..."}.
func decodeRetrieveMessages(frame Frame) (domain.Request, error) {
	var pair []domain.UserID
	if err := json.Unmarshal(frame.Data, &pair); err == nil {
		if len(pair) != 2 {
			return nil, fmt.Errorf("%w: %s expects 2 arguments, got %d",
				errors.ErrInvalidPayload, frame.Event, len(pair))
		}
		return domain.RetrieveMessagesRequest{Sender: pair[0], Receiver: pair[1]}, nil
	}
	return decodeInto[domain.RetrieveMessagesRequest](frame)
}

// Encode renders an outbound event as a frame.
func Encode(e event.DomainEvent) ([]byte, error) {
	var payload any
	switch evt := e.(type) {
	case event.InstanceID:
		payload = evt.ID
	case event.Directory:
		payload = nonNil(evt.Users)
	case event.RegistrationSucceeded:
	case event.RegistrationFailed:
		payload = evt.Reason
	case event.LoginSucceeded:
		payload = evt
	case event.LoginFailed:
		payload = evt.Reason
	case event.MessageReceived:
		payload = evt.Content
	case event.MessagesRetrieved:
		payload = nonNil(evt.Messages)
	case event.RetrievalFailed:
		payload = evt.Reason
	case event.ProtocolError:
		payload = evt.Reason
	default:
		return nil, fmt.Errorf("%w: %T", errors.ErrUnknownEvent, e)
	}

	frame := Frame{Event: string(e.EventName())}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		frame.Data = data
	}
	return json.Marshal(frame)
}

// nonNil keeps empty collections as [] on the wire instead of null.
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
