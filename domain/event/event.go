// Package event holds the outbound events the relay pushes to clients.
// Each variant knows its wire name; the payload encoding lives in protocol.
package event

import (
	"chat-relay/domain"
)

type Name string

const (
	InstanceIDName          Name = "send-uuid"
	DirectoryName           Name = "send-allUsers"
	RegistrationSuccessName Name = "registration-success"
	RegistrationErrorName   Name = "registration-error"
	LoginSuccessName        Name = "login-success"
	LoginErrorName          Name = "login-error"
	MessageReceivedName     Name = "received-message"
	MessagesRetrievedName   Name = "retrieved-messages"
	RetrieveErrorName       Name = "retrieve-messages-error"
	ProtocolErrorName       Name = "protocol-error"
)

// DomainEvent is anything the registry can deliver to a session.
type DomainEvent interface {
	EventName() Name
}

type InstanceID struct {
	ID string
}

type Directory struct {
	Users []domain.User
}

type RegistrationSucceeded struct{}

type RegistrationFailed struct {
	Reason string
}

// LoginSucceeded carries the session token a client may reconnect with.
type LoginSucceeded struct {
	UserID domain.UserID `json:"userId"`
	Token  string        `json:"token"`
}

type LoginFailed struct {
	Reason string
}

// MessageReceived only carries the body, as clients expect.
type MessageReceived struct {
	Content string
}

type MessagesRetrieved struct {
	Messages []domain.Message
}

type RetrievalFailed struct {
	Reason string
}

type ProtocolError struct {
	Reason string
}

func (InstanceID) EventName() Name            { return InstanceIDName }
func (Directory) EventName() Name             { return DirectoryName }
func (RegistrationSucceeded) EventName() Name { return RegistrationSuccessName }
func (RegistrationFailed) EventName() Name    { return RegistrationErrorName }
func (LoginSucceeded) EventName() Name        { return LoginSuccessName }
func (LoginFailed) EventName() Name           { return LoginErrorName }
func (MessageReceived) EventName() Name       { return MessageReceivedName }
func (MessagesRetrieved) EventName() Name     { return MessagesRetrievedName }
func (RetrievalFailed) EventName() Name       { return RetrieveErrorName }
func (ProtocolError) EventName() Name         { return ProtocolErrorName }
