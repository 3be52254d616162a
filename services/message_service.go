//go:generate go run go.uber.org/mock/mockgen -source=message_service.go -destination=../mocks/mock_message_service.go -package=mocks
package services

import (
	"chat-relay/auth"
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/repositories"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

type IMessageService interface {
	Send(req domain.SendMessageRequest) (domain.Message, error)
	History(req domain.RetrieveMessagesRequest) ([]domain.Message, error)
}

type MessageService struct {
	messageRepository repositories.IMessageRepository
}

func NewMessageService(repo repositories.IMessageRepository) IMessageService {
	return &MessageService{messageRepository: repo}
}

// Send persists the message. Sender and receiver are trusted, not looked up.
// The returned message is always filled so the caller can still deliver it
// when persistence failed (ErrPersistence).
func (s *MessageService) Send(req domain.SendMessageRequest) (domain.Message, error) {
	message := domain.Message{
		ID:         req.MessageID,
		SenderID:   req.SenderID,
		ReceiverID: req.ReceiverID,
		Content:    req.Content,
		CreatedAt:  time.Now().UTC(),
	}
	if message.ID == "" {
		message.ID = uuid.NewString()
	}

	if err := auth.ValidateSendMessage(req); err != nil {
		return message, err
	}

	stored, err := s.messageRepository.StoreMessage(repositories.DiskMessage{
		ID:       message.ID,
		Sender:   string(message.SenderID),
		Receiver: string(message.ReceiverID),
		Content:  message.Content,
		At:       message.CreatedAt,
	})
	if err != nil {
		return message, fmt.Errorf("%w: creating message %s: %v", errors.ErrPersistence, message.ID, err)
	}
	return toDomainMessage(stored), nil
}

// History returns the conversation between the two users, both directions,
// in the order messages were stored.
func (s *MessageService) History(req domain.RetrieveMessagesRequest) ([]domain.Message, error) {
	if err := auth.ValidateRetrieveMessages(req); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrRetrieval, err)
	}
	messages, err := s.messageRepository.GetConversation(string(req.Sender), string(req.Receiver))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrRetrieval, err)
	}
	return lo.Map(messages, func(item repositories.DiskMessage, _ int) domain.Message {
		return toDomainMessage(item)
	}), nil
}

func toDomainMessage(m repositories.DiskMessage) domain.Message {
	return domain.Message{
		ID:         m.ID,
		SenderID:   domain.UserID(m.Sender),
		ReceiverID: domain.UserID(m.Receiver),
		Content:    m.Content,
		CreatedAt:  m.At,
	}
}
