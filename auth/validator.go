package auth

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateRegister checks the registration payload shape.
// Passwords have no complexity rule: existing clients register short ones.
func ValidateRegister(req domain.RegisterRequest) error {
	return check(req)
}

func ValidateLogin(req domain.LoginRequest) error {
	return check(req)
}

func ValidateSendMessage(req domain.SendMessageRequest) error {
	return check(req)
}

func ValidateRetrieveMessages(req domain.RetrieveMessagesRequest) error {
	return check(req)
}

func check(req any) error {
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidPayload, err)
	}
	return nil
}
