//go:generate go run go.uber.org/mock/mockgen -source=identity_service.go -destination=../mocks/mock_identity_service.go -package=mocks
package services

import (
	"chat-relay/auth"
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/repositories"
	stdErrors "errors"
	"fmt"

	"github.com/samber/lo"
)

type IIdentityService interface {
	Register(req domain.RegisterRequest) error
	Login(req domain.LoginRequest) (domain.User, string, error)
	Directory() ([]domain.User, error)
	Resume(token string) (domain.UserID, error)
}

type IdentityService struct {
	userRepository repositories.IUserRepository
	tokens         auth.TokenIssuer
}

func NewIdentityService(repo repositories.IUserRepository, tokens auth.TokenIssuer) IIdentityService {
	return &IdentityService{userRepository: repo, tokens: tokens}
}

// Register creates the account described by req.
// Errors: ErrInvalidPayload, ErrDuplicateEmail, ErrUserIDTaken, ErrPersistence.
func (s *IdentityService) Register(req domain.RegisterRequest) error {
	// 1. Shape of the payload
	if err := auth.ValidateRegister(req); err != nil {
		return err
	}

	// 2. Email uniqueness, checked before paying for the hash
	_, err := s.userRepository.GetUserByEmail(req.Email)
	switch {
	case err == nil:
		return errors.ErrDuplicateEmail
	case !stdErrors.Is(err, errors.ErrUserNotFound):
		return fmt.Errorf("%w: checking existing user: %v", errors.ErrPersistence, err)
	}

	// 3. Only the salted hash reaches the repository
	hashedPassword, err := auth.HashPassword(req.Password)
	if err != nil {
		return fmt.Errorf("%w: hashing failed: %v", errors.ErrPersistence, err)
	}

	// 4. The repository re-checks uniqueness inside its transaction
	err = s.userRepository.CreateUser(repositories.User{
		ID:           string(req.ID),
		Email:        req.Email,
		PasswordHash: hashedPassword,
	})
	switch {
	case err == nil:
		return nil
	case stdErrors.Is(err, errors.ErrDuplicateEmail), stdErrors.Is(err, errors.ErrUserIDTaken):
		return err
	default:
		return fmt.Errorf("%w: creating user: %v", errors.ErrPersistence, err)
	}
}

// Login matches email and password exactly and issues a session token.
// Unknown email and wrong password are indistinguishable: ErrInvalidCredentials.
func (s *IdentityService) Login(req domain.LoginRequest) (domain.User, string, error) {
	if err := auth.ValidateLogin(req); err != nil {
		return domain.User{}, "", errors.ErrInvalidCredentials
	}

	user, err := s.userRepository.GetUserByEmail(req.Email)
	switch {
	case stdErrors.Is(err, errors.ErrUserNotFound):
		return domain.User{}, "", errors.ErrInvalidCredentials
	case err != nil:
		return domain.User{}, "", fmt.Errorf("%w: authenticating user: %v", errors.ErrPersistence, err)
	}

	match, err := auth.ComparePassword(req.Password, user.PasswordHash)
	if err != nil || !match {
		return domain.User{}, "", errors.ErrInvalidCredentials
	}

	token, err := s.tokens.Generate(domain.UserID(user.ID))
	if err != nil {
		return domain.User{}, "", err
	}
	return toDomainUser(user), token, nil
}

func (s *IdentityService) Directory() ([]domain.User, error) {
	users, err := s.userRepository.ListUsers()
	if err != nil {
		return nil, fmt.Errorf("%w: listing users: %v", errors.ErrPersistence, err)
	}
	return lo.Map(users, func(item repositories.User, _ int) domain.User {
		return toDomainUser(item)
	}), nil
}

// Resume returns the user a session token was issued for.
func (s *IdentityService) Resume(token string) (domain.UserID, error) {
	claims, err := s.tokens.Validate(token)
	if err != nil {
		return "", err
	}
	return claims.UserID, nil
}

func toDomainUser(u repositories.User) domain.User {
	return domain.User{
		ID:           domain.UserID(u.ID),
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
	}
}
