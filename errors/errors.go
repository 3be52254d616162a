package errors

import "fmt"

var (
	ErrWorkerPanic        = fmt.Errorf("worker panic")
	ErrDuplicateEmail     = fmt.Errorf("user with this email already exists")
	ErrUserIDTaken        = fmt.Errorf("user id already taken")
	ErrUserNotFound       = fmt.Errorf("user not found")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrInvalidPayload     = fmt.Errorf("invalid payload")
	ErrUnknownEvent       = fmt.Errorf("unknown event")
	ErrPersistence        = fmt.Errorf("persistence error")
	ErrRetrieval          = fmt.Errorf("retrieval error")
	ErrStoreUnavailable   = fmt.Errorf("store unavailable")
	ErrMessageIDTaken     = fmt.Errorf("message id already taken")
	ErrTokenGeneration    = fmt.Errorf("token generation failed")
	ErrInvalidToken       = fmt.Errorf("invalid session token")
)
