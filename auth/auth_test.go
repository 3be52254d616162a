package auth

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHashAndCompare(t *testing.T) {
	req := require.New(t)
	password := "p"

	hash, err := HashPassword(password)
	req.NoError(err)
	req.True(strings.HasPrefix(hash, "$argon2id$"))
	req.NotContains(hash, "$p$")

	match, err := ComparePassword(password, hash)
	req.NoError(err)
	req.True(match)

	// Exact match only
	for _, wrong := range []string{"P", " p", "p ", ""} {
		match, err = ComparePassword(wrong, hash)
		req.NoError(err)
		req.False(match, wrong)
	}
}

func TestHash_Is_Salted(t *testing.T) {
	req := require.New(t)
	first, err := HashPassword("same")
	req.NoError(err)
	second, err := HashPassword("same")
	req.NoError(err)
	req.NotEqual(first, second)
}

func TestComparePassword_Malformed(t *testing.T) {
	for _, encoded := range []string{
		"",
		"plaintext",
		"$argon2i$v=19$m=65536,t=3,p=2$c2FsdA$a2V5",
		"$argon2id$v=1$m=65536,t=3,p=2$c2FsdA$a2V5",
		"$argon2id$v=19$m=x,t=3,p=2$c2FsdA$a2V5",
		"$argon2id$v=19$m=65536,t=3,p=2$!!$a2V5",
	} {
		_, err := ComparePassword("p", encoded)
		require.Error(t, err, encoded)
	}
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantErr bool
	}{
		{"Valid registration", ValidateRegister(domain.RegisterRequest{ID: "u1", Email: "a@x.com", Password: "p"}), false},
		{"Missing id", ValidateRegister(domain.RegisterRequest{Email: "a@x.com", Password: "p"}), true},
		{"Invalid email", ValidateRegister(domain.RegisterRequest{ID: "u1", Email: "notanemail", Password: "p"}), true},
		{"Missing password", ValidateRegister(domain.RegisterRequest{ID: "u1", Email: "a@x.com"}), true},
		{"Valid login", ValidateLogin(domain.LoginRequest{Email: "a@x.com", Password: "p"}), false},
		{"Login without email", ValidateLogin(domain.LoginRequest{Password: "p"}), true},
		{"Message without receiver", ValidateSendMessage(domain.SendMessageRequest{SenderID: "A"}), true},
		{"Empty body is allowed", ValidateSendMessage(domain.SendMessageRequest{SenderID: "A", ReceiverID: "B"}), false},
		{"History without sender", ValidateRetrieveMessages(domain.RetrieveMessagesRequest{Receiver: "B"}), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.wantErr {
				require.ErrorIs(t, tt.err, errors.ErrInvalidPayload)
			} else {
				require.NoError(t, tt.err)
			}
		})
	}
}

func TestTokenIssuer(t *testing.T) {
	req := require.New(t)
	issuer := NewTokenIssuer("test-secret", time.Hour)

	token, err := issuer.Generate("u1")
	req.NoError(err)

	claims, err := issuer.Validate(token)
	req.NoError(err)
	req.Equal(domain.UserID("u1"), claims.UserID)

	// Signed with another secret
	_, err = NewTokenIssuer("other", time.Hour).Validate(token)
	req.ErrorIs(err, errors.ErrInvalidToken)

	// Expired
	expired, err := NewTokenIssuer("test-secret", -time.Minute).Generate("u1")
	req.NoError(err)
	_, err = issuer.Validate(expired)
	req.ErrorIs(err, errors.ErrInvalidToken)

	_, err = issuer.Validate("garbage")
	req.ErrorIs(err, errors.ErrInvalidToken)
}

// BenchmarkHashPassword measures the per-registration hashing cost
func BenchmarkHashPassword(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, _ = HashPassword("A-very-long-and-complex-password-for-bench-123!")
	}
}
