package repositories

import (
	"fmt"
	"time"

	"google.golang.org/protobuf/encoding/protowire"
)

// Records are stored as protobuf wire messages:
//
//	message User    { string id = 1; string email = 2; string password_hash = 3; int64 created_at = 4; }
//	message Message { string id = 1; string sender = 2; string receiver = 3; string content = 4;
//	                  int64 created_at = 5; uint64 seq = 6; }
//
// Unknown fields are skipped so older binaries can read newer records.
const (
	userID protowire.Number = iota + 1
	userEmail
	userPasswordHash
	userCreatedAt
)

const (
	messageID protowire.Number = iota + 1
	messageSender
	messageReceiver
	messageContent
	messageCreatedAt
	messageSeq
)

func encodeUser(u User) []byte {
	var b []byte
	b = appendString(b, userID, u.ID)
	b = appendString(b, userEmail, u.Email)
	b = appendString(b, userPasswordHash, u.PasswordHash)
	b = protowire.AppendTag(b, userCreatedAt, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(u.CreatedAt.UnixNano()))
	return b
}

func decodeUser(b []byte) (User, error) {
	var u User
	err := walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == userID && typ == protowire.BytesType:
			return consumeString(b, &u.ID)
		case num == userEmail && typ == protowire.BytesType:
			return consumeString(b, &u.Email)
		case num == userPasswordHash && typ == protowire.BytesType:
			return consumeString(b, &u.PasswordHash)
		case num == userCreatedAt && typ == protowire.VarintType:
			return consumeTime(b, &u.CreatedAt)
		}
		return -1, nil
	})
	return u, err
}

func encodeMessage(m DiskMessage) []byte {
	var b []byte
	b = appendString(b, messageID, m.ID)
	b = appendString(b, messageSender, m.Sender)
	b = appendString(b, messageReceiver, m.Receiver)
	b = appendString(b, messageContent, m.Content)
	b = protowire.AppendTag(b, messageCreatedAt, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.At.UnixNano()))
	b = protowire.AppendTag(b, messageSeq, protowire.VarintType)
	b = protowire.AppendVarint(b, m.Seq)
	return b
}

func decodeMessage(b []byte) (DiskMessage, error) {
	var m DiskMessage
	err := walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == messageID && typ == protowire.BytesType:
			return consumeString(b, &m.ID)
		case num == messageSender && typ == protowire.BytesType:
			return consumeString(b, &m.Sender)
		case num == messageReceiver && typ == protowire.BytesType:
			return consumeString(b, &m.Receiver)
		case num == messageContent && typ == protowire.BytesType:
			return consumeString(b, &m.Content)
		case num == messageCreatedAt && typ == protowire.VarintType:
			return consumeTime(b, &m.At)
		case num == messageSeq && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return n, protowire.ParseError(n)
			}
			m.Seq = v
			return n, nil
		}
		return -1, nil
	})
	return m, err
}

// walk calls field for every field of b. field returns the bytes consumed,
// or -1 to let walk skip a field it does not know.
func walk(b []byte, field func(num protowire.Number, typ protowire.Type, b []byte) (int, error)) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("decode tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		n, err := field(num, typ, b)
		if err != nil {
			return fmt.Errorf("decode field %d: %w", num, err)
		}
		if n < 0 {
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return fmt.Errorf("skip field %d: %w", num, protowire.ParseError(n))
			}
		}
		b = b[n:]
	}
	return nil
}

func appendString[S ~string](b []byte, num protowire.Number, s S) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, string(s))
}

func consumeString[S ~string](b []byte, dst *S) (int, error) {
	v, n := protowire.ConsumeString(b)
	if n < 0 {
		return n, protowire.ParseError(n)
	}
	*dst = S(v)
	return n, nil
}

func consumeTime(b []byte, dst *time.Time) (int, error) {
	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return n, protowire.ParseError(n)
	}
	*dst = time.Unix(0, int64(v)).UTC()
	return n, nil
}
