package repositories

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func TestDecodeMessage_Skips_Unknown_Fields(t *testing.T) {
	req := require.New(t)
	at := time.Unix(0, 1_700_000_000_000_000_000).UTC()

	b := encodeMessage(DiskMessage{Seq: 7, ID: "m1", Sender: "A", Receiver: "B", Content: "hi", At: at})
	// A field added by a newer writer
	b = protowire.AppendTag(b, 42, protowire.BytesType)
	b = protowire.AppendString(b, "future")

	m, err := decodeMessage(b)
	req.NoError(err)
	req.Equal(DiskMessage{Seq: 7, ID: "m1", Sender: "A", Receiver: "B", Content: "hi", At: at}, m)
}

func TestDecodeUser_Truncated(t *testing.T) {
	b := encodeUser(User{ID: "u1", Email: "a@x.com", CreatedAt: time.Now()})
	_, err := decodeUser(b[:len(b)-3])
	require.Error(t, err)
}
