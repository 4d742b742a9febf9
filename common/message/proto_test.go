package message

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeOrder(t *testing.T) {
	e := NewEncoder()
	e.Varint(1, 7)
	e.Bytes(2, []byte("abc"))
	e.Message(3, func(sub *Encoder) {
		sub.Varint(1, 300)
	})

	fields, err := Decode(e.Encode())
	require.NoError(t, err)
	require.Len(t, fields, 3)
	assert.EqualValues(t, 1, fields[0].Num)
	assert.Equal(t, uint64(7), fields[0].Varint)
	assert.Equal(t, []byte("abc"), fields[1].Bytes)

	sub, err := Decode(fields[2].Bytes)
	require.NoError(t, err)
	assert.Equal(t, uint64(300), sub[0].Varint)
}

func TestDecodeTruncated(t *testing.T) {
	e := NewEncoder()
	e.Bytes(2, []byte("hello world"))
	data := e.Encode()
	_, err := Decode(data[:len(data)-3])
	assert.True(t, errors.Is(err, ErrMalformed))
}
