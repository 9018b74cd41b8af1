package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
}

func TestEncodeAndDecode(t *testing.T) {
	msg, err := encode(Event{Key: "7", Value: sample{ID: 7, Name: "7.txt"}})
	require.NoError(t, err)
	assert.Equal(t, []byte("7"), msg.Key)
	assert.JSONEq(t, `{"id":7,"name":"7.txt"}`, string(msg.Value))

	got, err := DecodeJSON[sample](msg.Value)
	require.NoError(t, err)
	assert.Equal(t, sample{ID: 7, Name: "7.txt"}, got)
}

func TestEncodeRejectsUnmarshalable(t *testing.T) {
	_, err := encode(Event{Key: "x", Value: make(chan int)})
	assert.Error(t, err)
}

func TestDecodeJSONError(t *testing.T) {
	_, err := DecodeJSON[sample]([]byte("{not json"))
	assert.Error(t, err)
}
