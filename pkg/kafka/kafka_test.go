package kafka

import (
	"testing"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type unitBatch struct {
	Title string `json:"title"`
	Units []struct {
		Raw string `json:"raw"`
	} `json:"units"`
}

func TestDecodeJSON(t *testing.T) {
	got, err := DecodeJSON[unitBatch]([]byte(`{"title":"guide","units":[{"raw":"an e-mail"}]}`))
	require.NoError(t, err)
	assert.Equal(t, "guide", got.Title)
	require.Len(t, got.Units, 1)
	assert.Equal(t, "an e-mail", got.Units[0].Raw)

	_, err = DecodeJSON[unitBatch]([]byte("{"))
	assert.ErrorContains(t, err, "decoding kafka message")
}

func TestHeader(t *testing.T) {
	headers := []kafkago.Header{
		{Key: "content-type", Value: []byte("application/json")},
		{Key: RequestIDHeader, Value: []byte("req-1")},
	}
	assert.Equal(t, "req-1", header(headers, RequestIDHeader))
	assert.Empty(t, header(headers, "missing"))
}
