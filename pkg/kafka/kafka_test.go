package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type job struct {
	JobID   string  `json:"job_id"`
	Support float64 `json:"min_support"`
}

func TestDecodeJSON(t *testing.T) {
	got, err := DecodeJSON[job]([]byte(`{"job_id":"j-1","min_support":0.5}`))
	require.NoError(t, err)
	assert.Equal(t, job{JobID: "j-1", Support: 0.5}, got)

	_, err = DecodeJSON[job]([]byte(`{"job_id":`))
	assert.ErrorContains(t, err, "decoding kafka message")
}
