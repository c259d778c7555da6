package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestKey(t *testing.T) {
	// JSON numbers decode as float64; both numeric forms must key the same.
	assert.Equal(t, "7", requestKey(float64(7)))
	assert.Equal(t, "7", requestKey(7))

	// Distinct string ids keep distinct cancellation slots.
	assert.Equal(t, "req-a", requestKey("req-a"))
	assert.NotEqual(t, requestKey("req-a"), requestKey("req-b"))
	assert.NotEqual(t, requestKey("req-a"), requestKey(float64(0)))
}
