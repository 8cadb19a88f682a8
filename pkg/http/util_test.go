package http

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClientKey(t *testing.T) {
	assert.Equal(t, "10.0.0.1", ClientKey("", "10.0.0.1"))
	assert.Equal(t, "203.0.113.7", ClientKey("203.0.113.7, 10.0.0.2", "10.0.0.1"))
	assert.Equal(t, "203.0.113.7", ClientKey(" 203.0.113.7 ", "10.0.0.1"))
}
