package wsutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSafeSend(t *testing.T) {
	ch := make(chan []byte, 1)
	assert.True(t, SafeSend(ch, []byte("a")))
	assert.False(t, SafeSend(ch, []byte("b")), "full channel should drop")

	closed := make(chan []byte, 1)
	close(closed)
	assert.False(t, SafeSend(closed, []byte("c")), "closed channel should not panic")

	assert.False(t, SafeSend(nil, []byte("d")))
}

func TestSendJSON(t *testing.T) {
	ch := make(chan []byte, 1)
	assert.True(t, SendJSON(ch, map[string]string{"type": "logs"}))
	assert.JSONEq(t, `{"type":"logs"}`, string(<-ch))
}
