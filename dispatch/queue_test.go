package dispatch

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnQueue_FIFOAndCloseKeepsQueuedItems(t *testing.T) {
	q := newConnQueue()

	a, _ := net.Pipe()
	b, _ := net.Pipe()
	c, _ := net.Pipe()
	require.True(t, q.Push(a))
	require.True(t, q.Push(b))

	select {
	case <-q.Ready():
	default:
		t.Fatal("expected ready signal after push")
	}

	got, ok := q.Pop()
	require.True(t, ok)
	assert.Same(t, a, got)

	q.Close()
	assert.False(t, q.Push(c), "closed queue must refuse new connections")
	assert.Equal(t, 1, q.Len())

	got, ok = q.Pop()
	require.True(t, ok)
	assert.Same(t, b, got)

	_, ok = q.Pop()
	assert.False(t, ok)
}

func TestConnQueue_ResignalsWhileItemsRemain(t *testing.T) {
	q := newConnQueue()
	for i := 0; i < 3; i++ {
		c, _ := net.Pipe()
		q.Push(c)
	}

	for i := 0; i < 3; i++ {
		<-q.Ready()
		_, ok := q.Pop()
		require.True(t, ok)
	}

	select {
	case <-q.Ready():
		t.Fatal("no signal expected once the queue is empty")
	default:
	}
}
