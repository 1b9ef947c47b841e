package dispatch

import (
	"net"
	"sync"
)

// connQueue é a fila de entrada de um worker: FIFO, sem limite de tamanho,
// vários produtores e um único consumidor.
//
// Ready dispara sempre que a fila passa a ter item; o consumidor chama Pop até
// esvaziar. Depois de Close, Push recusa novas conexões mas os itens que já
// estavam na fila continuam disponíveis para Pop.
type connQueue struct {
	mu     sync.Mutex
	items  []net.Conn
	closed bool
	ready  chan struct{}
}

func newConnQueue() *connQueue {
	return &connQueue{ready: make(chan struct{}, 1)}
}

func (q *connQueue) Push(c net.Conn) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.items = append(q.items, c)
	q.mu.Unlock()

	q.signal()
	return true
}

// Pop não bloqueia. Retorna ok=false com a fila vazia.
func (q *connQueue) Pop() (net.Conn, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return nil, false
	}
	c := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	if len(q.items) > 0 {
		q.signal()
	}
	return c, true
}

func (q *connQueue) Ready() <-chan struct{} { return q.ready }

func (q *connQueue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
}

func (q *connQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *connQueue) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}
