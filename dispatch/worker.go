package dispatch

import (
	"context"
	"net"
	"sync"
	"sync/atomic"

	"account-gateway/metrics"
	"account-gateway/middleware/ratelimit/application"
	"account-gateway/middleware/ratelimit/domain"

	"github.com/go-logr/logr"
)

// ConnHandler atende uma conexão do início ao fim e a fecha.
type ConnHandler interface {
	ServeConn(ctx context.Context, conn net.Conn)
}

type ConnHandlerFunc func(ctx context.Context, conn net.Conn)

func (f ConnHandlerFunc) ServeConn(ctx context.Context, conn net.Conn) { f(ctx, conn) }

type WorkerState int32

const (
	StateRunning WorkerState = iota
	StateDraining
	StateStopped
)

func (s WorkerState) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Worker é um contexto de execução independente: uma fila de entrada, um
// conjunto limitado de slots e um contador de conexões servidas.
type Worker struct {
	index     int
	queue     *connQueue
	slots     application.ConcurrencyService
	admission application.AdmissionService
	handler   ConnHandler
	log       logr.Logger
	metrics   *metrics.Metrics

	served   atomic.Int64
	state    atomic.Int32
	inflight sync.WaitGroup
}

func (w *Worker) Index() int { return w.index }

func (w *Worker) Served() int64 { return w.served.Load() }

func (w *Worker) State() WorkerState { return WorkerState(w.state.Load()) }

// Run consome a fila até shutdown encerrar. Depois disso a fila é fechada, o que
// já estava enfileirado ainda é servido e Run espera as tarefas em voo.
//
// tasks é o contexto das tarefas por conexão; cancelá-lo abandona esperas de
// slot e de admissão global. Retorna o total servido pelo worker.
func (w *Worker) Run(shutdown, tasks context.Context) int64 {
	for {
		select {
		case <-shutdown.Done():
			return w.drain(tasks)
		case <-w.queue.Ready():
			if conn, ok := w.queue.Pop(); ok {
				w.serve(tasks, conn)
			}
		}
	}
}

func (w *Worker) drain(tasks context.Context) int64 {
	w.state.Store(int32(StateDraining))
	w.queue.Close()
	for {
		conn, ok := w.queue.Pop()
		if !ok {
			break
		}
		w.serve(tasks, conn)
	}
	w.inflight.Wait()
	w.state.Store(int32(StateStopped))

	served := w.served.Load()
	w.log.Info("worker processed", "served", served)
	return served
}

// serve bloqueia até haver slot e então dispara uma tarefa independente para a conexão.
func (w *Worker) serve(tasks context.Context, conn net.Conn) {
	release, ok := w.slots.Acquire(tasks)
	if !ok {
		w.log.V(1).Info("slot wait abandoned", "remote", conn.RemoteAddr().String())
		_ = conn.Close()
		return
	}
	w.metrics.SlotAcquired(w.index)
	w.served.Add(1)
	w.metrics.RequestServed(w.index)

	w.inflight.Add(1)
	go func() {
		defer w.inflight.Done()
		defer w.metrics.SlotReleased(w.index)
		defer release()

		retries, admitted := w.admission.Wait(tasks)
		w.metrics.GlobalRetries(retries)
		w.metrics.Admission(string(domain.TierGlobal), admitted)
		if !admitted {
			w.log.V(1).Info("global admission abandoned", "retries", retries)
			_ = conn.Close()
			return
		}
		w.handler.ServeConn(tasks, conn)
	}()
}
