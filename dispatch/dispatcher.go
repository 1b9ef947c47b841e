package dispatch

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"account-gateway/metrics"
	"account-gateway/middleware/ratelimit"
	"account-gateway/middleware/ratelimit/application"
	"account-gateway/middleware/ratelimit/domain"

	"github.com/dustin/go-humanize"
	"github.com/go-logr/logr"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultWorkers        = 2
	DefaultSlotsPerWorker = 10
	DefaultGracePerWorker = time.Second
)

type Options struct {
	Addr           string
	Workers        int
	// SlotsPerWorker limita as conexões em voo por worker; as demais esperam slot.
	SlotsPerWorker int
	// Global é o limiter do tier global, compartilhado por todos os workers.
	Global         domain.Limiter
	RetryEvery     time.Duration
	GracePerWorker time.Duration

	Logger  logr.Logger
	Metrics *metrics.Metrics
}

// Dispatcher aceita conexões e distribui cada uma a um worker em round-robin puro.
type Dispatcher struct {
	opts    Options
	workers []*Worker
	log     logr.Logger

	// cursor só é tocado pelo loop de accept.
	cursor   int
	accepted atomic.Int64
}

func New(opts Options, handler ConnHandler) *Dispatcher {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.SlotsPerWorker <= 0 {
		opts.SlotsPerWorker = DefaultSlotsPerWorker
	}
	if opts.GracePerWorker <= 0 {
		opts.GracePerWorker = DefaultGracePerWorker
	}
	if opts.Logger.GetSink() == nil {
		opts.Logger = logr.Discard()
	}

	d := &Dispatcher{
		opts:    opts,
		workers: make([]*Worker, opts.Workers),
		log:     opts.Logger,
	}
	for i := range d.workers {
		slots, _ := ratelimit.NewSlots(ratelimit.ConcurrencyOptions{
			Max: opts.SlotsPerWorker,
			OnWait: func(waited time.Duration) {
				opts.Metrics.SlotWait(i, waited)
			},
		})
		d.workers[i] = &Worker{
			index: i,
			queue: newConnQueue(),
			slots: slots,
			admission: application.AdmissionService{
				Limiter:    opts.Global,
				RetryEvery: opts.RetryEvery,
			},
			handler: handler,
			log:     opts.Logger.WithValues("worker", i),
			metrics: opts.Metrics,
		}
	}
	return d
}

func (d *Dispatcher) Workers() []*Worker { return d.workers }

// Accepted é o total de conexões entregues a algum worker.
func (d *Dispatcher) Accepted() int64 { return d.accepted.Load() }

// Run faz bind em opts.Addr e chama Serve.
func (d *Dispatcher) Run(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", d.opts.Addr)
	if err != nil {
		return fmt.Errorf("bind %s: %w", d.opts.Addr, err)
	}
	d.log.Info("Server listening", "addr", ln.Addr().String())
	return d.Serve(ctx, ln)
}

// Serve roda o loop de accept até ctx encerrar (o sinal de shutdown).
//
// No shutdown: o listener fecha, os workers drenam suas filas e Serve espera
// até workers × GracePerWorker. Se o prazo estoura, o contexto das tarefas é
// cancelado e Serve retorna mesmo com conexões em voo.
func (d *Dispatcher) Serve(ctx context.Context, ln net.Listener) error {
	tasks, stopTasks := context.WithCancel(context.WithoutCancel(ctx))
	defer stopTasks()
	drain, stopWorkers := context.WithCancel(ctx)
	defer stopWorkers()

	var g errgroup.Group
	for _, w := range d.workers {
		g.Go(func() error {
			w.Run(drain, tasks)
			return nil
		})
	}
	d.log.Info("started workers", "workers", len(d.workers), "slotsPerWorker", d.opts.SlotsPerWorker)

	stopListener := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stopListener()

	serveErr := d.acceptLoop(ctx, ln)

	d.log.Info("Shutting down system")
	stopWorkers()

	done := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(done)
	}()

	grace := time.Duration(len(d.workers)) * d.opts.GracePerWorker
	timer := time.NewTimer(grace)
	defer timer.Stop()
	select {
	case <-done:
	case <-timer.C:
		d.log.Info("grace period expired, abandoning in-flight connections", "grace", grace.String())
		stopTasks()
	}

	d.log.Info("Total request served", "total", humanize.Comma(d.accepted.Load()))
	return serveErr
}

func (d *Dispatcher) acceptLoop(ctx context.Context, ln net.Listener) error {
	var backoff time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return fmt.Errorf("accept: %w", err)
			}

			if backoff == 0 {
				backoff = 5 * time.Millisecond
			} else if backoff *= 2; backoff > time.Second {
				backoff = time.Second
			}
			d.log.Error(err, "accept failed, retrying", "backoff", backoff.String())
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(backoff):
			}
			continue
		}
		backoff = 0

		if ctx.Err() != nil {
			d.reject(conn)
			return nil
		}
		d.assign(conn)
	}
}

// assign entrega conn ao worker do cursor e avança o cursor.
// Retorna o índice do worker ou -1 se a fila já estava fechada.
func (d *Dispatcher) assign(conn net.Conn) int {
	idx := d.cursor
	d.cursor = (d.cursor + 1) % len(d.workers)

	if !d.workers[idx].queue.Push(conn) {
		d.reject(conn)
		return -1
	}
	d.accepted.Add(1)
	d.opts.Metrics.ConnectionAccepted()
	return idx
}

func (d *Dispatcher) reject(conn net.Conn) {
	d.opts.Metrics.ConnectionRejected()
	d.log.V(1).Info("connection rejected during shutdown", "remote", conn.RemoteAddr().String())
	_ = conn.Close()
}
