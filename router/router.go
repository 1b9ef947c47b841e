package router

import (
	"context"
	"fmt"
	"net"
	"time"

	"account-gateway/metrics"
	"account-gateway/middleware/ratelimit"
	"account-gateway/middleware/ratelimit/domain"
	"account-gateway/storage"

	"github.com/go-logr/logr"
	"github.com/rs/xid"
	"github.com/uptrace/bun"
)

const routeNotFound = "not-found"

// Authenticator valida o valor do header Authorization e devolve a identidade.
type Authenticator interface {
	Authenticate(ctx context.Context, authorization string) (string, error)
}

// TierGuard aplica um tier de rate limit às rotas que pedem um.
type TierGuard interface {
	Admit(ctx context.Context, tier domain.Tier, r ratelimit.Request) domain.Decision
	DenyHeaders(tier domain.Tier, dec domain.Decision) string
}

// Pool entrega uma conexão do banco exclusiva para um request.
type Pool interface {
	Acquire(ctx context.Context) (storage.Session, error)
}

type Options struct {
	Routes []Route
	Auth   Authenticator
	Guard  TierGuard
	Pool   Pool

	// ReadTimeout <= 0 desliga o prazo de leitura.
	ReadTimeout     time.Duration
	MaxRequestBytes int

	Logger  logr.Logger
	Metrics *metrics.Metrics
}

// Router atende uma conexão: lê um request, escolhe a rota, aplica auth e tier,
// chama o handler e escreve exatamente uma resposta.
type Router struct {
	opts Options
	log  logr.Logger
}

func New(opts Options) *Router {
	if opts.Logger.GetSink() == nil {
		opts.Logger = logr.Discard()
	}
	if opts.MaxRequestBytes <= 0 {
		opts.MaxRequestBytes = DefaultMaxRequestBytes
	}
	return &Router{opts: opts, log: opts.Logger}
}

// ServeConn implementa dispatch.ConnHandler. Fecha conn ao terminar.
// Falha de leitura derruba a conexão sem resposta.
func (rt *Router) ServeConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	if rt.opts.ReadTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(rt.opts.ReadTimeout))
	}
	// quando o contexto das tarefas cai, I/O pendente falha na hora
	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Now()) })
	defer stop()

	log := rt.log.WithValues("conn", xid.New().String(), "remote", conn.RemoteAddr().String())
	ctx = logr.NewContext(ctx, log)

	req, err := ReadRequest(conn, rt.opts.MaxRequestBytes)
	if err != nil {
		log.Error(err, "Unable to read stream")
		return
	}
	if ctx.Err() != nil {
		// leitura cortada pelo shutdown, não pelo READ_TIMEOUT
		return
	}
	req.remote = conn.RemoteAddr().String()

	route := rt.match(req)
	resp := rt.handle(ctx, route, req)

	name := routeNotFound
	if route != nil {
		name = route.Name
	}
	rt.opts.Metrics.Response(name, resp.Code())
	log.V(1).Info("request handled", "method", req.Method, "path", req.Path, "route", name, "code", resp.Code())

	if _, err := conn.Write(resp.Bytes()); err != nil {
		log.Error(err, "Failed to write response to stream")
	}
}

// Dispatch resolve um request já parseado sem tocar em socket.
func (rt *Router) Dispatch(ctx context.Context, req *Request) Response {
	return rt.handle(ctx, rt.match(req), req)
}

func (rt *Router) match(req *Request) *Route {
	for i := range rt.opts.Routes {
		if rt.opts.Routes[i].matches(req) {
			return &rt.opts.Routes[i]
		}
	}
	return nil
}

func (rt *Router) handle(ctx context.Context, route *Route, req *Request) (resp Response) {
	if route == nil {
		return NotFound("404 not found")
	}
	log := logr.FromContextOrDiscard(ctx).WithValues("route", route.Name)

	defer func() {
		if p := recover(); p != nil {
			log.Error(fmt.Errorf("panic: %v", p), "handler panicked")
			resp = InternalError("Internal error")
		}
	}()

	if route.Auth {
		if rt.opts.Auth == nil {
			log.Error(nil, "route requires auth but no authenticator is configured")
			return Unauthorized()
		}
		identity, err := rt.opts.Auth.Authenticate(ctx, req.Header("Authorization"))
		if err != nil {
			log.Error(err, "Unauthorized access")
			return Unauthorized()
		}
		log.V(1).Info("authenticated", "identity", identity)
	}

	if route.Tier != "" && rt.opts.Guard != nil {
		dec := rt.opts.Guard.Admit(ctx, route.Tier, req)
		if !dec.Allowed {
			log.Info("429 Too Many Requests", "tier", route.Tier)
			return TooManyRequests(rt.opts.Guard.DenyHeaders(route.Tier, dec))
		}
	}

	if route.Handler == nil {
		return NotFound("404 not found")
	}

	var db bun.IDB
	if route.UseDB {
		if rt.opts.Pool == nil {
			return ServiceUnavailable("Service unavailable")
		}
		sess, err := rt.opts.Pool.Acquire(ctx)
		if err != nil {
			log.Error(err, "Failed to get a database connection from the pool")
			return ServiceUnavailable("Service unavailable")
		}
		defer sess.Close()
		db = sess
	}

	return route.Handler(ctx, req.Raw, db)
}
