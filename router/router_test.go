package router

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"account-gateway/middleware/ratelimit"
	"account-gateway/middleware/ratelimit/domain"
	"account-gateway/middleware/ratelimit/infra"
	"account-gateway/storage"

	"github.com/go-logr/logr/testr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

type fakeAuth struct{ token string }

func (f fakeAuth) Authenticate(_ context.Context, authorization string) (string, error) {
	if authorization != "Bearer "+f.token {
		return "", errors.New("invalid token")
	}
	return "ana@example.com", nil
}

type failingPool struct{}

func (failingPool) Acquire(context.Context) (storage.Session, error) {
	return nil, storage.ErrPoolExhausted
}

type dbRecorder struct {
	mu   sync.Mutex
	seen []bool
}

func (p *dbRecorder) handler(name string) HandlerFunc {
	return func(_ context.Context, _ string, db bun.IDB) Response {
		p.mu.Lock()
		p.seen = append(p.seen, db != nil)
		p.mu.Unlock()
		return OK(name)
	}
}

func namedHandlers(p *dbRecorder) Handlers {
	return Handlers{
		CreateUser: p.handler("create-user"),
		GetUser:    p.handler("get-user"),
		ListUsers:  p.handler("list-users"),
		EditUser:   p.handler("edit-user"),
		DeleteUser: p.handler("delete-user"),
		Login:      p.handler("login"),
	}
}

func openPool(t *testing.T) *storage.DB {
	t.Helper()
	db, err := storage.Open(context.Background(), "file:"+strings.ReplaceAll(t.Name(), "/", "_")+"?mode=memory&cache=shared", storage.Options{MaxOpenConns: 4})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func guardWith(tiers map[domain.Tier]infra.TierConfig) *ratelimit.Guard {
	return ratelimit.NewGuard(ratelimit.Options{Store: infra.NewStore(tiers)})
}

func openTiers() map[domain.Tier]infra.TierConfig {
	return map[domain.Tier]infra.TierConfig{
		domain.TierCommon: {RPS: 1000, Burst: 1000},
		domain.TierHard:   {RPS: 1000, Burst: 1000},
	}
}

func TestDispatch_RouteTable(t *testing.T) {
	rec := &dbRecorder{}
	rt := New(Options{
		Routes: Table(namedHandlers(rec)),
		Auth:   fakeAuth{token: "t0k"},
		Guard:  guardWith(openTiers()),
		Pool:   openPool(t),
		Logger: testr.New(t),
	})

	cases := []struct {
		raw  string
		code int
		body string
	}{
		{"OPTIONS /anything HTTP/1.1\r\n\r\n", 200, ""},
		{"GET /ping HTTP/1.1\r\n\r\n", 200, `{"message": "pong"}`},
		{"GET /users/7 HTTP/1.1\r\n\r\n", 200, "get-user"},
		{"GET /users HTTP/1.1\r\n\r\n", 200, "list-users"},
		{"PUT /users/7 HTTP/1.1\r\n\r\n{}", 200, "edit-user"},
		{"DELETE /users/7 HTTP/1.1\r\n\r\n", 200, "delete-user"},
		{"POST /login HTTP/1.1\r\n\r\n{}", 200, "login"},
		{"POST /users HTTP/1.1\r\nAuthorization: Bearer t0k\r\n\r\n{}", 200, "create-user"},
		{"POST /users HTTP/1.1\r\n\r\n{}", 401, "Unauthorized"},
		{"POST /users HTTP/1.1\r\nAuthorization: Bearer nope\r\n\r\n{}", 401, "Unauthorized"},
		{"PATCH /users/7 HTTP/1.1\r\n\r\n", 404, "404 not found"},
		{"GET /nope HTTP/1.1\r\n\r\n", 404, "404 not found"},
		{"garbage", 404, "404 not found"},
	}
	for _, tc := range cases {
		resp := rt.Dispatch(context.Background(), ParseRequest(tc.raw))
		assert.Equal(t, tc.code, resp.Code(), tc.raw)
		assert.Equal(t, tc.body, resp.Body, tc.raw)
	}

	// todas as rotas que chegaram aos handlers externos usam o banco
	for _, seen := range rec.seen {
		assert.True(t, seen)
	}
	assert.Len(t, rec.seen, 6)
}

func TestDispatch_PreflightHeaders(t *testing.T) {
	rt := New(Options{Routes: Table(Handlers{})})
	resp := rt.Dispatch(context.Background(), ParseRequest("OPTIONS /users HTTP/1.1\r\n\r\n"))
	assert.Equal(t, StatusCORSAllowAll, resp.StatusLine)
}

func TestDispatch_TierDenied(t *testing.T) {
	rec := &dbRecorder{}
	rt := New(Options{
		Routes: Table(namedHandlers(rec)),
		Guard: guardWith(map[domain.Tier]infra.TierConfig{
			domain.TierCommon: {RPS: 1, Burst: 0},
			domain.TierHard:   {RPS: 1000, Burst: 1000},
		}),
		Pool: failingPool{},
	})

	for i := 0; i < 2; i++ {
		resp := rt.Dispatch(context.Background(), ParseRequest("PUT /users/5 HTTP/1.1\r\n\r\n{}"))
		require.Equal(t, 429, resp.Code())
		assert.Contains(t, resp.StatusLine, "Retry-After: 1\r\n")
	}
	// a negação acontece antes de pegar conexão do banco
	assert.Empty(t, rec.seen)
}

func TestDispatch_TierCapacityOne(t *testing.T) {
	rt := New(Options{
		Routes: Table(namedHandlers(&dbRecorder{})),
		Guard: guardWith(map[domain.Tier]infra.TierConfig{
			domain.TierCommon: {RPS: 0.001, Burst: 1},
		}),
		Pool: openPool(t),
	})

	codes := map[int]int{}
	for i := 0; i < 2; i++ {
		resp := rt.Dispatch(context.Background(), ParseRequest("DELETE /users/5 HTTP/1.1\r\n\r\n"))
		codes[resp.Code()]++
	}
	assert.Equal(t, map[int]int{200: 1, 429: 1}, codes)
}

func TestDispatch_AuthBeforeTier(t *testing.T) {
	store := infra.NewStore(map[domain.Tier]infra.TierConfig{domain.TierHard: {RPS: 0.001, Burst: 1}})
	rt := New(Options{
		Routes: Table(namedHandlers(&dbRecorder{})),
		Auth:   fakeAuth{token: "ok"},
		Guard:  ratelimit.NewGuard(ratelimit.Options{Store: store}),
		Pool:   openPool(t),
	})

	// request sem token não gasta o token do tier hard
	resp := rt.Dispatch(context.Background(), ParseRequest("POST /users HTTP/1.1\r\n\r\n{}"))
	require.Equal(t, 401, resp.Code())

	resp = rt.Dispatch(context.Background(), ParseRequest("POST /users HTTP/1.1\r\nAuthorization: Bearer ok\r\n\r\n{}"))
	assert.Equal(t, 200, resp.Code())
}

func TestDispatch_PoolUnavailable(t *testing.T) {
	rec := &dbRecorder{}
	rt := New(Options{Routes: Table(namedHandlers(rec)), Pool: failingPool{}})

	resp := rt.Dispatch(context.Background(), ParseRequest("GET /users HTTP/1.1\r\n\r\n"))
	assert.Equal(t, 503, resp.Code())
	assert.Empty(t, rec.seen)

	// ping não usa banco
	resp = rt.Dispatch(context.Background(), ParseRequest("GET /ping HTTP/1.1\r\n\r\n"))
	assert.Equal(t, 200, resp.Code())
}

func TestDispatch_HandlerPanic(t *testing.T) {
	rt := New(Options{
		Routes: []Route{{Name: "boom", Method: "GET", Prefix: "/boom", Handler: func(context.Context, string, bun.IDB) Response {
			panic("boom")
		}}},
		Logger: testr.New(t),
	})
	resp := rt.Dispatch(context.Background(), ParseRequest("GET /boom HTTP/1.1\r\n\r\n"))
	assert.Equal(t, 500, resp.Code())
}

func TestServeConn_WritesOneResponseAndCloses(t *testing.T) {
	rt := New(Options{Routes: Table(Handlers{}), ReadTimeout: time.Second, Logger: testr.New(t)})

	client, server := net.Pipe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		rt.ServeConn(context.Background(), server)
	}()

	_, err := client.Write([]byte("GET /ping HTTP/1.1\r\nHost: x\r\n\r\n"))
	require.NoError(t, err)

	out, err := io.ReadAll(client)
	require.NoError(t, err)
	assert.Equal(t, StatusOK+`{"message": "pong"}`, string(out))
	<-done
}

func TestServeConn_ReadFailureWritesNothing(t *testing.T) {
	rt := New(Options{Routes: Table(Handlers{}), ReadTimeout: 50 * time.Millisecond})

	client, server := net.Pipe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		rt.ServeConn(context.Background(), server)
	}()

	// nada é enviado: o prazo de leitura expira e a conexão fecha sem resposta
	out, err := io.ReadAll(client)
	require.NoError(t, err)
	assert.Empty(t, out)
	<-done
}

func TestServeConn_ReadTimeoutParsesWhatArrived(t *testing.T) {
	rt := New(Options{Routes: Table(Handlers{}), ReadTimeout: 50 * time.Millisecond, Logger: testr.New(t)})

	client, server := net.Pipe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		rt.ServeConn(context.Background(), server)
	}()

	// a linha chega mas o cliente nunca termina os headers
	_, err := client.Write([]byte("GET /ping HTTP/1.1\r\n"))
	require.NoError(t, err)

	out, err := io.ReadAll(client)
	require.NoError(t, err)
	assert.Equal(t, StatusOK+`{"message": "pong"}`, string(out))
	<-done
}

func TestServeConn_TaskCancelAbortsRead(t *testing.T) {
	rt := New(Options{Routes: Table(Handlers{})})

	ctx, cancel := context.WithCancel(context.Background())
	client, server := net.Pipe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		rt.ServeConn(ctx, server)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("ServeConn did not return after cancel")
	}
	_ = client.Close()
}
