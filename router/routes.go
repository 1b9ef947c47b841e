package router

import (
	"context"
	"strings"

	"account-gateway/middleware/ratelimit/domain"

	"github.com/uptrace/bun"
)

// HandlerFunc é o contrato dos handlers externos: texto bruto do request e uma
// conexão exclusiva do banco (nil quando a rota não usa banco). Falhas viram
// uma Response; o handler não deve entrar em pânico.
type HandlerFunc func(ctx context.Context, raw string, db bun.IDB) Response

// Route é uma linha da tabela de rotas. Prefix vazio casa qualquer caminho.
type Route struct {
	Name    string
	Method  string
	Prefix  string
	Auth    bool
	Tier    domain.Tier
	UseDB   bool
	Handler HandlerFunc
}

func (rt Route) matches(req *Request) bool {
	return req.Method == rt.Method && strings.HasPrefix(req.Path, rt.Prefix)
}

// Handlers agrupa os handlers externos ligados à tabela.
type Handlers struct {
	CreateUser HandlerFunc
	GetUser    HandlerFunc
	ListUsers  HandlerFunc
	EditUser   HandlerFunc
	DeleteUser HandlerFunc
	Login      HandlerFunc
}

// Table monta a tabela de rotas. A ordem importa: a primeira que casar vence
// e "GET /users/" precisa vir antes de "GET /users".
func Table(h Handlers) []Route {
	return []Route{
		{Name: "preflight", Method: "OPTIONS", Handler: preflight},
		{Name: "create-user", Method: "POST", Prefix: "/users", Auth: true, Tier: domain.TierHard, UseDB: true, Handler: h.CreateUser},
		{Name: "ping", Method: "GET", Prefix: "/ping", Handler: ping},
		{Name: "get-user", Method: "GET", Prefix: "/users/", UseDB: true, Handler: h.GetUser},
		{Name: "list-users", Method: "GET", Prefix: "/users", UseDB: true, Handler: h.ListUsers},
		{Name: "edit-user", Method: "PUT", Prefix: "/users/", Tier: domain.TierCommon, UseDB: true, Handler: h.EditUser},
		{Name: "delete-user", Method: "DELETE", Prefix: "/users/", Tier: domain.TierCommon, UseDB: true, Handler: h.DeleteUser},
		{Name: "login", Method: "POST", Prefix: "/login", Tier: domain.TierHard, UseDB: true, Handler: h.Login},
	}
}

func preflight(context.Context, string, bun.IDB) Response { return Preflight() }

func ping(context.Context, string, bun.IDB) Response { return OK(`{"message": "pong"}`) }
