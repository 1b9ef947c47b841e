// Package application contém os casos de uso (regras de aplicação) para rate limit
// e limite de concorrência.
//
// Ele depende apenas do pacote domain e não conhece sockets.
// Ex.: Service.Decide(tier) retorna uma Decision (allow/deny + retry-after) e
// AdmissionService.Wait(ctx) repete a tentativa no tier global até ser admitido.
package application
