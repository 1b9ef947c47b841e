// Package auth emite e valida os JWTs das contas e implementa POST /login.
//
// Tokens são HS256 com as claims email e exp. Tokens já validados ficam num
// cache com TTL limitado pela própria expiração do token.
package auth
