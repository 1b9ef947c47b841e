package auth

import (
	"context"
	"encoding/json"
	"errors"

	"account-gateway/router"
	"account-gateway/users"

	"github.com/go-logr/logr"
	"github.com/uptrace/bun"
	"golang.org/x/crypto/bcrypt"
)

const invalidCredentials = "Invalid email or password"

// LoginInput é o corpo de POST /login.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login implementa POST /login.
type Login struct {
	Issuer *Issuer
}

func (l Login) Handle(ctx context.Context, raw string, db bun.IDB) router.Response {
	log := logr.FromContextOrDiscard(ctx)

	var in LoginInput
	if err := json.Unmarshal([]byte(router.ParseRequest(raw).Body), &in); err != nil {
		return router.BadRequest("Failed to parse request body: " + err.Error())
	}
	if in.Email == "" || in.Password == "" {
		return router.BadRequest(invalidCredentials)
	}

	hash, err := users.PasswordByEmail(ctx, db, in.Email)
	if err != nil {
		if !errors.Is(err, users.ErrNotFound) {
			log.Error(err, "Error getting password")
		}
		return router.BadRequest(invalidCredentials)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(in.Password)); err != nil {
		log.V(1).Info("password mismatch", "email", in.Email)
		return router.BadRequest(invalidCredentials)
	}

	token, err := l.Issuer.Issue(in.Email)
	if err != nil {
		log.Error(err, "Error generating jwt token")
		return router.InternalError("Internal error")
	}
	return router.JSON(map[string]string{"token": token})
}
