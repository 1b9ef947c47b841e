package users

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"

	"account-gateway/router"

	"github.com/go-logr/logr"
	"github.com/uptrace/bun"
	"golang.org/x/crypto/bcrypt"
)

// Handlers implementa as rotas de usuário. BcryptCost <= 0 usa bcrypt.DefaultCost.
type Handlers struct {
	BcryptCost int
}

func (h Handlers) cost() int {
	if h.BcryptCost <= 0 {
		return bcrypt.DefaultCost
	}
	return h.BcryptCost
}

// Bind liga os handlers deste pacote na tabela de rotas. Login fica de fora.
func (h Handlers) Bind(rh router.Handlers) router.Handlers {
	rh.CreateUser = h.Create
	rh.GetUser = h.Get
	rh.ListUsers = h.List
	rh.EditUser = h.Edit
	rh.DeleteUser = h.Delete
	return rh
}

func decodeBody(raw string, v any) error {
	if err := json.Unmarshal([]byte(router.ParseRequest(raw).Body), v); err != nil {
		return invalid("Failed to parse request body: " + err.Error())
	}
	return nil
}

func pathID(raw string) (int64, error) {
	id, err := strconv.ParseInt(router.ParseRequest(raw).PathID(), 10, 64)
	if err != nil {
		return 0, invalid("Invalid user ID")
	}
	return id, nil
}

func (h Handlers) Create(ctx context.Context, raw string, db bun.IDB) router.Response {
	log := logr.FromContextOrDiscard(ctx)

	var in CreateInput
	if err := decodeBody(raw, &in); err != nil {
		return router.BadRequest(err.Error())
	}
	if err := ValidateCreate(ctx, db, in); err != nil {
		if IsValidation(err) {
			return router.BadRequest(err.Error())
		}
		log.Error(err, "Error checking if email already exists")
		return router.InternalError("Internal error")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), h.cost())
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return router.BadRequest("Password must be at most 72 bytes long")
		}
		log.Error(err, "Error hashing password")
		return router.InternalError("Internal error")
	}

	u := &User{Name: in.Name, Email: in.Email, Password: string(hash)}
	if err := Insert(ctx, db, u); err != nil {
		// corrida entre a checagem de email e o insert
		if errors.Is(err, ErrDuplicate) {
			return router.BadRequest("Email already exists")
		}
		log.Error(err, "Error creating user")
		return router.InternalError("Failed to create new user")
	}

	saved, err := GetByID(ctx, db, u.ID)
	if err != nil {
		log.Error(err, "Error getting user", "id", u.ID)
		return router.InternalError("Internal error")
	}
	log.Info("user created", "id", saved.ID)
	return router.JSON(saved.Response())
}

func (h Handlers) Get(ctx context.Context, raw string, db bun.IDB) router.Response {
	id, err := pathID(raw)
	if err != nil {
		return router.BadRequest(err.Error())
	}
	u, err := GetByID(ctx, db, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return router.NotFound("User not found")
		}
		logr.FromContextOrDiscard(ctx).Error(err, "Error getting user", "id", id)
		return router.InternalError("Internal error")
	}
	return router.JSON(u.Response())
}

func (h Handlers) List(ctx context.Context, _ string, db bun.IDB) router.Response {
	list, err := List(ctx, db)
	if err != nil {
		logr.FromContextOrDiscard(ctx).Error(err, "Error listing users")
		return router.InternalError("Internal error")
	}
	return router.JSON(toResponses(list))
}

func (h Handlers) Edit(ctx context.Context, raw string, db bun.IDB) router.Response {
	log := logr.FromContextOrDiscard(ctx)

	id, err := pathID(raw)
	if err != nil {
		return router.BadRequest(err.Error())
	}
	var in UpdateInput
	if err := decodeBody(raw, &in); err != nil {
		return router.BadRequest(err.Error())
	}
	if err := ValidateUpdate(id, in); err != nil {
		return router.BadRequest(err.Error())
	}

	if err := UpdateName(ctx, db, id, in.Name); err != nil {
		if errors.Is(err, ErrNotFound) {
			return router.NotFound("User not found")
		}
		log.Error(err, "Error updating user", "id", id)
		return router.InternalError("Failed to update user")
	}

	u, err := GetByID(ctx, db, id)
	if err != nil {
		log.Error(err, "Error getting user", "id", id)
		return router.InternalError("Internal error")
	}
	return router.JSON(u.Response())
}

func (h Handlers) Delete(ctx context.Context, raw string, db bun.IDB) router.Response {
	id, err := pathID(raw)
	if err != nil {
		return router.BadRequest(err.Error())
	}
	if err := DeleteByID(ctx, db, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return router.NotFound("User not found")
		}
		logr.FromContextOrDiscard(ctx).Error(err, "Error deleting user", "id", id)
		return router.InternalError("Failed to delete user")
	}
	return router.NoContent()
}
