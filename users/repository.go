package users

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/uptrace/bun"
)

var (
	// ErrNotFound é retornado quando nenhum usuário casa com o filtro.
	ErrNotFound = errors.New("user not found")
	// ErrDuplicate é retornado quando o email já está cadastrado.
	ErrDuplicate = errors.New("duplicate user")
)

// mapDBError converte violações de unicidade dos três drivers em ErrDuplicate
// e sql.ErrNoRows em ErrNotFound.
func mapDBError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	le := strings.ToLower(err.Error())
	// MySQL 1062, Postgres 23505, SQLite "UNIQUE constraint failed"
	if strings.Contains(le, "duplicate") || strings.Contains(le, "unique") || strings.Contains(le, "23505") || strings.Contains(le, "1062") {
		return ErrDuplicate
	}
	return err
}

// Migrate cria a tabela users se ainda não existir.
func Migrate(ctx context.Context, db bun.IDB) error {
	_, err := db.NewCreateTable().Model((*User)(nil)).IfNotExists().Exec(ctx)
	return err
}

// Insert grava u numa transação e preenche u.ID.
func Insert(ctx context.Context, db bun.IDB, u *User) error {
	err := db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().Model(u).Column("name", "email", "password").Returning("id").Exec(ctx)
		return err
	})
	return mapDBError(err)
}

func GetByID(ctx context.Context, db bun.IDB, id int64) (*User, error) {
	u := new(User)
	if err := db.NewSelect().Model(u).Where("id = ?", id).Scan(ctx); err != nil {
		return nil, mapDBError(err)
	}
	return u, nil
}

// PasswordByEmail devolve o hash gravado para email.
func PasswordByEmail(ctx context.Context, db bun.IDB, email string) (string, error) {
	var hash string
	err := db.NewSelect().Model((*User)(nil)).Column("password").Where("email = ?", email).Limit(1).Scan(ctx, &hash)
	if err != nil {
		return "", mapDBError(err)
	}
	return strings.TrimRight(hash, " \t\r\n"), nil
}

func EmailExists(ctx context.Context, db bun.IDB, email string) (bool, error) {
	return db.NewSelect().Model((*User)(nil)).Where("email = ?", email).Exists(ctx)
}

// UpdateName troca o nome de um usuário existente.
func UpdateName(ctx context.Context, db bun.IDB, id int64, name string) error {
	if _, err := GetByID(ctx, db, id); err != nil {
		return err
	}
	_, err := db.NewUpdate().Model((*User)(nil)).Set("name = ?", name).Where("id = ?", id).Exec(ctx)
	return mapDBError(err)
}

func DeleteByID(ctx context.Context, db bun.IDB, id int64) error {
	res, err := db.NewDelete().Model((*User)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return mapDBError(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// List devolve todos os usuários por id crescente; nunca nil.
func List(ctx context.Context, db bun.IDB) ([]User, error) {
	list := make([]User, 0)
	if err := db.NewSelect().Model(&list).Order("id ASC").Scan(ctx); err != nil {
		return nil, mapDBError(err)
	}
	return list, nil
}
