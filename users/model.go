package users

import "github.com/uptrace/bun"

// User mapeia a tabela users.
type User struct {
	bun.BaseModel `bun:"table:users"`
	ID            int64  `bun:"id,pk,autoincrement" json:"id"`
	Name          string `bun:"name,notnull" json:"name"`
	Email         string `bun:"email,notnull,unique" json:"email"`
	Password      string `bun:"password,notnull" json:"-"`
}

// CreateInput é o corpo de POST /users.
type CreateInput struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// UpdateInput é o corpo de PUT /users/<id>.
type UpdateInput struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Response é a forma pública de um usuário.
type Response struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (u *User) Response() Response {
	return Response{ID: u.ID, Name: u.Name, Email: u.Email}
}

func toResponses(list []User) []Response {
	out := make([]Response, 0, len(list))
	for i := range list {
		out = append(out, list[i].Response())
	}
	return out
}
