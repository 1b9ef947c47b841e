// Package users guarda a tabela de usuários e os handlers das rotas /users.
//
// Os handlers recebem o texto bruto do request e uma conexão exclusiva do
// banco, e devolvem sempre uma router.Response. Senhas só são gravadas como
// hash bcrypt e nunca saem em JSON.
package users
