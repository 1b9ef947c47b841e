// Package router faz o parse mínimo de HTTP de uma conexão e escolhe a rota.
//
// Só a linha de request, os headers e o corpo depois da linha em branco são
// interpretados; não há keep-alive nem TLS. Cada conexão recebe no máximo uma
// resposta, montada com as linhas de status fixas deste pacote.
package router
