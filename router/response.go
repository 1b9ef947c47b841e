package router

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Linhas de status fixas; o corpo vem logo depois, sem Content-Length.
const (
	StatusOK                 = "HTTP/1.1 200 OK\r\nContent-Type: application/json\r\n\r\n"
	StatusNoContent          = "HTTP/1.1 204 NO CONTENT\r\n\r\n"
	StatusBadRequest         = "HTTP/1.1 400 BAD REQUEST\r\n\r\n"
	StatusUnauthorized       = "HTTP/1.1 401 UNAUTHORIZED\r\n\r\n"
	StatusNotFound           = "HTTP/1.1 404 NOT FOUND\r\n\r\n"
	StatusInternalError      = "HTTP/1.1 500 INTERNAL ERROR\r\n\r\n"
	StatusServiceUnavailable = "HTTP/1.1 503 SERVICE UNAVAILABLE\r\n\r\n"
	StatusCORSAllowAll       = "HTTP/1.1 200 OK\r\nAccess-Control-Allow-Origin: *\r\nAccess-Control-Allow-Methods: GET, POST, PUT, DELETE, OPTIONS\r\nAccess-Control-Allow-Headers: Content-Type\r\n\r\n"

	statusTooManyRequestsLine = "HTTP/1.1 429 TOO MANY REQUESTS\r\n"
)

// Response é o par (linha de status, corpo) escrito literalmente no socket.
type Response struct {
	StatusLine string
	Body       string
}

func OK(body string) Response { return Response{StatusOK, body} }

func NoContent() Response { return Response{StatusNoContent, ""} }

func BadRequest(msg string) Response { return Response{StatusBadRequest, msg} }

func Unauthorized() Response { return Response{StatusUnauthorized, "Unauthorized"} }

func NotFound(msg string) Response { return Response{StatusNotFound, msg} }

func InternalError(msg string) Response { return Response{StatusInternalError, msg} }

func ServiceUnavailable(msg string) Response { return Response{StatusServiceUnavailable, msg} }

func Preflight() Response { return Response{StatusCORSAllowAll, ""} }

// TooManyRequests aceita linhas de header extras, cada uma terminada em CRLF.
func TooManyRequests(headers string) Response {
	return Response{statusTooManyRequestsLine + headers + "\r\n", "Too Many Requests"}
}

// JSON serializa v numa resposta 200.
func JSON(v any) Response {
	b, err := json.Marshal(v)
	if err != nil {
		return InternalError("Internal error")
	}
	return OK(string(b))
}

// Code extrai o código numérico da linha de status, 0 se ela for inválida.
func (r Response) Code() int {
	fields := strings.Fields(r.StatusLine)
	if len(fields) < 2 {
		return 0
	}
	code, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0
	}
	return code
}

func (r Response) Bytes() []byte {
	return []byte(r.StatusLine + r.Body)
}
