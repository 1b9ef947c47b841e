package router

import (
	"bytes"
	"errors"
	"io"
	"net/textproto"
	"os"
	"strconv"
	"strings"
)

const DefaultMaxRequestBytes = 64 << 10

var ErrEmptyRequest = errors.New("empty request")

// Request é o resultado do parse mínimo: linha de request, headers e corpo.
// Raw guarda o texto inteiro, que é o que os handlers recebem.
type Request struct {
	Raw     string
	Method  string
	Path    string
	Proto   string
	Headers map[string]string
	Body    string

	remote string
}

// ParseRequest nunca falha: partes ausentes ficam vazias e a rota cai em 404
// ou o handler responde 400.
func ParseRequest(raw string) *Request {
	req := &Request{Raw: raw, Headers: map[string]string{}}

	head, body, _ := strings.Cut(raw, "\r\n\r\n")
	req.Body = body

	line, rest, _ := strings.Cut(head, "\r\n")
	parts := strings.Fields(line)
	if len(parts) > 0 {
		req.Method = parts[0]
	}
	if len(parts) > 1 {
		req.Path = parts[1]
	}
	if len(parts) > 2 {
		req.Proto = parts[2]
	}

	for _, h := range strings.Split(rest, "\r\n") {
		name, value, ok := strings.Cut(h, ":")
		if !ok {
			continue
		}
		req.Headers[textproto.CanonicalMIMEHeaderKey(strings.TrimSpace(name))] = strings.TrimSpace(value)
	}
	return req
}

// ReadRequest lê até o fim dos headers mais Content-Length bytes de corpo, até
// EOF, até maxBytes ou até o deadline de leitura estourar com algo já lido.
// Bytes que não são UTF-8 válido são substituídos.
func ReadRequest(r io.Reader, maxBytes int) (*Request, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxRequestBytes
	}

	buf := make([]byte, 0, 1024)
	chunk := make([]byte, 1024)
	for len(buf) < maxBytes {
		n, err := r.Read(chunk[:min(len(chunk), maxBytes-len(buf))])
		buf = append(buf, chunk[:n]...)
		if complete(buf) {
			break
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				if len(buf) == 0 {
					return nil, ErrEmptyRequest
				}
				break
			}
			if errors.Is(err, os.ErrDeadlineExceeded) && len(buf) > 0 {
				break
			}
			return nil, err
		}
	}
	return ParseRequest(strings.ToValidUTF8(string(buf), "\uFFFD")), nil
}

func complete(buf []byte) bool {
	head, body, ok := bytes.Cut(buf, []byte("\r\n\r\n"))
	if !ok {
		return false
	}
	return len(body) >= contentLength(head)
}

func contentLength(head []byte) int {
	for _, line := range bytes.Split(head, []byte("\r\n")) {
		name, value, ok := bytes.Cut(line, []byte(":"))
		if !ok || !strings.EqualFold(strings.TrimSpace(string(name)), "Content-Length") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(string(value)))
		if err != nil || n < 0 {
			return 0
		}
		return n
	}
	return 0
}

func (r *Request) Header(name string) string {
	return r.Headers[textproto.CanonicalMIMEHeaderKey(name)]
}

func (r *Request) RemoteAddr() string { return r.remote }

func (r *Request) Target() (method, path string) { return r.Method, r.Path }

// PathID retorna o terceiro segmento do caminho: "/users/5" → "5".
func (r *Request) PathID() string {
	path, _, _ := strings.Cut(r.Path, "?")
	segs := strings.Split(path, "/")
	if len(segs) < 3 {
		return ""
	}
	return segs[2]
}
