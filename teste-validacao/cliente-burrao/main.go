package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"account-gateway/middleware/ratelimit/domain"
	"account-gateway/middleware/ratelimit/infra"

	"github.com/dustin/go-humanize"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

// Cliente burro de carga: abre N conexões TCP cruas contra o gateway, manda o
// mesmo request em cada uma e conta as linhas de status recebidas.
func main() {
	addr := flag.String("addr", "localhost:8080", "endereço do gateway")
	total := flag.Int("n", 200, "total de conexões")
	parallel := flag.Int("c", 20, "conexões simultâneas")
	method := flag.String("method", "GET", "método HTTP")
	path := flag.String("path", "/ping", "caminho")
	body := flag.String("body", "", "corpo do request")
	token := flag.String("token", "", "token Bearer (opcional)")
	redisAddr := flag.String("redis", "", "redis das estatísticas de rate limit (opcional)")
	redisPrefix := flag.String("redis-prefix", "ratelimit:stats", "prefixo das chaves de estatística")
	flag.Parse()

	raw := buildRequest(*method, *path, *body, *token)

	var mu sync.Mutex
	codes := map[string]int{}

	start := time.Now()
	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(*parallel)
	for i := 0; i < *total; i++ {
		g.Go(func() error {
			status := send(ctx, *addr, raw)
			mu.Lock()
			codes[status]++
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	elapsed := time.Since(start)

	fmt.Printf("%s conexões em %s\n", humanize.Comma(int64(*total)), elapsed.Round(time.Millisecond))
	keys := make([]string, 0, len(codes))
	for k := range codes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("  %-32s %s\n", k, humanize.Comma(int64(codes[k])))
	}

	if *redisAddr != "" {
		printTierTotals(*redisAddr, *redisPrefix)
	}
}

func buildRequest(method, path, body, token string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s HTTP/1.1\r\nHost: burrao\r\n", method, path)
	if token != "" {
		fmt.Fprintf(&b, "Authorization: Bearer %s\r\n", token)
	}
	if body != "" {
		fmt.Fprintf(&b, "Content-Type: application/json\r\nContent-Length: %d\r\n", len(body))
	}
	b.WriteString("\r\n")
	b.WriteString(body)
	return b.String()
}

// send devolve a linha de status, ou uma descrição do erro de rede.
func send(ctx context.Context, addr, raw string) string {
	var d net.Dialer
	dctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	conn, err := d.DialContext(dctx, "tcp", addr)
	if err != nil {
		return "erro: dial"
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(30 * time.Second))

	if _, err := io.WriteString(conn, raw); err != nil {
		return "erro: write"
	}
	resp, err := io.ReadAll(conn)
	if err != nil && len(resp) == 0 {
		return "erro: read"
	}
	if len(resp) == 0 {
		return "sem resposta"
	}
	line, _, _ := strings.Cut(string(resp), "\r\n")
	return line
}

func printTierTotals(addr, prefix string) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer func() { _ = rdb.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	totals, err := infra.NewRedisStatsStore(rdb, infra.WithStatsPrefix(prefix)).TierTotals(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Erro ao ler estatísticas: %s\n", err)
		return
	}
	fmt.Println("rate limit por tier:")
	for _, tier := range domain.Tiers {
		c := totals[tier]
		fmt.Printf("  %-8s allowed=%s denied=%s\n", tier, humanize.Comma(c.Allowed), humanize.Comma(c.Denied))
	}
}
