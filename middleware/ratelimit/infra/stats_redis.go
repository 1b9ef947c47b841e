package infra

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"account-gateway/middleware/ratelimit/domain"

	"github.com/redis/go-redis/v9"
)

// RedisStatsStore grava contadores de admissão em hashes do Redis via pipeline.
//
// Layout das chaves (prefixo padrão "ratelimit:stats"):
//
//	<prefix>:total            allowed/denied acumulados
//	<prefix>:tier:<tier>      allowed/denied por tier
//	<prefix>:minute:<yyyymmddhhmm>
//	<prefix>:route            "<METHOD> <path>:<allowed|denied>"
//	<prefix>:key:<key>        quando trackKeys=true
type RedisStatsStore struct {
	rdb *redis.Client

	prefix string
	// ttl aplica apenas em chaves de série temporal / por key.
	// total é cumulativo e não expira.
	ttl time.Duration

	bucket string // "minute" (padrão) ou "none"

	trackKeys bool
}

type RedisStatsOption func(*RedisStatsStore)

func WithStatsPrefix(prefix string) RedisStatsOption {
	return func(s *RedisStatsStore) {
		s.prefix = strings.Trim(prefix, ":")
	}
}

func WithStatsTTL(d time.Duration) RedisStatsOption {
	return func(s *RedisStatsStore) { s.ttl = d }
}

func WithStatsBucket(bucket string) RedisStatsOption {
	return func(s *RedisStatsStore) { s.bucket = strings.ToLower(strings.TrimSpace(bucket)) }
}

func WithStatsTrackKeys(track bool) RedisStatsOption {
	return func(s *RedisStatsStore) { s.trackKeys = track }
}

func NewRedisStatsStore(rdb *redis.Client, opts ...RedisStatsOption) *RedisStatsStore {
	s := &RedisStatsStore{
		rdb:    rdb,
		prefix: "ratelimit:stats",
		ttl:    24 * time.Hour,
		bucket: "minute",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStatsStore) Record(ctx context.Context, ev domain.StatsEvent) error {
	if s == nil || s.rdb == nil {
		return nil
	}

	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}

	field := "denied"
	if ev.Allowed {
		field = "allowed"
	}

	totalKey := s.prefix + ":total"

	pipe := s.rdb.Pipeline()
	pipe.HIncrBy(ctx, totalKey, field, 1)

	if ev.Tier != "" {
		// um hash por tier: global, common, hard
		pipe.HIncrBy(ctx, s.prefix+":tier:"+string(ev.Tier), field, 1)
	}

	if s.bucket == "minute" {
		bucketKey := fmt.Sprintf("%s:minute:%s", s.prefix, at.UTC().Format("200601021504"))
		pipe.HIncrBy(ctx, bucketKey, field, 1)
		if s.ttl > 0 {
			pipe.Expire(ctx, bucketKey, s.ttl)
		}
	}

	if ev.Method != "" || ev.Path != "" {
		routeKey := s.prefix + ":route"
		routeField := strings.TrimSpace(ev.Method) + " " + strings.TrimSpace(ev.Path)
		routeField = strings.TrimSpace(routeField)
		if routeField != "" {
			pipe.HIncrBy(ctx, routeKey, routeField+":"+field, 1)
		}
	}

	if s.trackKeys {
		k := strings.TrimSpace(ev.Key)
		if k != "" {
			keyKey := s.prefix + ":key:" + k
			pipe.HIncrBy(ctx, keyKey, field, 1)
			if s.ttl > 0 {
				pipe.Expire(ctx, keyKey, s.ttl)
			}
		}
	}

	_, err := pipe.Exec(ctx)
	return err
}

// TierTotals lê os contadores por tier gravados por Record.
// Tiers sem nenhum evento voltam zerados.
func (s *RedisStatsStore) TierTotals(ctx context.Context) (map[domain.Tier]Counters, error) {
	out := make(map[domain.Tier]Counters, len(domain.Tiers))
	if s == nil || s.rdb == nil {
		return out, nil
	}

	pipe := s.rdb.Pipeline()
	cmds := make(map[domain.Tier]*redis.MapStringStringCmd, len(domain.Tiers))
	for _, t := range domain.Tiers {
		cmds[t] = pipe.HGetAll(ctx, s.prefix+":tier:"+string(t))
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, fmt.Errorf("read tier stats: %w", err)
	}

	for t, cmd := range cmds {
		vals := cmd.Val()
		var c Counters
		c.Allowed, _ = strconv.ParseInt(vals["allowed"], 10, 64)
		c.Denied, _ = strconv.ParseInt(vals["denied"], 10, 64)
		out[t] = c
	}
	return out, nil
}
