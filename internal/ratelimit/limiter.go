package ratelimit

import (
	"context"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/notemart/internal/config"
	"go.uber.org/zap"
)

const keyFormat = "notemart:ratelimit:%s:%s"

// Policy names a bucket family. Auth covers credential endpoints, Public
// covers anonymous writes such as contact and checkout.
type Policy string

const (
	PolicyAuth   Policy = "auth"
	PolicyPublic Policy = "public"
)

type rule struct {
	rate  float64
	burst int
}

// Limiter applies per-subject token buckets. A disabled limiter admits
// everything.
type Limiter struct {
	bucket *TokenBucket
	rules  map[Policy]rule
	log    *zap.Logger
}

func New(cfg config.Config, log *zap.Logger) (*Limiter, error) {
	log = log.Named("ratelimit")
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled {
		log.Info("rate limiting disabled")
		return &Limiter{log: log}, nil
	}

	addr := strings.TrimSpace(limitCfg.RedisAddr)
	if addr == "" {
		return nil, fmt.Errorf("rate limit redis addr is required")
	}
	if limitCfg.AuthRate <= 0 || limitCfg.AuthBurst <= 0 || limitCfg.PublicRate <= 0 || limitCfg.PublicBurst <= 0 {
		return nil, ErrInvalidPolicy
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(limitCfg.RedisPassword),
		DB:       limitCfg.RedisDB,
	})
	return NewWithBucket(NewTokenBucket(client), map[Policy]rule{
		PolicyAuth:   {rate: limitCfg.AuthRate, burst: limitCfg.AuthBurst},
		PolicyPublic: {rate: limitCfg.PublicRate, burst: limitCfg.PublicBurst},
	}, log), nil
}

func NewWithBucket(bucket *TokenBucket, rules map[Policy]rule, log *zap.Logger) *Limiter {
	return &Limiter{bucket: bucket, rules: rules, log: log}
}

func (l *Limiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

// Allow charges one request for subject under policy. Unknown policies are
// admitted.
func (l *Limiter) Allow(ctx context.Context, policy Policy, subject string) (*Result, error) {
	if !l.Enabled() {
		return &Result{Allowed: true}, nil
	}
	r, ok := l.rules[policy]
	if !ok {
		return &Result{Allowed: true}, nil
	}
	subject = strings.TrimSpace(subject)
	if subject == "" {
		subject = "anonymous"
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyFormat, policy, subject), r.rate, r.burst)
}
