package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/notemart/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// scriptStub answers EVALSHA with a canned reply and records the key.
type scriptStub struct {
	redis.Scripter
	reply []any
	err   error
	keys  []string
	args  []any
}

func (s *scriptStub) EvalSha(ctx context.Context, sha1 string, keys []string, args ...any) *redis.Cmd {
	s.keys = append(s.keys, keys...)
	s.args = args
	return redis.NewCmdResult(s.reply, s.err)
}

func TestDisabledLimiterAdmits(t *testing.T) {
	l, err := New(config.Config{}, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, l.Enabled())

	res, err := l.Allow(context.Background(), PolicyAuth, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestEnabledLimiterRequiresValidPolicy(t *testing.T) {
	cfg := config.Config{}
	cfg.RateLimit.Enabled = true
	cfg.RateLimit.RedisAddr = "localhost:6379"
	cfg.RateLimit.AuthRate = 0
	cfg.RateLimit.AuthBurst = 5
	cfg.RateLimit.PublicRate = 1
	cfg.RateLimit.PublicBurst = 10

	_, err := New(cfg, zap.NewNop())
	assert.ErrorIs(t, err, ErrInvalidPolicy)
}

func TestAllowUsesPolicyKeyAndRule(t *testing.T) {
	stub := &scriptStub{reply: []any{int64(1), "3.5", int64(1767225600000)}}
	l := NewWithBucket(NewTokenBucket(stub), map[Policy]rule{
		PolicyAuth: {rate: 0.5, burst: 5},
	}, zap.NewNop())

	res, err := l.Allow(context.Background(), PolicyAuth, " 10.0.0.1 ")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 3, res.Remaining)
	assert.Equal(t, 5, res.Limit)
	assert.Zero(t, res.RetryAfter)

	require.Equal(t, []string{"notemart:ratelimit:auth:10.0.0.1"}, stub.keys)
	require.Len(t, stub.args, 3)
	assert.Equal(t, 0.5, stub.args[0])
	assert.Equal(t, 5, stub.args[1])
	assert.Equal(t, int64(20000), stub.args[2])
}

func TestDeniedReportsRetryAfter(t *testing.T) {
	stub := &scriptStub{reply: []any{int64(0), "0.5", int64(1767225600000)}}
	l := NewWithBucket(NewTokenBucket(stub), map[Policy]rule{
		PolicyPublic: {rate: 1, burst: 10},
	}, zap.NewNop())

	res, err := l.Allow(context.Background(), PolicyPublic, "")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 500*time.Millisecond, res.RetryAfter)
	assert.Equal(t, []string{"notemart:ratelimit:public:anonymous"}, stub.keys)
}

func TestUnknownPolicyAdmits(t *testing.T) {
	stub := &scriptStub{err: errors.New("should not be called")}
	l := NewWithBucket(NewTokenBucket(stub), map[Policy]rule{}, zap.NewNop())

	res, err := l.Allow(context.Background(), PolicyAuth, "x")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Empty(t, stub.keys)
}

func TestBucketPropagatesRedisError(t *testing.T) {
	boom := errors.New("connection refused")
	b := NewTokenBucket(&scriptStub{err: boom})

	_, err := b.Allow(context.Background(), "k", 1, 1)
	assert.ErrorIs(t, err, boom)
}
