package cache

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frame-dx-server/internal/domain"
	"github.com/frame-dx-server/pkg/findings"
)

func sampleResult(version string) *domain.DiagnosisResult {
	return &domain.DiagnosisResult{
		Ranked: []domain.RankedResult{{Disease: "Flu", Score: 3}},
		Details: map[string]domain.DiagnosisDetails{
			"Flu": {
				MatchedFindings:  map[string]float64{"fever": 2, "cough": 1},
				UnmetMust:        []string{},
				ForbiddenPresent: []string{},
				Total:            3,
			},
		},
		Findings:        []string{"cough", "fever"},
		SnapshotVersion: version,
	}
}

func TestKey(t *testing.T) {
	a := Key("v1", findings.NewSet("Fever", "cough"))
	b := Key("v1", findings.NewSet("cough", "fever", "fever"))
	assert.Equal(t, a, b, "keys ignore order, case and duplicates")

	assert.NotEqual(t, a, Key("v2", findings.NewSet("fever", "cough")), "keys embed the snapshot version")
	assert.NotEqual(t, a, Key("v1", findings.NewSet("fever")))
}

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(2, time.Minute)

	_, ok := c.Get(ctx, "missing")
	assert.False(t, ok)

	c.Set(ctx, "a", sampleResult("v1"))
	c.Set(ctx, "b", sampleResult("v1"))
	got, ok := c.Get(ctx, "a")
	require.True(t, ok)
	assert.Equal(t, "Flu", got.Ranked[0].Disease)

	// "b" is now least recently used
	c.Set(ctx, "c", sampleResult("v1"))
	assert.Equal(t, 2, c.Len())
	_, ok = c.Get(ctx, "b")
	assert.False(t, ok)

	c.Purge()
	assert.Equal(t, 0, c.Len())
}

func TestMemoryCache_Expiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(10, 20*time.Millisecond)
	c.Set(ctx, "a", sampleResult("v1"))

	assert.Eventually(t, func() bool {
		_, ok := c.Get(ctx, "a")
		return !ok
	}, time.Second, 10*time.Millisecond)
}

func TestTiered_BackfillsFrontTier(t *testing.T) {
	ctx := context.Background()
	front := NewMemoryCache(10, time.Minute)
	back := NewMemoryCache(10, time.Minute)
	tiered := NewTiered(front, nil, back)

	back.Set(ctx, "k", sampleResult("v1"))
	got, ok := tiered.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, "v1", got.SnapshotVersion)

	_, ok = front.Get(ctx, "k")
	assert.True(t, ok, "hit in the back tier is copied forward")

	tiered.Set(ctx, "other", sampleResult("v2"))
	assert.Equal(t, 2, front.Len())
	assert.Equal(t, 2, back.Len())
	assert.Equal(t, 2, tiered.Len())
}

func TestNoop(t *testing.T) {
	var c Cache = Noop{}
	c.Set(context.Background(), "k", sampleResult("v1"))
	_, ok := c.Get(context.Background(), "k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestRedisCache_UnavailableDegradesToMiss(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	c := NewRedisCacheWithClient(client, time.Minute, logger)
	defer c.Close()

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		c.Set(ctx, "k", sampleResult("v1"))
		_, ok := c.Get(ctx, "k")
		assert.False(t, ok)
	}
	assert.Equal(t, gobreaker.StateOpen, c.State())
	assert.Equal(t, 0, c.Len())
}

func TestNewRedisCache_BadURL(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	_, err := NewRedisCache(context.Background(), domain.CacheConfig{RedisURL: "not-a-url"}, logger)
	assert.Error(t, err)
}
