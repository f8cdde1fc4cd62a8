package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEnvHelpers(t *testing.T) {
	t.Setenv("T_STR", "hello")
	t.Setenv("T_BOOL", "true")
	t.Setenv("T_INT", "42")
	t.Setenv("T_DUR", "90s")
	t.Setenv("T_BAD", "not-a-value")

	assert.Equal(t, "hello", envStr("T_STR", "d"))
	assert.Equal(t, "d", envStr("T_UNSET", "d"))
	assert.True(t, envBool("T_BOOL", false))
	assert.True(t, envBool("T_BAD", true))
	assert.Equal(t, 42, envInt("T_INT", 7))
	assert.Equal(t, 7, envInt("T_BAD", 7))
	assert.Equal(t, 90*time.Second, envDur("T_DUR", time.Second))
	assert.Equal(t, time.Second, envDur("T_BAD", time.Second))
}

func TestParseMethods(t *testing.T) {
	m := parseMethods("get, head ,POST")
	assert.Equal(t, map[string]bool{"GET": true, "HEAD": true, "POST": true}, m)
	assert.Empty(t, parseMethods(" , "))
}

func TestLoadRateLimitConfigClamps(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_TOKENS", "-3")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")

	cfg := LoadRateLimitConfig()
	assert.Equal(t, 1, cfg.Capacity)
	assert.Equal(t, 1, cfg.RefillTokens)
	assert.Equal(t, 2*time.Second, cfg.RefillInterval)
	// TTL is raised to cover several refill cycles.
	assert.Equal(t, 10*time.Second, cfg.TTL)
}
