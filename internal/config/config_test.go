package config

import (
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
)

func TestLoadBookingConfigDefaults(t *testing.T) {
    for _, k := range []string{"BOOKING_MAX_SEATS", "SCREENING_EXPIRY_GRACE", "SCREENING_SWEEP_INTERVAL", "APP_TIMEZONE_OFFSET_HOURS", "PAYMENT_STRICT_METHODS"} {
        t.Setenv(k, "")
    }
    cfg := LoadBookingConfig()
    assert.Equal(t, 8, cfg.MaxSeats)
    assert.Equal(t, 15*time.Minute, cfg.ExpiryGrace)
    assert.Equal(t, time.Minute, cfg.SweepInterval)
    assert.Equal(t, 7, cfg.TimezoneOffsetHours)
    assert.False(t, cfg.StrictPaymentMethods)
}

func TestLoadBookingConfigOverrides(t *testing.T) {
    t.Setenv("BOOKING_MAX_SEATS", "4")
    t.Setenv("SCREENING_EXPIRY_GRACE", "10m")
    t.Setenv("SCREENING_SWEEP_INTERVAL", "30s")
    t.Setenv("APP_TIMEZONE_OFFSET_HOURS", "0")
    t.Setenv("PAYMENT_STRICT_METHODS", "yes")

    cfg := LoadBookingConfig()
    assert.Equal(t, 4, cfg.MaxSeats)
    assert.Equal(t, 10*time.Minute, cfg.ExpiryGrace)
    assert.Equal(t, 30*time.Second, cfg.SweepInterval)
    assert.Equal(t, 0, cfg.TimezoneOffsetHours)
    assert.True(t, cfg.StrictPaymentMethods)
}

func TestLoadBookingConfigRejectsNonsense(t *testing.T) {
    t.Setenv("BOOKING_MAX_SEATS", "0")
    t.Setenv("SCREENING_SWEEP_INTERVAL", "-1s")
    cfg := LoadBookingConfig()
    assert.Equal(t, 8, cfg.MaxSeats)
    assert.Equal(t, time.Minute, cfg.SweepInterval)
}

func TestLoadRateLimitConfigClamps(t *testing.T) {
    t.Setenv("RATE_LIMIT_CAPACITY", "0")
    t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")
    t.Setenv("RATE_LIMIT_TTL", "1s")
    cfg := LoadRateLimitConfig()
    assert.Equal(t, 1, cfg.Capacity)
    assert.Equal(t, 10*time.Second, cfg.TTL)
}

func TestLoadCacheConfigMethods(t *testing.T) {
    t.Setenv("CACHE_METHODS", "get, head")
    t.Setenv("CACHE_TTL", "garbage")
    cfg := LoadCacheConfig()
    assert.True(t, cfg.Methods["GET"])
    assert.True(t, cfg.Methods["HEAD"])
    assert.False(t, cfg.Methods["POST"])
    assert.Equal(t, 30*time.Second, cfg.TTL)
    assert.True(t, cfg.Enabled)
}

func TestLoadCacheConfigZeroTTLDisables(t *testing.T) {
    t.Setenv("CACHE_TTL", "0s")
    assert.False(t, LoadCacheConfig().Enabled)
}

func TestEnvBool(t *testing.T) {
    t.Setenv("X_FLAG", " On ")
    assert.True(t, envBool("X_FLAG", false))
    t.Setenv("X_FLAG", "nope")
    assert.True(t, envBool("X_FLAG", true))
    t.Setenv("X_FLAG", "0")
    assert.False(t, envBool("X_FLAG", true))
}
