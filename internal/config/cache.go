package config

import "time"

// CacheConfig covers both Redis caches: the response cache in front of
// GET /v1/screenings/:id and the seat-map cache used by the screening
// service.  The seat map is invalidated on every booking write, so
// SeatMapTTL only bounds staleness after a missed invalidation.
type CacheConfig struct {
    Enabled      bool
    Methods      map[string]bool // cached HTTP methods, upper-cased
    TTL          time.Duration   // screening detail responses
    SeatMapTTL   time.Duration
    KeyStrategy  string // "route" or "route_query"
    Prefix       string
    MaxBodyBytes int
}

// LoadCacheConfig reads the CACHE_* variables.
func LoadCacheConfig() CacheConfig {
    cfg := CacheConfig{
        Enabled:      envBool("CACHE_ENABLED", true),
        Methods:      envSet("CACHE_METHODS", "GET"),
        TTL:          envDur("CACHE_TTL", 30*time.Second),
        SeatMapTTL:   envDur("CACHE_SEATMAP_TTL", 10*time.Second),
        KeyStrategy:  envStr("CACHE_KEY_STRATEGY", "route_query"),
        Prefix:       envStr("CACHE_PREFIX", "cache"),
        MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1<<20),
    }
    if cfg.TTL <= 0 {
        cfg.Enabled = false
    }
    if cfg.SeatMapTTL <= 0 {
        cfg.SeatMapTTL = 10 * time.Second
    }
    return cfg
}
