package config

import (
    "os"
    "strconv"
    "time"
)

// LoginLimitConfig configures the token bucket guarding POST /auth.  The
// defaults allow five attempts per IP per minute.
type LoginLimitConfig struct {
    Enabled        bool
    Capacity       int
    RefillTokens   int
    RefillInterval time.Duration
    TTL            time.Duration
    Prefix         string
    Message        string
}

func LoadLoginLimitConfig() LoginLimitConfig {
    def := LoginLimitConfig{
        Enabled:        envBool("LOGIN_RATE_LIMIT_ENABLED", true),
        Capacity:       envInt("LOGIN_RATE_LIMIT_CAPACITY", 5),
        RefillTokens:   envInt("LOGIN_RATE_LIMIT_REFILL_TOKENS", 5),
        RefillInterval: envDur("LOGIN_RATE_LIMIT_WINDOW", time.Minute),
        TTL:            envDur("LOGIN_RATE_LIMIT_TTL", 10*time.Minute),
        Prefix:         envStr("LOGIN_RATE_LIMIT_PREFIX", "rl:login"),
        Message:        "Too many login attempts from this IP, please try again after a 60 second pause",
    }
    return def.normalized()
}

// normalized clamps values so the bucket is always usable.
func (c LoginLimitConfig) normalized() LoginLimitConfig {
    if c.Capacity < 1 { c.Capacity = 1 }
    if c.RefillTokens < 1 { c.RefillTokens = 1 }
    if c.RefillInterval <= 0 { c.RefillInterval = time.Minute }
    minTTL := 5 * c.RefillInterval
    if c.TTL < minTTL { c.TTL = minTTL }
    return c
}

func envStr(k, d string) string { if v := os.Getenv(k); v != "" { return v }; return d }
func envBool(k string, d bool) bool { return parseBool(os.Getenv(k), d) }
func envInt(k string, d int) int {
    v := os.Getenv(k); if v == "" { return d }
    if n, err := strconv.Atoi(v); err == nil { return n }
    return d
}
func envDur(k string, d time.Duration) time.Duration {
    v := os.Getenv(k); if v == "" { return d }
    if dur, err := time.ParseDuration(v); err == nil { return dur }
    return d
}

func parseBool(v string, d bool) bool {
    switch v {
    case "1","true","TRUE","True","yes","YES","on","ON": return true
    case "0","false","FALSE","False","no","NO","off","OFF": return false
    }
    return d
}
