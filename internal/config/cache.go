package config

import (
	"fmt"
	"strings"
	"time"
)

type Cache struct {
	Backend    CacheBackend  `env:"CACHE_BACKEND" envDefault:"REDIS"`
	KeyPrefix  string        `env:"CACHE_KEY_PREFIX" envDefault:"inv"`
	ProductTTL time.Duration `env:"CACHE_PRODUCT_TTL" envDefault:"5m"`
	ListTTL    time.Duration `env:"CACHE_LIST_TTL" envDefault:"2m"`

	// Invalidation runs after commit and is retried this many times before giving up.
	InvalidateRetries uint64        `env:"CACHE_INVALIDATE_RETRIES" envDefault:"3"`
	InvalidateBackoff time.Duration `env:"CACHE_INVALIDATE_BACKOFF" envDefault:"20ms"`
}

// CacheBackend selects the cache store implementation.
type CacheBackend uint8

const (
	CacheBackendRedis CacheBackend = iota
	CacheBackendMemory
)

func (b CacheBackend) String() string {
	return []string{"REDIS", "MEMORY"}[b]
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (b *CacheBackend) UnmarshalText(text []byte) error {
	switch strings.ToUpper(string(text)) {
	case "REDIS":
		*b = CacheBackendRedis
	case "MEMORY":
		*b = CacheBackendMemory
	default:
		return fmt.Errorf("unknown cache backend: %s", text)
	}
	return nil
}

func (b CacheBackend) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}
