// Package cache defines a small read-through cache port for run previews.
package cache

// Cache is a best-effort key/value cache. Get returns false on miss.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte)
	Delete(key string)
}
