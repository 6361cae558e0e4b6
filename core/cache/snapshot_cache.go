package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	KeyStats      = "stats"
	balancePrefix = "balance:"
)

var ErrTampered = errors.New("cache entry failed integrity check")

// ValidatedCacheEntry is a JSON-encoded value with an integrity checksum.
type ValidatedCacheEntry struct {
	Value     json.RawMessage `json:"value"`
	Timestamp time.Time       `json:"timestamp"`
	Checksum  string          `json:"checksum"`
	Source    string          `json:"source"` // "chain", "transaction_update"
	TTL       time.Duration   `json:"ttl"`
}

// IsValid checks the entry has not expired and was not altered.
func (e *ValidatedCacheEntry) IsValid(secret []byte, ttl time.Duration) bool {
	if time.Since(e.Timestamp) > ttl {
		return false
	}
	return e.Checksum == checksum(e.Value, e.Timestamp, e.Source, secret)
}

func checksum(value []byte, ts time.Time, source string, secret []byte) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%d:%s:%s", value, ts.UnixNano(), source, secret)))
	return hex.EncodeToString(sum[:])
}

// Options tunes a SaleCache. Zero fields take defaults.
type Options struct {
	// DefaultTTL applies to display reads (dashboard polling).
	DefaultTTL time.Duration
	// ValidationTTL applies to reads that gate a transaction.
	ValidationTTL   time.Duration
	CleanupInterval time.Duration
	Logger          *logrus.Logger
}

// SaleCache holds recent contract snapshots and holder balances.
type SaleCache struct {
	entries map[string]*ValidatedCacheEntry
	mutex   sync.RWMutex

	secret          []byte
	defaultTTL      time.Duration
	validationTTL   time.Duration
	cleanupInterval time.Duration
	logger          *logrus.Logger

	totalRequests     int64
	cacheHits         int64
	cacheMisses       int64
	integrityFailures int64
	invalidations     int64
	lastCleanup       time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

// NewSaleCache starts a cache with a background cleanup worker. Call Close
// to stop it.
func NewSaleCache(secret []byte, opts Options) *SaleCache {
	c := &SaleCache{
		entries:         make(map[string]*ValidatedCacheEntry),
		secret:          secret,
		defaultTTL:      5 * time.Second,
		validationTTL:   2 * time.Second,
		cleanupInterval: time.Minute,
		logger:          opts.Logger,
		lastCleanup:     time.Now(),
		stop:            make(chan struct{}),
	}
	if opts.DefaultTTL > 0 {
		c.defaultTTL = opts.DefaultTTL
	}
	if opts.ValidationTTL > 0 {
		c.validationTTL = opts.ValidationTTL
	}
	if opts.CleanupInterval > 0 {
		c.cleanupInterval = opts.CleanupInterval
	}
	if c.logger == nil {
		c.logger = logrus.StandardLogger()
	}

	go c.startCleanupWorker()
	return c
}

// Get decodes a fresh entry into out. It reports false on miss, expiry or
// a failed integrity check.
func (c *SaleCache) Get(key string, forValidation bool, out interface{}) bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.totalRequests++

	entry, ok := c.entries[key]
	if ok {
		ttl := c.defaultTTL
		if forValidation {
			ttl = c.validationTTL
		}
		if entry.IsValid(c.secret, ttl) {
			if err := json.Unmarshal(entry.Value, out); err == nil {
				c.cacheHits++
				return true
			}
		} else if time.Since(entry.Timestamp) <= ttl {
			c.integrityFailures++
			delete(c.entries, key)
			c.logger.Warnf("🚨 %s: %s", ErrTampered, key)
		}
	}
	c.cacheMisses++
	return false
}

// Set stores value under key.
func (c *SaleCache) Set(key string, value interface{}, source string) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache %s: %w", key, err)
	}
	now := time.Now()
	entry := &ValidatedCacheEntry{
		Value:     raw,
		Timestamp: now,
		Source:    source,
		TTL:       c.defaultTTL,
		Checksum:  checksum(raw, now, source, c.secret),
	}

	c.mutex.Lock()
	c.entries[key] = entry
	c.mutex.Unlock()
	return nil
}

func balanceKey(address string) string {
	return balancePrefix + strings.ToLower(address)
}

// GetBalance returns a cached token balance for address.
func (c *SaleCache) GetBalance(address string, forValidation bool) (*big.Int, bool) {
	var s string
	if !c.Get(balanceKey(address), forValidation, &s) {
		return nil, false
	}
	v, ok := new(big.Int).SetString(s, 10)
	return v, ok
}

func (c *SaleCache) SetBalance(address string, balance *big.Int, source string) error {
	if balance == nil {
		return errors.New("nil balance")
	}
	return c.Set(balanceKey(address), balance.String(), source)
}

// Invalidate drops a single key.
func (c *SaleCache) Invalidate(key string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if _, ok := c.entries[key]; ok {
		delete(c.entries, key)
		c.invalidations++
	}
}

// InvalidateBalance drops the cached balance of address.
func (c *SaleCache) InvalidateBalance(address string) {
	c.Invalidate(balanceKey(address))
}

// InvalidateAfterTransaction drops the snapshot and the sender's balance
// once a mint or sell has been confirmed.
func (c *SaleCache) InvalidateAfterTransaction(address string) {
	c.Invalidate(KeyStats)
	if address != "" {
		c.InvalidateBalance(address)
	}
}

// Close stops the cleanup worker.
func (c *SaleCache) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *SaleCache) startCleanupWorker() {
	ticker := time.NewTicker(c.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.performCleanup()
		case <-c.stop:
			return
		}
	}
}

// performCleanup removes entries older than twice their TTL.
func (c *SaleCache) performCleanup() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := time.Now()
	removed := 0
	for key, entry := range c.entries {
		if now.Sub(entry.Timestamp) > entry.TTL*2 {
			delete(c.entries, key)
			removed++
		}
	}
	c.lastCleanup = now
	c.logger.Debugf("🧹 Cache cleanup: removed %d, %d live", removed, len(c.entries))
}

// GetStats returns cache performance statistics.
func (c *SaleCache) GetStats() map[string]interface{} {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	hitRate := float64(0)
	if c.totalRequests > 0 {
		hitRate = float64(c.cacheHits) / float64(c.totalRequests) * 100
	}

	return map[string]interface{}{
		"total_requests":     c.totalRequests,
		"cache_hits":         c.cacheHits,
		"cache_misses":       c.cacheMisses,
		"hit_rate_percent":   hitRate,
		"entries":            len(c.entries),
		"integrity_failures": c.integrityFailures,
		"invalidations":      c.invalidations,
		"last_cleanup":       c.lastCleanup,
	}
}
