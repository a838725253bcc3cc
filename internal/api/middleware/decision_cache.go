package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/apptracker/application-tracker/internal/authorizer"
)

// DecisionCache remembers Allow decisions per credential so repeated calls
// with the same token skip verification. An entry lives for the cache TTL or
// until the credential expires, whichever comes first. Keys are SHA-256
// digests of the Authorization header; raw tokens are never held.
type DecisionCache struct {
	lru *expirable.LRU[string, authorizer.Decision]
	now func() time.Time
}

func NewDecisionCache(size int, ttl time.Duration) *DecisionCache {
	if size <= 0 {
		size = 1024
	}
	return &DecisionCache{
		lru: expirable.NewLRU[string, authorizer.Decision](size, nil, ttl),
		now: time.Now,
	}
}

// Get returns the cached decision for header. A decision whose credential
// has expired is dropped and reported as a miss.
func (c *DecisionCache) Get(header string) (authorizer.Decision, bool) {
	key := cacheKey(header)
	d, ok := c.lru.Get(key)
	if !ok {
		return authorizer.Decision{}, false
	}
	if d.Expired(c.now()) {
		c.lru.Remove(key)
		return authorizer.Decision{}, false
	}
	return d, true
}

// Add stores d. Deny decisions and decisions for expired credentials are not
// cached.
func (c *DecisionCache) Add(header string, d authorizer.Decision) {
	if !d.Allowed() || d.Expired(c.now()) {
		return
	}
	c.lru.Add(cacheKey(header), d)
}

// PurgeUser drops every cached decision granted to userID and returns how
// many were removed.
func (c *DecisionCache) PurgeUser(userID string) int {
	n := 0
	for _, k := range c.lru.Keys() {
		if d, ok := c.lru.Peek(k); ok && d.UserID() == userID {
			if c.lru.Remove(k) {
				n++
			}
		}
	}
	return n
}

func (c *DecisionCache) Len() int { return c.lru.Len() }

func cacheKey(header string) string {
	sum := sha256.Sum256([]byte(header))
	return hex.EncodeToString(sum[:])
}
