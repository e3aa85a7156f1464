package service

import (
	"sync"
	"time"
)

type cooldownKey struct {
	guildID  string
	memberID string
}

// Cooldowns limits how often a member may create rooms. Entries live only in
// process memory and are gone after a restart.
type Cooldowns struct {
	mu      sync.Mutex
	expires map[cooldownKey]time.Time
	now     func() time.Time
}

func NewCooldowns(now func() time.Time) *Cooldowns {
	if now == nil {
		now = time.Now
	}
	return &Cooldowns{
		expires: make(map[cooldownKey]time.Time),
		now:     now,
	}
}

// Check returns how long the member still has to wait, or 0.
func (c *Cooldowns) Check(guildID, memberID string) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cooldownKey{guildID, memberID}
	exp, ok := c.expires[key]
	if !ok {
		return 0
	}
	remaining := exp.Sub(c.now())
	if remaining <= 0 {
		delete(c.expires, key)
		return 0
	}
	return remaining
}

// Start begins a cooldown of d. Non-positive durations are ignored.
func (c *Cooldowns) Start(guildID, memberID string, d time.Duration) {
	if d <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.expires[cooldownKey{guildID, memberID}] = c.now().Add(d)
}

// Sweep evicts expired entries and returns how many were removed.
func (c *Cooldowns) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	n := 0
	for key, exp := range c.expires {
		if !exp.After(now) {
			delete(c.expires, key)
			n++
		}
	}
	return n
}

func (c *Cooldowns) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.expires)
}
