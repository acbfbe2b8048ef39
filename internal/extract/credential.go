package extract

import (
	"strings"
	"sync"
)

// Credential holds the Gemini API key. The configured key comes from the
// config file or environment; an override set at runtime takes precedence
// and lives only in memory.
type Credential struct {
	mu         sync.RWMutex
	configured string
	override   string
}

// NewCredential wraps the configured key, which may be empty.
func NewCredential(configured string) *Credential {
	return &Credential{configured: strings.TrimSpace(configured)}
}

// Key returns the active key and whether one is available.
func (c *Credential) Key() (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.override != "" {
		return c.override, true
	}
	return c.configured, c.configured != ""
}

// Override replaces the runtime key; an empty key clears it.
func (c *Credential) Override(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.override = strings.TrimSpace(key)
}

// Reject forgets the runtime override after the backend refused it.
func (c *Credential) Reject() {
	c.Override("")
}

// Source names where the active key came from: runtime, config or none.
func (c *Credential) Source() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	switch {
	case c.override != "":
		return "runtime"
	case c.configured != "":
		return "config"
	default:
		return "none"
	}
}
