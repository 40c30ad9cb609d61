// Package i18n looks up user-facing command text by key.
package i18n

import (
	"fmt"
	"sync"
)

var (
	mu      sync.RWMutex
	catalog = map[string]string{}
)

// Register adds or replaces translations. Keys not registered fall back to
// the default text passed to T.
func Register(messages map[string]string) {
	mu.Lock()
	defer mu.Unlock()
	for k, v := range messages {
		catalog[k] = v
	}
}

// T translates key, returning defaultValue when no translation is
// registered. With args the result is used as a fmt format string.
func T(key string, defaultValue string, args ...any) string {
	mu.RLock()
	msg, ok := catalog[key]
	mu.RUnlock()
	if !ok {
		msg = defaultValue
	}
	if len(args) > 0 {
		return fmt.Sprintf(msg, args...)
	}
	return msg
}
