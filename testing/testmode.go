// Package testing puts the process in test mode. Test packages import it
// for side effects so configuration never reads a developer .env file.
package testing

import (
	"os"
	"sync"
)

var once sync.Once

// Defaults are applied only when the variable is unset.
var Defaults = map[string]string{
	"SESSION_SECRET": "test-session-secret",
	"CSRF_SECRET":    "test-csrf-secret",
	"GOTENBERG_URL":  "http://127.0.0.1:0",
	"REDIS_ADDR":     "127.0.0.1:0",
}

func init() {
	Enable()
}

// Enable sets ODYSSEY_TEST_MODE and the test defaults once per process.
func Enable() {
	once.Do(func() {
		_ = os.Setenv("ODYSSEY_TEST_MODE", "1")
		for key, value := range Defaults {
			if _, ok := os.LookupEnv(key); !ok {
				_ = os.Setenv(key, value)
			}
		}
	})
}
